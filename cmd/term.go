package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/termview"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var termBindings = append([]binding{
	{"log-file", "term.log_file"},
	{"frame", "term.frame"},
}, sourceBindings...)

func newTermCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Watch the simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, v, termBindings); err != nil {
				return err
			}

			restore, err := redirectLog(config.Term.LogFile)
			if err != nil {
				return err
			}
			defer restore()

			src, err := openSource()
			if err != nil {
				return err
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}
			defer screen.Fini()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			inbox := network.NewInbox(0)
			src.OnWorldState(inbox.Push)
			if err := src.Connect(ctx); err != nil {
				return err
			}
			defer src.Disconnect()

			return termview.New(screen, inbox, src.Describe).Run(ctx)
		},
	}
	addSourceFlags(cmd.Flags())
	cmd.Flags().String("log-file", config.Term.LogFile, "write logs here instead of discarding them")
	cmd.Flags().Duration("frame", config.Term.Frame, "redraw period")
	return cmd
}

// redirectLog keeps log output off the tcell screen.
func redirectLog(path string) (func(), error) {
	prev := log.Writer()
	if path == "" {
		log.SetOutput(io.Discard)
		return func() { log.SetOutput(prev) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(prev)
		_ = f.Close()
	}, nil
}
