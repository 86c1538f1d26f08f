package cmd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/server/relay"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var relayBindings = []binding{
	{"log", "relay.log"},
	{"port", "relay.port"},
	{"path", "relay.path"},
	{"interval", "relay.interval"},
}

func newRelayCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve a recorded log to viewers over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, v, relayBindings); err != nil {
				return err
			}
			if config.Relay.Log == "" {
				return errors.New("relay needs a snapshot log (--log)")
			}

			replay, err := network.NewReplayFromFile(config.Relay.Log, config.Relay.Interval)
			if err != nil {
				return err
			}
			r := relay.New(config.Relay.Path, replay)

			ctx, cancel := signalContext(cmd)
			defer cancel()
			go func() {
				<-ctx.Done()
				log.Println("[relay] shutting down")
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				if err := r.Stop(shutdownCtx); err != nil {
					log.Printf("[relay] shutdown: %v", err)
				}
			}()

			return r.ListenAndServe(ctx, config.Relay.Port)
		},
	}
	cmd.Flags().String("log", config.Relay.Log, "JSONL snapshot log to broadcast")
	cmd.Flags().Uint("port", config.Relay.Port, "listen port")
	cmd.Flags().String("path", config.Relay.Path, "websocket path")
	cmd.Flags().Duration("interval", config.Relay.Interval, "broadcast period")
	return cmd
}
