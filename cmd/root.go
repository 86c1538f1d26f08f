package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/systems"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const appName = "herdview"

// WindowFunc opens the graphical viewer over inbox and blocks until it closes.
// It returns the final window size.
type WindowFunc func(ctx context.Context, inbox *network.Inbox, status func() string, drops func() uint64) (int, int, error)

func Execute(window WindowFunc) error {
	return newRootCmd(window).Execute()
}

// binding ties a flag to the viper key it overrides.
type binding struct {
	flag string
	key  string
}

var sourceBindings = []binding{
	{"source", "source.kind"},
	{"url", "source.url"},
	{"log", "source.log"},
	{"interval", "source.interval"},
}

func addSourceFlags(fs *pflag.FlagSet) {
	fs.String("source", string(config.Source.Kind), "snapshot source: replay or ws")
	fs.String("url", config.Source.URL, "websocket endpoint for --source ws")
	fs.String("log", config.Source.Log, "JSONL snapshot log for --source replay")
	fs.Duration("interval", config.Source.Interval, "replay delivery period")
}

func newRootCmd(window WindowFunc) *cobra.Command {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "herdview: watch a herd simulation in real time",
		Long:          "herdview renders world snapshots from a live websocket stream or a recorded log, smoothing the sparse updates into continuous motion.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, v, sourceBindings); err != nil {
				return err
			}
			return runWindow(cmd, v, window)
		},
	}
	rootCmd.PersistentFlags().String("config", "", "config file (default ./herdview.toml)")
	addSourceFlags(rootCmd.Flags())

	rootCmd.AddCommand(
		newTermCmd(v),
		newRelayCmd(v),
		newRecordCmd(v),
		newConfigCmd(v),
	)
	return rootCmd
}

// loadConfig binds the executing command's flags and applies file,
// environment and flag values to the config globals. Binding happens here
// rather than at construction because several commands share viper keys.
func loadConfig(cmd *cobra.Command, v *viper.Viper, bindings []binding) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	for _, b := range bindings {
		if err := v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", b.flag, err)
		}
	}
	return config.Load(v)
}

// explicitKeys reports whether a key was set by flag, environment or config
// file, as opposed to a built-in default.
func explicitKeys(cmd *cobra.Command, v *viper.Viper, bindings []binding) func(string) bool {
	return func(key string) bool {
		for _, b := range bindings {
			if b.key == key && cmd.Flags().Changed(b.flag) {
				return true
			}
		}
		if _, ok := os.LookupEnv(config.EnvKey(key)); ok {
			return true
		}
		return v.InConfig(key)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runWindow(cmd *cobra.Command, v *viper.Viper, window WindowFunc) error {
	if window == nil {
		return fmt.Errorf("window viewer not available in this build")
	}

	if err := systems.InitPersistence(appName); err == nil {
		saved, _ := systems.LoadSettings()
		systems.ApplySavedSettings(saved, explicitKeys(cmd, v, sourceBindings))
	}

	src, err := openSource()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	inbox := network.NewInbox(0)
	src.OnWorldState(inbox.Push)
	if err := src.Connect(ctx); err != nil {
		return err
	}
	defer src.Disconnect()

	w, h, err := window(ctx, inbox, src.Describe, src.Dropped)
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	if err := systems.SaveSettings(systems.CurrentSettings(w, h)); err != nil {
		log.Printf("[viewer] %v", err)
	}
	return nil
}
