package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/automoto/herdview/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfigFile = "herdview.toml"

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
	}
	cmd.AddCommand(newConfigInitCmd(v))
	return cmd
}

func newConfigInitCmd(v *viper.Viper) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective settings as TOML (\"-\" for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, v, nil); err != nil {
				return err
			}

			path := defaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "-" {
				return config.WriteDefaults(cmd.OutOrStdout(), v)
			}

			flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			if !force {
				flags |= os.O_EXCL
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if errors.Is(err, os.ErrExist) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err != nil {
				return fmt.Errorf("create config: %w", err)
			}
			if err := writeAndClose(f, v); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func writeAndClose(f io.WriteCloser, v *viper.Viper) error {
	if err := config.WriteDefaults(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
