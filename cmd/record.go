package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const recordPoll = 50 * time.Millisecond

var recordBindings = []binding{
	{"url", "source.url"},
}

func newRecordCmd(v *viper.Viper) *cobra.Command {
	var out string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live stream to a JSONL log for replay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd, v, recordBindings); err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create log: %w", err)
			}
			defer f.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()
			if duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			rec := network.NewRecorder(f)
			client := network.NewClient(config.Source.URL)
			client.OnWorldState(rec.Record)
			if err := client.Connect(ctx); err != nil {
				return err
			}

			waitClient(ctx, client)
			client.Disconnect()

			if err := rec.Flush(); err != nil {
				return err
			}
			if err := client.LastError(); err != nil {
				log.Printf("[record] stream ended: %v", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %d snapshots to %s\n", rec.Count(), out)
			return err
		},
	}
	cmd.Flags().String("url", config.Source.URL, "websocket endpoint to record")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output JSONL file")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 = until the stream ends)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// waitClient blocks until ctx is done or the connection ends.
func waitClient(ctx context.Context, c *network.Client) {
	ticker := time.NewTicker(recordPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Println("[record] interrupted")
			}
			return
		case <-ticker.C:
			if c.State() != network.StateConnected {
				return
			}
		}
	}
}
