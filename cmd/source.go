package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
)

// source is a configured network.Source with the readouts the viewers show.
// Dropped counts whole frames or log lines plus individual entity entries
// that failed validation.
type source struct {
	network.Source
	describe func() string
	dropped  func() uint64
}

func (s *source) Describe() string { return s.describe() }
func (s *source) Dropped() uint64  { return s.dropped() }

// openSource builds the producer selected by config.Source.
func openSource() (*source, error) {
	switch config.Source.Kind {
	case config.SourceLive:
		c := network.NewClient(config.Source.URL)
		return &source{
			Source: c,
			describe: func() string {
				if err := c.LastError(); err != nil {
					return fmt.Sprintf("ws %s: %v", c.State(), err)
				}
				return fmt.Sprintf("ws %s %s (%d)", config.Source.URL, c.State(), c.Received())
			},
			dropped: func() uint64 { return c.Dropped() + c.Culled() },
		}, nil

	case config.SourceReplay:
		r, err := network.NewReplayFromFile(config.Source.Log, config.Source.Interval)
		if err != nil {
			return nil, err
		}
		name := filepath.Base(config.Source.Log)
		return &source{
			Source: r,
			describe: func() string {
				return fmt.Sprintf("replay %s (%d)", name, r.Len())
			},
			dropped: func() uint64 { return uint64(r.Skipped() + r.Culled()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", config.Source.Kind)
	}
}
