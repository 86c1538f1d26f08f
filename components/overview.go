package components

import (
	"time"

	"github.com/automoto/herdview/shared/world"
	"github.com/yohamta/donburi"
)

// OverviewData is the per-tick summary the HUD and terrain renderer read.
type OverviewData struct {
	Latest  *world.State // most recent accepted snapshot, nil before the first
	Source  string       // source kind and state, e.g. "ws connected"
	Cadence time.Duration
	MeanGap time.Duration
	MaxGap  time.Duration
	Stale   time.Duration // since the last arrival
	Tracked int

	Accepted uint64
	Rejected uint64
	Dropped  uint64
}

var Overview = donburi.NewComponentType[OverviewData]()
