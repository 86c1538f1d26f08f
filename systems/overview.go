package systems

import (
	"fmt"
	"time"

	"github.com/automoto/herdview/archetypes"
	"github.com/automoto/herdview/components"
	"github.com/automoto/herdview/network"
	"github.com/yohamta/donburi"
)

// OverviewOf returns the overview singleton, creating it if needed.
func OverviewOf(w donburi.World) *components.OverviewData {
	entry, ok := components.Overview.First(w)
	if !ok {
		entry = archetypes.Overview.Spawn(w)
	}
	return components.Overview.Get(entry)
}

// UpdateOverview copies interpolator and arrival statistics into the overview.
func UpdateOverview(w donburi.World, in *network.Interpolator, history *network.ArrivalHistory, now time.Time) {
	ov := OverviewOf(w)
	ov.Latest = in.LatestWorld()
	ov.Cadence = in.Cadence()
	ov.Tracked = in.Len()

	stats := in.Stats()
	ov.Accepted = stats.Accepted
	ov.Rejected = stats.Rejected

	if history != nil {
		ov.MeanGap, ov.MaxGap = history.Gaps()
		ov.Stale = history.SinceLast(now)
	}
}

// HUDLines returns the selected agent panel: a title line followed by its
// state, position and stats from the latest snapshot. It returns nil and
// clears the selection when the selected id is not in the snapshot.
func HUDLines(w donburi.World) []string {
	id, ok := Selected(w)
	if !ok {
		return nil
	}
	ov := OverviewOf(w)
	e := ov.Latest.EntityByID(id)
	if e == nil {
		if ov.Latest != nil {
			ClearSelection(w)
		}
		return nil
	}
	return []string{
		fmt.Sprintf("%s #%d", e.Type, e.ID),
		fmt.Sprintf("State:     %s", e.State),
		fmt.Sprintf("Pos:       (%.1f, %.1f)", e.Position.X, e.Position.Y),
		fmt.Sprintf("Hunger:    %d", e.Stats.Hunger),
		fmt.Sprintf("Thirst:    %d", e.Stats.Thirst),
		fmt.Sprintf("Tiredness: %d", e.Stats.Tiredness),
	}
}

// StatusLine summarises the feed for the bottom bar.
func StatusLine(w donburi.World) string {
	ov := OverviewOf(w)
	return fmt.Sprintf("%s | agents %d | cadence %s | gap avg %s max %s | stale %s | ok %d rej %d drop %d",
		ov.Source, ov.Tracked,
		ov.Cadence.Round(time.Millisecond),
		ov.MeanGap.Round(time.Millisecond), ov.MaxGap.Round(time.Millisecond),
		ov.Stale.Round(100*time.Millisecond),
		ov.Accepted, ov.Rejected, ov.Dropped)
}
