package network

import (
	"math"
	"sync"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/shared/world"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is the interpolated state of one entity at a query time.
type Pose struct {
	ID        int
	Type      string
	State     string
	Position  r2.Vec
	Direction r2.Vec
}

// Track is the per-entity interpolation record. Every field except ID is
// overwritten on each snapshot that lists the entity.
type Track struct {
	ID        int
	Type      string
	State     string
	Direction r2.Vec // last reported, not normalised
	Velocity  r2.Vec // world units per second

	AuthPos    r2.Vec // latest authoritative position
	DisplayPos r2.Vec // last position handed to a consumer

	CorrectionStartPos r2.Vec
	CorrectionStart    time.Time
	CorrectionDuration time.Duration
}

// InterpStats counts ingestion outcomes.
type InterpStats struct {
	Accepted uint64
	Rejected uint64 // stale or duplicate sequence numbers
}

// Interpolator turns irregular world snapshots into continuous per-entity
// poses by velocity estimation, bounded dead reckoning and a short
// reconciliation blend after each snapshot. It owns the track map; consumers
// only ever see Pose copies.
type Interpolator struct {
	mu  sync.Mutex
	cfg config.InterpConfig
	now func() time.Time

	tracks map[int]*Track
	latest *world.State

	lastSnapshotAt time.Time
	hasSnapshot    bool
	cadence        time.Duration
	lastSeq        uint64

	stats InterpStats
}

// NewInterpolator creates an interpolator with the given tuning. Update
// timestamps come from time.Now.
func NewInterpolator(cfg config.InterpConfig) *Interpolator {
	return &Interpolator{
		cfg:     cfg,
		now:     time.Now,
		tracks:  make(map[int]*Track),
		cadence: cfg.InitialCadence,
	}
}

// Update ingests a snapshot stamped with the current time.
func (in *Interpolator) Update(state *world.State) bool {
	return in.UpdateAt(state, in.now())
}

// UpdateAt ingests a snapshot that arrived at the given time. It returns false
// when the snapshot is rejected for carrying a sequence number that does not
// advance past the last accepted one. Snapshots without a sequence number are
// always accepted.
func (in *Interpolator) UpdateAt(state *world.State, at time.Time) bool {
	if state == nil {
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if state.Seq != 0 && in.lastSeq != 0 && state.Seq <= in.lastSeq {
		in.stats.Rejected++
		return false
	}

	if in.hasSnapshot {
		observed := clampDuration(at.Sub(in.lastSnapshotAt), in.cfg.CadenceMin, in.cfg.CadenceMax)
		in.cadence += time.Duration(in.cfg.CadenceSmoothing * float64(observed-in.cadence))
	}

	live := make(map[int]struct{}, len(state.Entities))
	for _, e := range state.Entities {
		live[e.ID] = struct{}{}
	}
	for id := range in.tracks {
		if _, ok := live[id]; !ok {
			delete(in.tracks, id)
		}
	}

	elapsed := at.Sub(in.lastSnapshotAt)
	if elapsed < in.cfg.MinElapsed {
		elapsed = in.cfg.MinElapsed
	}
	dtSec := elapsed.Seconds()

	for _, e := range state.Entities {
		pos := vec(e.Position)
		dir := vec(e.Direction)

		track, ok := in.tracks[e.ID]
		if !ok {
			// First sighting snaps.
			in.tracks[e.ID] = &Track{
				ID:                 e.ID,
				Type:               string(e.Type),
				State:              string(e.State),
				Direction:          dir,
				AuthPos:            pos,
				DisplayPos:         pos,
				CorrectionStartPos: pos,
				CorrectionStart:    at,
				CorrectionDuration: in.cfg.MinCorrection,
			}
			continue
		}

		current := in.displayPos(track, at)
		track.DisplayPos = current

		velocity := r2.Scale(1/dtSec, r2.Sub(pos, track.AuthPos))
		if r2.Norm(velocity) < in.cfg.SpeedEpsilon {
			velocity = in.intentVelocity(dir)
		}

		track.Type = string(e.Type)
		track.State = string(e.State)
		track.Direction = dir
		track.Velocity = velocity
		track.AuthPos = pos
		track.CorrectionStartPos = current
		track.CorrectionStart = at
		track.CorrectionDuration = clampDuration(
			time.Duration(float64(in.cadence)*in.cfg.CorrectionFraction),
			in.cfg.MinCorrection, in.cfg.MaxCorrection)
	}

	in.latest = state
	in.lastSnapshotAt = at
	in.hasSnapshot = true
	if state.Seq != 0 {
		in.lastSeq = state.Seq
	}
	in.stats.Accepted++
	return true
}

// intentVelocity keeps oriented but idle agents drifting along their facing at
// the fallback speed.
func (in *Interpolator) intentVelocity(dir r2.Vec) r2.Vec {
	length := r2.Norm(dir)
	if length == 0 {
		return r2.Vec{}
	}
	return r2.Scale(in.cfg.FallbackSpeed/length, dir)
}

// Interpolated returns one pose per tracked entity at the given time, in no
// particular order. Each track remembers the position it handed out so the
// next reconciliation starts from what the viewer actually saw.
func (in *Interpolator) Interpolated(now time.Time) []Pose {
	in.mu.Lock()
	defer in.mu.Unlock()

	poses := make([]Pose, 0, len(in.tracks))
	for _, track := range in.tracks {
		pos := in.displayPos(track, now)
		track.DisplayPos = pos

		facing := track.Direction
		if speed := r2.Norm(track.Velocity); speed > in.cfg.SpeedEpsilon {
			facing = r2.Scale(1/speed, track.Velocity)
		}

		poses = append(poses, Pose{
			ID:        track.ID,
			Type:      track.Type,
			State:     track.State,
			Position:  pos,
			Direction: facing,
		})
	}
	return poses
}

// displayPos blends from the reconciliation start toward the dead-reckoned
// target. Once the correction window has passed the result is the target.
func (in *Interpolator) displayPos(track *Track, now time.Time) r2.Vec {
	since := now.Sub(track.CorrectionStart)

	horizon := clampFloat(since.Seconds(), 0, in.cfg.MaxPredict.Seconds())
	target := r2.Add(track.AuthPos, r2.Scale(horizon, track.Velocity))

	t := 1.0
	if track.CorrectionDuration > 0 {
		t = clampFloat(float64(since)/float64(track.CorrectionDuration), 0, 1)
	}
	return lerpVec(track.CorrectionStartPos, target, t)
}

// LatestWorld returns the most recently accepted snapshot, or nil.
func (in *Interpolator) LatestWorld() *world.State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.latest
}

// Cadence returns the current snapshot interval estimate.
func (in *Interpolator) Cadence() time.Duration {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cadence
}

// Track returns a copy of the track for id.
func (in *Interpolator) Track(id int) (Track, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	track, ok := in.tracks[id]
	if !ok {
		return Track{}, false
	}
	return *track, true
}

// Len returns the number of live tracks.
func (in *Interpolator) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.tracks)
}

// Stats returns how many snapshots Update has accepted and how many it
// rejected as stale.
func (in *Interpolator) Stats() InterpStats {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}

func vec(v world.Vector2D) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

func lerpVec(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
