package network

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/shared/world"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func ent(id int, x, y, dx, dy float64) world.Entity {
	return world.Entity{
		ID:        id,
		Type:      world.EntityTypeGoat,
		State:     world.EntityStateMoving,
		Position:  world.Vector2D{X: x, Y: y},
		Direction: world.Vector2D{X: dx, Y: dy},
	}
}

func snap(entities ...world.Entity) *world.State {
	return &world.State{ID: 1, Width: 30, Height: 30, Entities: entities}
}

func newTestInterpolator() *Interpolator {
	config.Reset()
	return NewInterpolator(config.Interp)
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func assertVec(t *testing.T, want, got r2.Vec, msg string) {
	t.Helper()
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("%s (-want +got):\n%s", msg, diff)
	}
}

func poseByID(t *testing.T, poses []Pose, id int) Pose {
	t.Helper()
	for _, p := range poses {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("no pose for id %d", id)
	return Pose{}
}

func TestFirstSightingSnapsToAuthoritativePosition(t *testing.T) {
	in := newTestInterpolator()
	require.True(t, in.UpdateAt(snap(ent(1, 4, 5, 1, 0)), at(0)))

	track, ok := in.Track(1)
	require.True(t, ok)
	assertVec(t, r2.Vec{}, track.Velocity, "seeded velocity")
	assertVec(t, r2.Vec{X: 4, Y: 5}, track.DisplayPos, "display")
	assertVec(t, r2.Vec{X: 4, Y: 5}, track.CorrectionStartPos, "correction start")
	assert.Equal(t, 120*time.Millisecond, track.CorrectionDuration)
	assert.Equal(t, at(0), track.CorrectionStart)

	for _, ms := range []int{0, 50, 1000, 5000} {
		pose := poseByID(t, in.Interpolated(at(ms)), 1)
		assertVec(t, r2.Vec{X: 4, Y: 5}, pose.Position, "seeded entity does not move")
		assertVec(t, r2.Vec{X: 1, Y: 0}, pose.Direction, "facing falls back to reported direction")
	}
}

func TestVelocityIsDisplacementOverElapsed(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 2, 1, 1, 0)), at(500))

	track, ok := in.Track(1)
	require.True(t, ok)
	assertVec(t, r2.Vec{X: 4, Y: 2}, track.Velocity, "velocity")
	assertVec(t, r2.Vec{X: 2, Y: 1}, track.AuthPos, "auth pos")
}

func TestStationaryEntityDriftsAlongFacing(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 3, 3, 0, 2)), at(0))
	in.UpdateAt(snap(ent(1, 3, 3, 0, 2)), at(1000))

	track, _ := in.Track(1)
	assertVec(t, r2.Vec{X: 0, Y: 1}, track.Velocity, "fallback velocity is unit facing times fallback speed")

	// Past the correction window the pose is pure dead reckoning.
	pose := poseByID(t, in.Interpolated(at(2000)), 1)
	assertVec(t, r2.Vec{X: 3, Y: 4}, pose.Position, "drift")
	assertVec(t, r2.Vec{X: 0, Y: 1}, pose.Direction, "facing")
}

func TestStationaryEntityWithoutFacingStaysPut(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 3, 3, 0, 0)), at(0))
	in.UpdateAt(snap(ent(1, 3, 3, 0, 0)), at(1000))

	track, _ := in.Track(1)
	assertVec(t, r2.Vec{}, track.Velocity, "velocity")

	pose := poseByID(t, in.Interpolated(at(1800)), 1)
	assertVec(t, r2.Vec{X: 3, Y: 3}, pose.Position, "position")
	assertVec(t, r2.Vec{}, pose.Direction, "raw zero direction")
}

func TestFallbackSpeedIsConfigurable(t *testing.T) {
	config.Reset()
	cfg := config.Interp
	cfg.FallbackSpeed = 2.5
	in := NewInterpolator(cfg)

	in.UpdateAt(snap(ent(1, 0, 0, 3, 4)), at(0))
	in.UpdateAt(snap(ent(1, 0, 0, 3, 4)), at(1000))

	track, _ := in.Track(1)
	assertVec(t, r2.Vec{X: 1.5, Y: 2}, track.Velocity, "velocity")
}

func TestBlendStartsAtCorrectionStartPosition(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))
	// Snapshot three lands off the extrapolated path.
	in.UpdateAt(snap(ent(1, 1.5, 0.5, 1, 0)), at(2000))

	track, _ := in.Track(1)
	pose := poseByID(t, in.Interpolated(track.CorrectionStart), 1)
	assertVec(t, track.CorrectionStartPos, pose.Position, "blend t=0")
	assertVec(t, r2.Vec{X: 2, Y: 0}, pose.Position, "where the viewer last saw it")
}

func TestBlendEndsAtDeadReckonedTarget(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))
	in.UpdateAt(snap(ent(1, 1.5, 0.5, 1, 0)), at(2000))

	track, _ := in.Track(1)
	end := track.CorrectionStart.Add(track.CorrectionDuration)
	pose := poseByID(t, in.Interpolated(end), 1)

	want := r2.Add(track.AuthPos, r2.Scale(track.CorrectionDuration.Seconds(), track.Velocity))
	assertVec(t, want, pose.Position, "blend t=1")
}

func TestBlendMidWindowIsLinear(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))

	// Window is 300ms; 150ms in, target is (1.15, 0) and the blend is half way
	// from the pre-update display position (0, 0).
	pose := poseByID(t, in.Interpolated(at(1150)), 1)
	assertVec(t, r2.Vec{X: 0.575, Y: 0}, pose.Position, "mid-window")
}

func TestQueryBeforeCorrectionStartClampsToStart(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))

	pose := poseByID(t, in.Interpolated(at(900)), 1)
	assertVec(t, r2.Vec{X: 0, Y: 0}, pose.Position, "negative elapsed clamps to zero")
}

func TestDeadReckoningHorizonIsCapped(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 2, 0, 1, 0)), at(1000))

	capped := poseByID(t, in.Interpolated(at(1000+1500)), 1)
	assertVec(t, r2.Vec{X: 5, Y: 0}, capped.Position, "at horizon")

	for _, ms := range []int{3000, 10000, 600000} {
		pose := poseByID(t, in.Interpolated(at(ms)), 1)
		assertVec(t, r2.Vec{X: 5, Y: 0}, pose.Position, "frozen past horizon")
	}
}

func TestTwoSnapshotScenario(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))

	track, _ := in.Track(1)
	assertVec(t, r2.Vec{X: 1, Y: 0}, track.Velocity, "velocity")
	assert.Equal(t, 300*time.Millisecond, track.CorrectionDuration)

	// The first sighting carried no velocity, so the blend starts where the
	// entity was displayed: its seeded position.
	pose := poseByID(t, in.Interpolated(at(1000)), 1)
	assertVec(t, r2.Vec{X: 0, Y: 0}, pose.Position, "t=1000")

	pose = poseByID(t, in.Interpolated(at(1500)), 1)
	assertVec(t, r2.Vec{X: 1.5, Y: 0}, pose.Position, "t=1500")
	assertVec(t, r2.Vec{X: 1, Y: 0}, pose.Direction, "facing from velocity")
}

func TestSteadyMotionHasNoDiscontinuity(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))

	before := poseByID(t, in.Interpolated(at(2000)), 1)
	in.UpdateAt(snap(ent(1, 2, 0, 1, 0)), at(2000))
	after := poseByID(t, in.Interpolated(at(2000)), 1)

	assertVec(t, r2.Vec{X: 2, Y: 0}, before.Position, "extrapolated")
	assertVec(t, before.Position, after.Position, "no jump on snapshot")

	pose := poseByID(t, in.Interpolated(at(2500)), 1)
	assertVec(t, r2.Vec{X: 2.5, Y: 0}, pose.Position, "t=2500")
}

func TestRemovedEntityDisappears(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0), ent(2, 5, 5, 0, 1)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0), ent(2, 5, 6, 0, 1)), at(1000))
	in.UpdateAt(snap(ent(2, 5, 6, 0, 1)), at(1000))

	poses := in.Interpolated(at(1200))
	require.Len(t, poses, 1)
	assert.Equal(t, 2, poses[0].ID)
	_, ok := in.Track(1)
	assert.False(t, ok)
	assert.Equal(t, 1, in.Len())

	in.UpdateAt(snap(), at(1500))
	assert.Empty(t, in.Interpolated(at(1600)))
}

func TestReappearingEntityIsSeededAgain(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))
	in.UpdateAt(snap(), at(2000))
	in.UpdateAt(snap(ent(1, 9, 9, 1, 0)), at(3000))

	track, ok := in.Track(1)
	require.True(t, ok)
	assertVec(t, r2.Vec{}, track.Velocity, "fresh track has no velocity")
	pose := poseByID(t, in.Interpolated(at(3000)), 1)
	assertVec(t, r2.Vec{X: 9, Y: 9}, pose.Position, "snaps, no blend from old track")
}

func TestLabelsFollowLatestSnapshot(t *testing.T) {
	in := newTestInterpolator()
	first := ent(1, 0, 0, 1, 0)
	in.UpdateAt(snap(first), at(0))

	second := ent(1, 1, 0, 0, 1)
	second.Type = world.EntityTypeWolf
	second.State = world.EntityStateEating
	in.UpdateAt(snap(second), at(1000))

	pose := poseByID(t, in.Interpolated(at(1100)), 1)
	assert.Equal(t, "wolf", pose.Type)
	assert.Equal(t, "eating", pose.State)
	track, _ := in.Track(1)
	assertVec(t, r2.Vec{X: 0, Y: 1}, track.Direction, "direction")
}

func TestCadenceConvergesMonotonically(t *testing.T) {
	for _, gap := range []int{100, 250, 400, 1000, 1600, 2000} {
		in := newTestInterpolator()
		ms := 0
		in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(ms))

		prevDist := absDuration(in.Cadence() - time.Duration(gap)*time.Millisecond)
		for i := 0; i < 40; i++ {
			ms += gap
			in.UpdateAt(snap(ent(1, float64(i), 0, 1, 0)), at(ms))
			dist := absDuration(in.Cadence() - time.Duration(gap)*time.Millisecond)
			assert.LessOrEqual(t, dist, prevDist, "gap %dms step %d", gap, i)
			prevDist = dist
		}
		assert.InDelta(t, float64(gap), float64(in.Cadence())/float64(time.Millisecond), 1, "gap %dms", gap)
	}
}

func TestCadenceSampleIsClampedBeforeBlending(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(), at(0))
	in.UpdateAt(snap(), at(10000))
	assert.Equal(t, 1250*time.Millisecond, in.Cadence(), "10s gap counts as 2s")

	in = newTestInterpolator()
	in.UpdateAt(snap(), at(0))
	in.UpdateAt(snap(), at(10))
	assert.Equal(t, 775*time.Millisecond, in.Cadence(), "10ms gap counts as 100ms")
}

func TestFirstSnapshotLeavesCadenceAlone(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(), at(123456))
	assert.Equal(t, time.Second, in.Cadence())
}

func TestCorrectionDurationFollowsCadence(t *testing.T) {
	in := newTestInterpolator()
	ms := 0
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(ms))
	for i := 1; i <= 30; i++ {
		ms += 100
		in.UpdateAt(snap(ent(1, float64(i)*0.1, 0, 1, 0)), at(ms))
		track, _ := in.Track(1)
		assert.GreaterOrEqual(t, track.CorrectionDuration, 120*time.Millisecond)
		assert.LessOrEqual(t, track.CorrectionDuration, 300*time.Millisecond)
	}
	track, _ := in.Track(1)
	assert.Equal(t, 120*time.Millisecond, track.CorrectionDuration, "fast cadence floors at the minimum")

	in = newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(800))
	track, _ = in.Track(1)
	// cadence 1000 + 0.25*(800-1000) = 950; 950*0.35 = 332.5 -> capped at 300.
	assert.Equal(t, 950*time.Millisecond, in.Cadence())
	assert.Equal(t, 300*time.Millisecond, track.CorrectionDuration)
}

func TestSimultaneousSnapshotsUseElapsedFloor(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 0.001, 0, 1, 0)), at(0))

	track, _ := in.Track(1)
	assertVec(t, r2.Vec{X: 1, Y: 0}, track.Velocity, "0.001 units over the 1ms floor")
	assert.False(t, math.IsNaN(track.Velocity.X) || math.IsNaN(track.Velocity.Y))
}

func TestDisplayPosIsCachedByQueries(t *testing.T) {
	in := newTestInterpolator()
	in.UpdateAt(snap(ent(1, 0, 0, 1, 0)), at(0))
	in.UpdateAt(snap(ent(1, 1, 0, 1, 0)), at(1000))

	pose := poseByID(t, in.Interpolated(at(1700)), 1)
	track, _ := in.Track(1)
	assertVec(t, pose.Position, track.DisplayPos, "display pos follows last query")
}

func TestSequenceGateRejectsStaleSnapshots(t *testing.T) {
	in := newTestInterpolator()

	first := snap(ent(1, 0, 0, 1, 0))
	first.Seq = 5
	require.True(t, in.UpdateAt(first, at(0)))

	stale := snap(ent(1, 100, 100, 1, 0))
	stale.Seq = 4
	assert.False(t, in.UpdateAt(stale, at(500)))

	dup := snap(ent(1, 100, 100, 1, 0))
	dup.Seq = 5
	assert.False(t, in.UpdateAt(dup, at(600)))

	assert.Same(t, first, in.LatestWorld())
	assert.Equal(t, time.Second, in.Cadence(), "rejected snapshots do not feed the cadence estimate")
	track, _ := in.Track(1)
	assertVec(t, r2.Vec{}, track.AuthPos, "rejected snapshots do not move tracks")

	next := snap(ent(1, 1, 0, 1, 0))
	next.Seq = 6
	require.True(t, in.UpdateAt(next, at(1000)))
	track, _ = in.Track(1)
	assertVec(t, r2.Vec{X: 1, Y: 0}, track.Velocity, "velocity measured against last accepted")

	assert.Equal(t, InterpStats{Accepted: 2, Rejected: 2}, in.Stats())
}

func TestUnsequencedSnapshotsAreNeverGated(t *testing.T) {
	in := newTestInterpolator()
	seqd := snap()
	seqd.Seq = 10
	require.True(t, in.UpdateAt(seqd, at(0)))
	assert.True(t, in.UpdateAt(snap(), at(100)))
	assert.True(t, in.UpdateAt(snap(), at(200)))

	later := snap()
	later.Seq = 9
	assert.False(t, in.UpdateAt(later, at(300)), "gate still remembers seq 10")
}

func TestLatestWorld(t *testing.T) {
	in := newTestInterpolator()
	assert.Nil(t, in.LatestWorld())
	assert.False(t, in.UpdateAt(nil, at(0)))
	assert.Nil(t, in.LatestWorld())

	s := snap(ent(1, 0, 0, 0, 0))
	in.UpdateAt(s, at(0))
	assert.Same(t, s, in.LatestWorld())
}

func TestUpdateUsesWallClock(t *testing.T) {
	in := newTestInterpolator()
	fixed := at(42)
	in.now = func() time.Time { return fixed }

	in.Update(snap(ent(1, 0, 0, 0, 0)))
	track, _ := in.Track(1)
	assert.Equal(t, fixed, track.CorrectionStart)
}

func TestConcurrentUpdateAndQuery(t *testing.T) {
	in := newTestInterpolator()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			in.UpdateAt(snap(ent(1, float64(i), 0, 1, 0), ent(i%5+2, 0, 0, 0, 1)), at(i*10))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = in.Interpolated(at(i * 10))
		}
	}()
	wg.Wait()
	assert.Equal(t, 2, in.Len())
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
