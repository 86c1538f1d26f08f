package network

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/automoto/herdview/shared/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLog = `{"id":1,"width":10,"height":10,"entities":[{"id":1,"type":"goat","position":{"x":0,"y":0}}]}

{"id":2,"width":10,"height":10,"entities":[{"id":1,"type":"goat","position":{"x":1,"y":0}}]}
this line is garbage
{"id":3,"width":10,"height":10,"entities":[]}` + "\r\n"

func TestNewReplaySkipsMalformedLines(t *testing.T) {
	r, err := NewReplay(strings.NewReader(sampleLog), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 1, r.Skipped())
}

func TestNewReplaySkipsNonSnapshotLines(t *testing.T) {
	log := `{"id":1,"entities":[{"id":1,"position":{"x":0,"y":0}},{"id":1,"position":{"x":1,"y":1}}]}
null
{"type":"ping"}
{"id":2,"entities":[{"id":1,"position":{"x":1,"y":0}}]}
`
	r, err := NewReplay(strings.NewReader(log), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.Skipped())
	assert.Equal(t, 1, r.Culled())

	for i := 0; i < 4; i++ {
		s := r.Next()
		require.NotNil(t, s.Entities, "replay never emits an empty world")
		assert.Len(t, s.Entities, 1)
	}
}

func TestNewReplayRejectsEmptyLogs(t *testing.T) {
	for name, input := range map[string]string{
		"empty":     "",
		"blank":     "\n\n  \n",
		"all-bad":   "nope\n{broken\n",
		"keepalive": "null\n{\"type\":\"ping\"}\n",
		"only-null": "   ",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewReplay(strings.NewReader(input), time.Second)
			assert.ErrorIs(t, err, ErrNoEvents)
		})
	}
}

func TestNewReplayRejectsBadInterval(t *testing.T) {
	_, err := NewReplay(strings.NewReader(sampleLog), 0)
	assert.Error(t, err)
}

func TestNewReplayFromFileMissing(t *testing.T) {
	_, err := NewReplayFromFile(filepath.Join(t.TempDir(), "nope.log"), time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoEvents))
}

func TestReplayLoopsWithFreshSequenceNumbers(t *testing.T) {
	r, err := NewReplay(strings.NewReader(sampleLog), time.Second)
	require.NoError(t, err)

	var ids []int
	var seqs []uint64
	for i := 0; i < 7; i++ {
		s := r.Next()
		ids = append(ids, s.ID)
		seqs = append(seqs, s.Seq)
	}
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3, 1}, ids)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, seqs)
	assert.Zero(t, r.events[0].Seq, "loaded events are not mutated")
}

func TestReplayDeliversOnInterval(t *testing.T) {
	r, err := NewReplay(strings.NewReader(sampleLog), 5*time.Millisecond)
	require.NoError(t, err)
	got := collect(r)

	require.NoError(t, r.Connect(context.Background()))
	require.NoError(t, r.Connect(context.Background()), "second connect is a no-op")
	assert.True(t, r.Running())

	var ids []int
	for len(ids) < 4 {
		select {
		case s := <-got:
			ids = append(ids, s.ID)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %v", ids)
		}
	}
	r.Disconnect()
	assert.False(t, r.Running())
	assert.Equal(t, []int{1, 2, 3, 1}, ids[:4])

	// Nothing is delivered once Disconnect has returned.
	for len(got) > 0 {
		<-got
	}
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, got)
}

func TestReplayResumesAfterReconnect(t *testing.T) {
	r, err := NewReplay(strings.NewReader(sampleLog), 5*time.Millisecond)
	require.NoError(t, err)

	var last *world.State
	got := collect(r)
	require.NoError(t, r.Connect(context.Background()))
	last = <-got
	r.Disconnect()
	for len(got) > 0 {
		last = <-got
	}

	require.NoError(t, r.Connect(context.Background()))
	t.Cleanup(r.Disconnect)
	next := <-got
	assert.Equal(t, last.Seq+1, next.Seq)
}

func TestReplayStopsWithContext(t *testing.T) {
	r, err := NewReplay(strings.NewReader(sampleLog), 5*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Connect(ctx))
	cancel()
	require.Eventually(t, func() bool { return !r.Running() }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, r.Connect(context.Background()), "a cancelled loop can be restarted")
	assert.True(t, r.Running())
	r.Disconnect()
}
