package network

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/automoto/herdview/shared/world"
)

// Replay delivers a recorded sequence of snapshots on a fixed period, looping
// forever. Each delivery is stamped with the next sequence number so repeated
// loops are never mistaken for stale data.
type Replay struct {
	dispatcher

	interval time.Duration
	events   []*world.State
	skipped  int
	culled   int

	mu     sync.Mutex
	index  int
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReplay parses line-delimited JSON snapshots from r. Lines that fail to
// parse are skipped; ErrNoEvents is returned when none remain.
func NewReplay(r io.Reader, interval time.Duration) (*Replay, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("replay interval must be positive, got %s", interval)
	}
	events, skipped, err := world.ParseLog(r)
	if err != nil && len(events) == 0 {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w (%d lines skipped)", ErrNoEvents, skipped)
	}
	if err != nil {
		log.Printf("[replay] truncated log: %v", err)
	}
	if skipped > 0 {
		log.Printf("[replay] skipped %d malformed lines", skipped)
	}
	culled := 0
	for _, s := range events {
		culled += s.Sanitized
	}
	if culled > 0 {
		log.Printf("[replay] removed %d malformed entity entries", culled)
	}
	return &Replay{
		interval: interval,
		events:   events,
		skipped:  skipped,
		culled:   culled,
	}, nil
}

// NewReplayFromFile loads a replay log from path.
func NewReplayFromFile(path string, interval time.Duration) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer f.Close()

	r, err := NewReplay(f, interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("[replay] loaded %d snapshots from %s", len(r.events), path)
	return r, nil
}

// Connect starts delivering one snapshot per interval, the first one interval
// from now. It resumes where a previous Disconnect left off and is a no-op
// while already running. The loop stops on Disconnect or when ctx is done.
func (r *Replay) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runningLocked() {
		return nil
	}
	if r.cancel != nil {
		r.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(loopCtx, r.done)
	return nil
}

func (r *Replay) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.emit(r.Next())
		}
	}
}

// Disconnect stops delivery and waits for the loop to exit.
func (r *Replay) Disconnect() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Next returns the next snapshot in the loop stamped with a fresh sequence
// number, and advances the cursor.
func (r *Replay) Next() *world.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.events[r.index]
	r.index = (r.index + 1) % len(r.events)
	r.seq++
	return s.WithSeq(r.seq)
}

// Len returns the number of loaded snapshots.
func (r *Replay) Len() int {
	return len(r.events)
}

// Skipped returns the number of log lines dropped at load time.
func (r *Replay) Skipped() int {
	return r.skipped
}

// Culled returns the number of entity entries removed at load time for
// non-finite coordinates or duplicate ids.
func (r *Replay) Culled() int {
	return r.culled
}

// Running reports whether the delivery loop is active.
func (r *Replay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runningLocked()
}

func (r *Replay) runningLocked() bool {
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
