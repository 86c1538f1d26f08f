package network

import (
	"sync/atomic"
	"time"

	"github.com/automoto/herdview/shared/world"
)

const defaultInboxSize = 64

// Arrival is a snapshot stamped with the time it reached the process.
type Arrival struct {
	State *world.State
	At    time.Time
}

// Inbox hands snapshots from source goroutines to the render loop. Push never
// blocks; when the buffer is full the oldest pending arrival is discarded so
// the render loop always catches up to the newest data. Drain returns pending
// arrivals in delivery order.
type Inbox struct {
	ch      chan Arrival
	now     func() time.Time
	dropped atomic.Uint64
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{
		ch:  make(chan Arrival, size),
		now: time.Now,
	}
}

// Push is a Callback: register it with Source.OnWorldState.
func (ib *Inbox) Push(s *world.State) {
	if s == nil {
		return
	}
	a := Arrival{State: s, At: ib.now()}
	for {
		select {
		case ib.ch <- a:
			return
		default:
		}
		select { // drain oldest, retry
		case <-ib.ch:
			ib.dropped.Add(1)
		default:
		}
	}
}

// Drain returns all pending arrivals, non-blocking.
func (ib *Inbox) Drain() []Arrival {
	return drainChan(ib.ch)
}

// Dropped returns the number of arrivals discarded on overflow.
func (ib *Inbox) Dropped() uint64 {
	return ib.dropped.Load()
}

// Apply drains the inbox into in, oldest first, and records each accepted
// arrival in history when it is non-nil. It returns the number of snapshots
// the interpolator accepted. Call it once per tick before querying poses.
func (ib *Inbox) Apply(in *Interpolator, history *ArrivalHistory) int {
	accepted := 0
	for _, a := range ib.Drain() {
		if !in.UpdateAt(a.State, a.At) {
			continue
		}
		accepted++
		if history != nil {
			history.Record(a.State.Seq, a.At)
		}
	}
	return accepted
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
