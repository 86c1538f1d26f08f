package network

import (
	"context"
	"errors"
	"sync"

	"github.com/automoto/herdview/shared/world"
)

var (
	// ErrNotConnected is returned when an operation needs a live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrNoEvents is returned when a replay log holds no parsable snapshot.
	ErrNoEvents = errors.New("no events in log")
)

// Callback receives each snapshot a Source delivers. It may be called from the
// source's own goroutine.
type Callback func(*world.State)

// Source produces world snapshots through push callbacks.
type Source interface {
	OnWorldState(cb Callback)
	Connect(ctx context.Context) error
	Disconnect()
}

// dispatcher holds the callbacks registered on a source. Callbacks run in
// registration order.
type dispatcher struct {
	mu        sync.RWMutex
	callbacks []Callback
}

// OnWorldState registers cb for every subsequent snapshot.
func (d *dispatcher) OnWorldState(cb Callback) {
	if cb == nil {
		return
	}
	d.mu.Lock()
	d.callbacks = append(d.callbacks, cb)
	d.mu.Unlock()
}

func (d *dispatcher) emit(s *world.State) {
	d.mu.RLock()
	callbacks := d.callbacks
	d.mu.RUnlock()
	for _, cb := range callbacks {
		cb(s)
	}
}
