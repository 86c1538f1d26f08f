package network

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/automoto/herdview/shared/world"
)

// Recorder appends each snapshot it receives to w as one JSON line, producing
// logs that NewReplay can load. The first write error is kept and later
// snapshots are ignored.
type Recorder struct {
	mu    sync.Mutex
	w     *bufio.Writer
	count int
	err   error
}

func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: bufio.NewWriter(w)}
}

// Record is a Callback.
func (r *Recorder) Record(s *world.State) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}

	data, err := world.Encode(s)
	if err != nil {
		r.err = err
		return
	}
	if _, err := r.w.Write(data); err != nil {
		r.err = fmt.Errorf("write record: %w", err)
		return
	}
	if err := r.w.WriteByte('\n'); err != nil {
		r.err = fmt.Errorf("write record: %w", err)
		return
	}
	r.count++
}

// Flush writes buffered records through and returns the first error seen.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := r.w.Flush(); err != nil {
		r.err = fmt.Errorf("flush records: %w", err)
	}
	return r.err
}

// Count returns the number of snapshots written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
