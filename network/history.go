package network

import "time"

const arrivalHistorySize = 64

// ArrivalRecord stores when a snapshot arrived and the gap since the previous one.
type ArrivalRecord struct {
	Seq     uint64
	Arrived time.Time
	Gap     time.Duration
}

// ArrivalHistory is a ring buffer of recent snapshot arrivals used for the
// jitter readout. Not safe for concurrent use; the render loop owns it.
type ArrivalHistory struct {
	history [arrivalHistorySize]ArrivalRecord
	count   uint64
	last    time.Time
}

// Record stores an arrival. The first arrival has a zero gap.
func (h *ArrivalHistory) Record(seq uint64, at time.Time) {
	var gap time.Duration
	if h.count > 0 {
		gap = at.Sub(h.last)
	}
	h.history[h.count%arrivalHistorySize] = ArrivalRecord{
		Seq:     seq,
		Arrived: at,
		Gap:     gap,
	}
	h.count++
	h.last = at
}

// Len returns the number of records held, at most the ring size.
func (h *ArrivalHistory) Len() int {
	if h.count > arrivalHistorySize {
		return arrivalHistorySize
	}
	return int(h.count)
}

// Total returns the number of arrivals ever recorded.
func (h *ArrivalHistory) Total() uint64 {
	return h.count
}

// Recent returns the held records, oldest first.
func (h *ArrivalHistory) Recent() []ArrivalRecord {
	n := h.Len()
	out := make([]ArrivalRecord, 0, n)
	start := h.count - uint64(n)
	for i := start; i < h.count; i++ {
		out = append(out, h.history[i%arrivalHistorySize])
	}
	return out
}

// Gaps returns the mean and maximum inter-arrival gap over the held records.
// The oldest held record is excluded when it carries no gap.
func (h *ArrivalHistory) Gaps() (mean, max time.Duration) {
	var sum time.Duration
	n := 0
	for i, rec := range h.Recent() {
		if i == 0 && h.count <= arrivalHistorySize {
			continue // very first arrival
		}
		sum += rec.Gap
		n++
		if rec.Gap > max {
			max = rec.Gap
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / time.Duration(n), max
}

// SinceLast returns the time since the most recent arrival, or zero if none.
func (h *ArrivalHistory) SinceLast(now time.Time) time.Duration {
	if h.count == 0 {
		return 0
	}
	return now.Sub(h.last)
}
