package world

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrEmptyPayload is returned by Decode for blank frames.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrNotSnapshot is returned by Decode for valid JSON that carries no
	// entity list, such as null or a keepalive object.
	ErrNotSnapshot = errors.New("not a world snapshot")
)

// maxLineBytes bounds a single JSONL record; large navigation grids can run to
// a few hundred KB.
const maxLineBytes = 8 << 20

// Decode parses one JSON snapshot and drops malformed entity entries,
// recording how many in State.Sanitized. A snapshot must carry an entities
// array, possibly empty; anything else is rejected so it never reads as an
// empty world.
func Decode(data []byte) (*State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Entities == nil {
		return nil, ErrNotSnapshot
	}
	s.Sanitized = Sanitize(&s)
	return &s, nil
}

// Sanitize removes entities with non-finite position or direction and later
// duplicates of an already seen id. It returns the number of entries removed.
func Sanitize(s *State) int {
	if s == nil {
		return 0
	}
	seen := make(map[int]struct{}, len(s.Entities))
	kept := s.Entities[:0]
	dropped := 0
	for _, e := range s.Entities {
		if !finite(e.Position) || !finite(e.Direction) {
			dropped++
			continue
		}
		if _, dup := seen[e.ID]; dup {
			dropped++
			continue
		}
		seen[e.ID] = struct{}{}
		kept = append(kept, e)
	}
	s.Entities = kept
	return dropped
}

func finite(v Vector2D) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// ParseLog reads line-delimited JSON snapshots. Blank lines are ignored and
// lines that fail to parse are skipped; skipped counts them.
func ParseLog(r io.Reader) (states []*State, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s, decodeErr := Decode(line)
		if decodeErr != nil {
			skipped++
			continue
		}
		states = append(states, s)
	}
	if err := scanner.Err(); err != nil {
		return states, skipped, fmt.Errorf("read log: %w", err)
	}
	return states, skipped, nil
}

// Encode renders s as a single JSON line without a trailing newline. A nil
// entity list is written as [] so the line decodes back.
func Encode(s *State) ([]byte, error) {
	if s.Entities == nil {
		cp := *s
		cp.Entities = []Entity{}
		s = &cp
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
