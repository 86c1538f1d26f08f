package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session describes a connected viewer.
type Session struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	Connected time.Time `json:"connected"`
	Sent      uint64    `json:"sent"`
}

// Registry is an in-memory store of connected viewer sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add records a new session for remote and returns its id.
func (r *Registry) Add(remote string) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = &Session{
		ID:        id,
		Remote:    remote,
		Connected: time.Now(),
	}
	r.mu.Unlock()

	return id
}

// MarkSent counts one delivered frame for id.
func (r *Registry) MarkSent(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Sent++
	}
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// List returns a copy of every session, oldest first.
func (r *Registry) List() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Connected.Equal(result[j].Connected) {
			return result[i].ID < result[j].ID
		}
		return result[i].Connected.Before(result[j].Connected)
	})
	return result
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
