package usecase

import (
	"fmt"
	"sync"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
)

// Registry is the in-memory session store. Sessions exist only for the
// process lifetime; there is no persistence across restarts.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	newSession func() *Session
}

// NewRegistry constructs a Registry around a session factory.
func NewRegistry(newSession func() *Session) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		newSession: newSession,
	}
}

// Create starts a new session and registers it.
func (r *Registry) Create() *Session {
	s := r.newSession()
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Count reports how many sessions are held in memory.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
