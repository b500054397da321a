package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/MicroTutor/internal/flow"
	"github.com/BTreeMap/MicroTutor/internal/models"
)

// SessionRegistry holds the live sessions of the process.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	engine   *flow.Engine
	lastSeen time.Time
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(now func() time.Time) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{sessions: make(map[string]*sessionEntry), now: now}
}

// Add registers an engine under its session id.
func (r *SessionRegistry) Add(e *flow.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[e.ID()] = &sessionEntry{engine: e, lastSeen: r.now()}
}

// Get returns the engine for id and marks the session as used.
func (r *SessionRegistry) Get(id string) (*flow.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	entry.lastSeen = r.now()
	return entry.engine, nil
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than ttl. Sessions waiting on a tutor
// reply are kept. It returns the number removed.
func (r *SessionRegistry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, entry := range r.sessions {
		if entry.lastSeen.After(cutoff) {
			continue
		}
		if entry.engine.State().Pending {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		slog.Info("SessionRegistry.Sweep: removed idle sessions", "removed", removed, "remaining", len(r.sessions), "ttl", ttl)
	}
	return removed
}
