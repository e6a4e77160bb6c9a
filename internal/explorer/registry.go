package explorer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks live sessions by ID and expires the ones nobody has
// touched for a while.
type Registry struct {
	deps     Deps
	log      *slog.Logger
	sessions sync.Map // id -> *Session
}

// NewRegistry creates an empty Registry that builds sessions with deps.
func NewRegistry(deps Deps) *Registry {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Registry{deps: deps, log: log.With("component", "explorer")}
}

// Create registers a fresh session and returns it.
func (r *Registry) Create() *Session {
	s := NewSession(uuid.NewString(), r.deps)
	r.sessions.Store(s.ID, s)
	r.log.Info("session created", "session", s.ID)
	return s
}

// Get returns the session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Delete drops a session. Deleting an unknown ID is a no-op.
func (r *Registry) Delete(id string) {
	r.sessions.Delete(id)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	r.sessions.Range(func(key, value any) bool {
		if value.(*Session).LastUsed().Before(cutoff) {
			r.sessions.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		r.log.Info("expired idle sessions", "count", removed)
	}
	return removed
}

// Run sweeps on an interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxIdle)
		}
	}
}
