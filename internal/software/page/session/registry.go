package session

import (
	"context"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"

	"github.com/google/uuid"
)

// DefaultIdleTimeout closes pages that have shown no activity for this long.
const DefaultIdleTimeout = 30 * time.Minute

// DefaultReleaseGrace is how long a page whose socket closed may take to reconnect.
const DefaultReleaseGrace = 10 * time.Second

// Hub is the live channel registry pages are attached to.
type Hub interface {
	Channel(sessionID string) ports.PageChannel
	Connected(sessionID string) bool
	Disconnect(sessionID string)
}

// Registry owns every live page session.
type Registry struct {
	logger *logger.Logger
	hub    Hub
	deps   Deps
	idle   time.Duration
	grace  time.Duration
	now    func() time.Time

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(ctx context.Context, logger *logger.Logger, hub Hub, deps Deps, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	lifetime, cancel := context.WithCancel(ctx)
	return &Registry{
		logger:   logger,
		hub:      hub,
		deps:     deps,
		idle:     idle,
		grace:    DefaultReleaseGrace,
		now:      time.Now,
		lifetime: lifetime,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new page session for one page load of the owner browser.
func (r *Registry) Create(ctx context.Context, owner string) *Session {
	s, _ := r.CreateWithID(ctx, uuid.NewString(), owner)
	return s
}

// CreateWithID returns the live session under id, or opens one owned by owner.
// created reports whether a new session was opened. A live session is never replaced.
func (r *Registry) CreateWithID(ctx context.Context, id, owner string) (s *Session, created bool) {
	r.mu.Lock()
	// checked and stored under one lock so concurrent callers share a session
	if existing, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		existing.Touch()
		return existing, false
	}
	s = New(r.lifetime, id, r.hub.Channel(id), r.deps)
	s.Owner = owner
	r.sessions[id] = s
	total := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info(ctx, "page_session_created", "Page session created", map[string]any{
		"session_id": id,
		"sessions":   total,
	})
	return s, true
}

// Get returns a live session and marks it as seen.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.Touch()
	}
	return s, ok
}

// Remove closes one session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
		r.hub.Disconnect(id)
	}
}

// Release closes a page whose socket went away, unless it reconnects within the grace period.
func (r *Registry) Release(ctx context.Context, id string) {
	time.AfterFunc(r.grace, func() {
		if r.lifetime.Err() != nil || r.hub.Connected(id) {
			return
		}
		if _, ok := r.Get(id); !ok {
			return
		}
		r.Remove(id)
		r.logger.Info(context.WithoutCancel(ctx), "page_session_released", "Closed page session after its socket went away", map[string]any{
			"session_id": id,
		})
	})
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout whose page has no live socket.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) && !r.hub.Connected(id) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.logger.Info(ctx, "page_sessions_swept", "Closed idle page sessions", map[string]any{"closed": len(stale)})
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done or the registry is closed.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.lifetime.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Close tears down every session. Used on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
	r.cancel()

	r.logger.Info(context.Background(), "page_registry_closed", "Page session registry closed", map[string]any{
		"closed": len(sessions),
	})
}
