package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ai-script-editor-service/internal/observability/logging"
)

// LoadTimeout bounds a shared load once it no longer follows the
// cancellation of the caller that started it.
const LoadTimeout = 30 * time.Second

// Manager maps script ids to open sessions.
type Manager struct {
	cfg  Config
	deps Deps

	mu       sync.Mutex
	sessions map[int64]*Session
	opening  singleflight.Group
}

// NewManager creates a session manager sharing deps across sessions.
func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[int64]*Session),
	}
}

// Open returns the session for id, loading it from the store on first use.
// Concurrent opens of the same id share one load, which is detached from the
// first caller's cancellation. Each caller stops waiting when its ctx is done.
func (m *Manager) Open(ctx context.Context, id int64) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}
	ch := m.opening.DoChan(itoa(id), func() (any, error) {
		if s, ok := m.Get(id); ok {
			return s, nil
		}
		s := New(id, m.cfg, m.deps)
		if m.deps.Store != nil {
			lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
			defer cancel()
			if err := s.Load(lctx); err != nil {
				s.Close()
				return nil, err
			}
		}
		m.mu.Lock()
		m.sessions[id] = s
		m.mu.Unlock()
		s.metrics.RecordSessionOpen()
		l := logging.WithScript(itoa(id))
		l.Info().Msg("Session opened")
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

// Get returns an already open session.
func (m *Manager) Get(id int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close closes and forgets the session for id.
func (m *Manager) Close(id int64) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	s.metrics.RecordSessionClose()
	l := logging.WithScript(itoa(id))
	l.Info().Msg("Session closed")
	return true
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Close(id)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
