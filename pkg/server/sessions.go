package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Fepozopo/promptcanvas/pkg/logging"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

var ErrSessionNotFound = errors.New("session not found")

type session struct {
	studio   *studio.Studio
	lastUsed time.Time
}

// Sessions maps session ids to their studios. Sessions idle for longer than
// the TTL are closed by Sweep; a zero TTL keeps them until deleted.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*session
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{items: make(map[string]*session), ttl: ttl, now: time.Now}
}

// Add stores s under a fresh id.
func (m *Sessions) Add(s *studio.Studio) string {
	id := uuid.New().String()
	m.mu.Lock()
	m.items[id] = &session{studio: s, lastUsed: m.now()}
	m.mu.Unlock()
	return id
}

// Get returns the studio for id and marks the session as used.
func (m *Sessions) Get(id string) (*studio.Studio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastUsed = m.now()
	return s.studio, nil
}

// Delete removes a session and closes it once its running operation, if
// any, has finished.
func (m *Sessions) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.items[id]
	delete(m.items, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return s.studio.Close()
}

func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// it removed. Busy sessions count as used.
func (m *Sessions) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	var expired []*studio.Studio
	m.mu.Lock()
	for id, s := range m.items {
		if s.studio.Busy() {
			s.lastUsed = now
			continue
		}
		if now.Sub(s.lastUsed) > m.ttl {
			expired = append(expired, s.studio)
			delete(m.items, id)
		}
	}
	m.mu.Unlock()

	for _, st := range expired {
		_ = st.Close()
	}
	if len(expired) > 0 {
		logging.Logger.Info("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Janitor sweeps every interval until ctx is done.
func (m *Sessions) Janitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CloseAll removes and closes every session.
func (m *Sessions) CloseAll() {
	m.mu.Lock()
	items := m.items
	m.items = make(map[string]*session)
	m.mu.Unlock()
	for _, s := range items {
		_ = s.studio.Close()
	}
}
