package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
)

const activeSetKey = "sessions:active"

// Manager tracks live fight sessions. When a cache is configured the
// active-session set is mirrored there so other processes can see
// presence.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*FightSession
	cache    cache.Cache
	logger   *zap.Logger
}

func NewManager(c cache.Cache, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*FightSession),
		cache:    c,
		logger:   logger,
	}
}

// Register adds a session, displacing any existing one with the same ID.
func (m *Manager) Register(ctx context.Context, s *FightSession) {
	m.mu.Lock()
	old, ok := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if ok {
		m.logger.Info("displacing existing session", zap.String("session_id", s.ID))
		old.Close()
	}
	if m.cache != nil {
		if err := m.cache.SAdd(ctx, activeSetKey, s.ID); err != nil {
			m.logger.Warn("cache session presence add failed",
				zap.String("session_id", s.ID), zap.Error(err))
		}
	}
	m.logger.Info("session registered",
		zap.String("session_id", s.ID),
		zap.String("archetype", s.Archetype))
}

func (m *Manager) Get(id string) (*FightSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session from the registry and closes it. The caller
// is responsible for finalizing first if the match record matters.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	if m.cache != nil {
		if err := m.cache.SRem(ctx, activeSetKey, id); err != nil {
			m.logger.Warn("cache session presence remove failed",
				zap.String("session_id", id), zap.Error(err))
		}
	}
	m.logger.Info("session removed", zap.String("session_id", id))
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) All() []*FightSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*FightSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// SweepIdle removes sessions without a tick for longer than maxIdle
// and returns them so the caller can finalize each as abandoned.
func (m *Manager) SweepIdle(ctx context.Context, maxIdle time.Duration) []*FightSession {
	m.mu.Lock()
	var stale []*FightSession
	for id, s := range m.sessions {
		if s.IdleFor() > maxIdle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		if m.cache != nil {
			if err := m.cache.SRem(ctx, activeSetKey, s.ID); err != nil {
				m.logger.Warn("cache session presence remove failed",
					zap.String("session_id", s.ID), zap.Error(err))
			}
		}
		m.logger.Info("idle session swept",
			zap.String("session_id", s.ID),
			zap.Duration("idle", s.IdleFor()))
	}
	return stale
}

// CloseAll shuts every session down, for server shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	all := make([]*FightSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*FightSession)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		if m.cache != nil {
			_ = m.cache.SRem(ctx, activeSetKey, s.ID)
		}
	}
	m.logger.Info("all sessions closed", zap.Int("count", len(all)))
}
