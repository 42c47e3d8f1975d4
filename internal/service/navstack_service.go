package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
)

type navSession struct {
	path     dto.NodePath
	lastSeen time.Time
}

// NavStackService keeps one navigation path per session, in memory only.
// State is reconstructed from scratch after a restart; sessions idle past
// the configured window are dropped.
type NavStackService struct {
	mu       sync.Mutex
	sessions map[string]*navSession
	idle     time.Duration
	logger   *zap.Logger
}

// NewNavStackService constructs the registry.
func NewNavStackService(idle time.Duration, logger *zap.Logger) *NavStackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &NavStackService{
		sessions: map[string]*navSession{},
		idle:     idle,
		logger:   logger,
	}
}

// Current returns a copy of the session's path. A missing or expired
// session yields the empty root path.
func (s *NavStackService) Current(sessionID string) dto.NodePath {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(sessionID)
	return clonePath(sess.path)
}

// Push appends one selector and returns the new path.
func (s *NavStackService) Push(sessionID string, ref dto.NodeRef) dto.NodePath {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(sessionID)
	sess.path = append(sess.path, ref)
	return clonePath(sess.path)
}

// Pop removes the tail selector and returns the new path. Popping an empty
// path stays at root.
func (s *NavStackService) Pop(sessionID string) dto.NodePath {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(sessionID)
	if len(sess.path) > 0 {
		sess.path = sess.path[:len(sess.path)-1]
	}
	return clonePath(sess.path)
}

// Reset clears the session back to root.
func (s *NavStackService) Reset(sessionID string) dto.NodePath {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(sessionID)
	sess.path = nil
	return dto.NodePath{}
}

// Sweep drops sessions idle past the window. Called from the maintenance
// ticker in main.
func (s *NavStackService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.idle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("swept idle navigation sessions", zap.Int("removed", removed))
	}
	return removed
}

// touch returns the live session, recreating it when missing or expired.
// Callers must hold the mutex.
func (s *NavStackService) touch(sessionID string) *navSession {
	now := time.Now()
	sess, ok := s.sessions[sessionID]
	if !ok || now.Sub(sess.lastSeen) > s.idle {
		sess = &navSession{}
		s.sessions[sessionID] = sess
	}
	sess.lastSeen = now
	return sess
}

func clonePath(p dto.NodePath) dto.NodePath {
	out := make(dto.NodePath, len(p))
	copy(out, p)
	return out
}
