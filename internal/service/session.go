package service

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"docqa/internal/domain"
)

const (
	maxSessions      = 100
	maxHistoryRounds = 20
)

// sessionStore keeps recent conversation turns per session id. The least recently used
// session is evicted once maxSessions are live.
type sessionStore struct {
	mu        sync.Mutex
	cache     *lru.Cache
	maxRounds int
}

func newSessionStore(sessions, rounds int) *sessionStore {
	return &sessionStore{cache: lru.New(sessions), maxRounds: rounds}
}

// History returns a copy of the session's turns, oldest first.
func (s *sessionStore) History(id string) []domain.Message {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	h := v.([]domain.Message)
	out := make([]domain.Message, len(h))
	copy(out, h)
	return out
}

// Append records one question and its answer, dropping the oldest rounds past the limit.
func (s *sessionStore) Append(id, question, answer string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var h []domain.Message
	if v, ok := s.cache.Get(id); ok {
		h = v.([]domain.Message)
	}
	h = append(h,
		domain.Message{Role: domain.RoleUser, Content: question},
		domain.Message{Role: domain.RoleAssistant, Content: answer},
	)
	if limit := 2 * s.maxRounds; len(h) > limit {
		h = append([]domain.Message(nil), h[len(h)-limit:]...)
	}
	s.cache.Add(id, h)
}

// Reset forgets a session.
func (s *sessionStore) Reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(id)
}

func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
