package inmemcache

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/harmony/core/session"
)

// RevocationStore keeps revoked token IDs in memory until they expire.
type RevocationStore struct {
	mu      sync.Mutex
	tokens  map[string]time.Time
	nowFunc func() time.Time
}

var _ session.RevocationStore = (*RevocationStore)(nil) // interface compliance check

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{
		tokens:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge()
	s.tokens[tokenID] = until
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.tokens[tokenID]
	if !ok {
		return false, nil
	}
	if !s.nowFunc().Before(until) {
		delete(s.tokens, tokenID)
		return false, nil
	}
	return true, nil
}

// purge drops expired entries. Callers must hold mu.
func (s *RevocationStore) purge() {
	now := s.nowFunc()
	for id, until := range s.tokens {
		if !now.Before(until) {
			delete(s.tokens, id)
		}
	}
}
