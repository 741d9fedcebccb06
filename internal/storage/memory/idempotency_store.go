package memory

import (
	"context"
	"sync"
	"time"

	"solana-transfer-operator/internal/storage"
)

// IdempotencyStore is an in-memory implementation of storage.IdempotencyStore.
type IdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]time.Time // request_id -> expiry
	now    func() time.Time
}

// NewIdempotencyStore creates a new in-memory idempotency store.
func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ storage.IdempotencyStore = (*IdempotencyStore)(nil)

// Claim marks requestID as taken for ttl.
func (s *IdempotencyStore) Claim(_ context.Context, requestID string, ttl time.Duration) (bool, error) {
	if requestID == "" || ttl <= 0 {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.claims[requestID]; ok && now.Before(expiry) {
		return false, nil
	}
	s.claims[requestID] = now.Add(ttl)
	return true, nil
}

// Release drops a claim.
func (s *IdempotencyStore) Release(_ context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, requestID)
	return nil
}
