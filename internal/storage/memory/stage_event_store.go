package memory

import (
	"context"
	"sort"
	"sync"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/storage"
)

// StageEventStore is an in-memory implementation of storage.StageEventStore.
type StageEventStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.StageEvent // keyed by request_id
}

// NewStageEventStore creates a new in-memory stage event store.
func NewStageEventStore() *StageEventStore {
	return &StageEventStore{
		data: make(map[string][]*domain.StageEvent),
	}
}

// Compile-time interface check.
var _ storage.StageEventStore = (*StageEventStore)(nil)

// InsertBulk appends stage events.
func (s *StageEventStore) InsertBulk(_ context.Context, events []*domain.StageEvent) error {
	for _, e := range events {
		if e == nil || e.RequestID == "" || !e.Stage.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		copy := *e
		s.data[e.RequestID] = append(s.data[e.RequestID], &copy)
	}
	return nil
}

// GetByRequestID retrieves all events for a request, ordered by timestamp ASC.
func (s *StageEventStore) GetByRequestID(_ context.Context, requestID string) ([]*domain.StageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.data[requestID]
	result := make([]*domain.StageEvent, len(events))
	for i, e := range events {
		copy := *e
		result[i] = &copy
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
