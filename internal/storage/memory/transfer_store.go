package memory

import (
	"context"
	"sort"
	"sync"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/storage"
)

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu          sync.RWMutex
	data        map[string]*domain.TransferRecord // keyed by request_id
	bySignature map[string]string                 // signature -> request_id
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data:        make(map[string]*domain.TransferRecord),
		bySignature: make(map[string]string),
	}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if request_id exists.
func (s *TransferStore) Insert(_ context.Context, r *domain.TransferRecord) error {
	if r == nil || r.RequestID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RequestID]; exists {
		return storage.ErrDuplicateKey
	}
	if r.Signature != nil {
		if _, exists := s.bySignature[*r.Signature]; exists {
			return storage.ErrDuplicateKey
		}
		s.bySignature[*r.Signature] = r.RequestID
	}

	copy := *r
	s.data[r.RequestID] = &copy
	return nil
}

// GetByRequestID retrieves a record by request ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByRequestID(_ context.Context, requestID string) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[requestID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// GetBySignature retrieves a record by transaction signature. Returns ErrNotFound if not exists.
func (s *TransferStore) GetBySignature(_ context.Context, signature string) (*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySignature[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *s.data[id]
	return &copy, nil
}

// GetByStatus retrieves records with the given status, ordered by received_at ASC.
func (s *TransferStore) GetByStatus(_ context.Context, status domain.TransferStatus) ([]*domain.TransferRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransferRecord
	for _, r := range s.data {
		if r.Status == status {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ReceivedAt != result[j].ReceivedAt {
			return result[i].ReceivedAt < result[j].ReceivedAt
		}
		return result[i].RequestID < result[j].RequestID
	})
	return result, nil
}
