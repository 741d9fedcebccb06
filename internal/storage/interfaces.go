package storage

import (
	"context"
	"time"

	"solana-transfer-operator/internal/domain"
)

// TransferStore provides access to transfer_records storage.
type TransferStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if request_id exists.
	Insert(ctx context.Context, r *domain.TransferRecord) error

	// GetByRequestID retrieves a record by request ID. Returns ErrNotFound if not exists.
	GetByRequestID(ctx context.Context, requestID string) (*domain.TransferRecord, error)

	// GetBySignature retrieves a record by transaction signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TransferRecord, error)

	// GetByStatus retrieves records with the given status, ordered by received_at ASC.
	GetByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.TransferRecord, error)
}

// StageEventStore provides access to transfer_stage_events storage.
type StageEventStore interface {
	// InsertBulk appends stage events. Events are append-only.
	InsertBulk(ctx context.Context, events []*domain.StageEvent) error

	// GetByRequestID retrieves all events for a request, ordered by timestamp ASC.
	GetByRequestID(ctx context.Context, requestID string) ([]*domain.StageEvent, error)
}

// IdempotencyStore guards against processing a redelivered request twice.
type IdempotencyStore interface {
	// Claim marks requestID as taken for ttl. Returns false if it was
	// already claimed and has not expired.
	Claim(ctx context.Context, requestID string, ttl time.Duration) (bool, error)

	// Release drops a claim so the request can be retried. Used when the
	// request failed before anything was signed.
	Release(ctx context.Context, requestID string) error
}
