package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/storage"
)

// StageEventStore implements storage.StageEventStore using ClickHouse.
type StageEventStore struct {
	conn *Conn
}

// NewStageEventStore creates a new StageEventStore.
func NewStageEventStore(conn *Conn) *StageEventStore {
	return &StageEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StageEventStore = (*StageEventStore)(nil)

// InsertBulk appends stage events in a single batch.
func (s *StageEventStore) InsertBulk(ctx context.Context, events []*domain.StageEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.RequestID == "" || !e.Stage.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	start := time.Now()
	defer func() { observe("stage_event_insert", start, err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfer_stage_events (
			request_id, stage, attempt, timestamp_ms, duration_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.RequestID, string(e.Stage), uint16(e.Attempt),
			uint64(e.TimestampMs), uint64(e.DurationMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRequestID retrieves all events for a request, ordered by timestamp ASC.
func (s *StageEventStore) GetByRequestID(ctx context.Context, requestID string) ([]*domain.StageEvent, error) {
	query := `
		SELECT request_id, stage, attempt, timestamp_ms, duration_ms
		FROM transfer_stage_events
		WHERE request_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("query by request id: %w", err)
	}
	defer rows.Close()

	var result []*domain.StageEvent
	for rows.Next() {
		var (
			e           domain.StageEvent
			stage       string
			attempt     uint16
			timestampMs uint64
			durationMs  uint64
		)
		if err := rows.Scan(&e.RequestID, &stage, &attempt, &timestampMs, &durationMs); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		e.Stage = domain.Stage(stage)
		e.Attempt = int(attempt)
		e.TimestampMs = int64(timestampMs)
		e.DurationMs = int64(durationMs)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage events: %w", err)
	}
	return result, nil
}
