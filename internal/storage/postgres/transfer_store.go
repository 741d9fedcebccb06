package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const transferColumns = `
	request_id, kind, status, failed_stage, error_kind, error_message,
	sender_pubkey, recipient_pubkey, amount_lamports, signature, blockhash,
	attempts, submit_attempts, confirmed, received_at, completed_at
`

// Insert adds a new record. Returns ErrDuplicateKey if request_id or signature exists.
func (s *TransferStore) Insert(ctx context.Context, r *domain.TransferRecord) (err error) {
	if r == nil || r.RequestID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("transfer_insert", start, err) }()

	query := `
		INSERT INTO transfer_records (` + transferColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RequestID, string(r.Kind), string(r.Status), stageOrNil(r.FailedStage), kindOrNil(r.ErrorKind), r.ErrorMessage,
		r.SenderPubkey, r.RecipientKey, r.AmountLamports, r.Signature, r.Blockhash,
		r.Attempts, r.SubmitAttempts, r.Confirmed, r.ReceivedAt, r.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// GetByRequestID retrieves a record by request ID. Returns ErrNotFound if not exists.
func (s *TransferStore) GetByRequestID(ctx context.Context, requestID string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE request_id = $1`

	r, err := scanTransferRecord(s.pool.QueryRow(ctx, query, requestID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer record by request id: %w", err)
	}
	return r, nil
}

// GetBySignature retrieves a record by transaction signature. Returns ErrNotFound if not exists.
func (s *TransferStore) GetBySignature(ctx context.Context, signature string) (*domain.TransferRecord, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_records WHERE signature = $1`

	r, err := scanTransferRecord(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transfer record by signature: %w", err)
	}
	return r, nil
}

// GetByStatus retrieves records with the given status, ordered by received_at ASC.
func (s *TransferStore) GetByStatus(ctx context.Context, status domain.TransferStatus) ([]*domain.TransferRecord, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_records
		WHERE status = $1
		ORDER BY received_at ASC, request_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query transfer records by status: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransferRecord
	for rows.Next() {
		r, err := scanTransferRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer records: %w", err)
	}
	return result, nil
}

func scanTransferRecord(row pgx.Row) (*domain.TransferRecord, error) {
	var (
		r           domain.TransferRecord
		kind        string
		status      string
		failedStage *string
		errorKind   *string
	)
	err := row.Scan(
		&r.RequestID, &kind, &status, &failedStage, &errorKind, &r.ErrorMessage,
		&r.SenderPubkey, &r.RecipientKey, &r.AmountLamports, &r.Signature, &r.Blockhash,
		&r.Attempts, &r.SubmitAttempts, &r.Confirmed, &r.ReceivedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.RequestKind(kind)
	r.Status = domain.TransferStatus(status)
	if failedStage != nil {
		st := domain.Stage(*failedStage)
		r.FailedStage = &st
	}
	if errorKind != nil {
		k := domain.ErrorKind(*errorKind)
		r.ErrorKind = &k
	}
	return &r, nil
}

func stageOrNil(s *domain.Stage) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func kindOrNil(k *domain.ErrorKind) *string {
	if k == nil {
		return nil
	}
	v := string(*k)
	return &v
}
