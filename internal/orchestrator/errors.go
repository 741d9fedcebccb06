package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/solana"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage domain.Stage
	Kind  domain.ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// failAt wraps err for stage unless it already carries a stage.
func failAt(stage domain.Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return &StageError{Stage: stage, Kind: KindOf(err), Err: err}
}

// KindOf classifies err into the error taxonomy reported to callers.
func KindOf(err error) domain.ErrorKind {
	if err == nil {
		return domain.KindNone
	}

	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}

	switch {
	case errors.Is(err, solana.ErrInvalidCharacter):
		return domain.KindInvalidCharacter
	case errors.Is(err, solana.ErrInvalidPublicKey):
		return domain.KindInvalidPublicKey
	case errors.Is(err, solana.ErrInvalidBlockhash):
		return domain.KindInvalidBlockhash
	case errors.Is(err, solana.ErrInvalidAmount):
		return domain.KindInvalidAmount
	case errors.Is(err, solana.ErrEmptyMessage), errors.Is(err, solana.ErrMalformedMessage):
		return domain.KindInvalidMessage
	case errors.Is(err, keytransport.ErrDecryptionFailed):
		return domain.KindDecryptionFailed
	case errors.Is(err, solana.ErrInvalidKeyLength):
		return domain.KindInvalidKeyLength
	case errors.Is(err, context.Canceled):
		return domain.KindCancelled
	}

	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		return domain.KindRPCError
	}
	var netErr *solana.NetworkError
	if errors.As(err, &netErr) {
		return domain.KindNetworkError
	}
	// A deadline is a timeout, reported the same as a transport timeout.
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindNetworkError
	}
	return domain.KindInternal
}

// retryableNetwork reports whether err is a transport failure that is not
// caused by the caller going away.
func retryableNetwork(ctx context.Context, err error) bool {
	var netErr *solana.NetworkError
	return errors.As(err, &netErr) && ctx.Err() == nil && !errors.Is(err, context.Canceled)
}
