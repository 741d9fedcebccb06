package stub

import (
	"context"
	"errors"
	"sync"

	"solana-transfer-operator/internal/solana"
)

// ErrNoBlockhash is returned when the stub has no blockhash configured.
var ErrNoBlockhash = errors.New("stub: no blockhash configured")

// Gateway implements solana.Gateway for testing. Errors are queued per
// method and consumed one per call; once a queue is empty calls succeed.
type Gateway struct {
	mu sync.Mutex

	// Blockhash returned by GetLatestBlockhash.
	Blockhash solana.Hash
	// BlockhashErrs are returned, in order, before any successful call.
	BlockhashErrs []error
	// BlockhashHook runs at the start of GetLatestBlockhash when set.
	BlockhashHook func(ctx context.Context)

	// SendErrs are returned, in order, by SendTransaction.
	SendErrs []error
	// LandOnSendError marks the transaction landed even when a queued send
	// error is returned, as when a response is lost after the node accepted it.
	LandOnSendError bool

	// StatusErrs are returned, in order, by GetSignatureStatuses.
	StatusErrs []error
	// Statuses holds landing status keyed by signature.
	Statuses map[string]*solana.SignatureStatus

	// Sent records every transaction passed to SendTransaction.
	Sent []string

	BlockhashCalls int
	SendCalls      int
	StatusCalls    int
}

// NewGateway creates a stub gateway that serves blockhash.
func NewGateway(blockhash solana.Hash) *Gateway {
	return &Gateway{
		Blockhash: blockhash,
		Statuses:  make(map[string]*solana.SignatureStatus),
	}
}

// Compile-time interface check.
var _ solana.Gateway = (*Gateway)(nil)

// GetLatestBlockhash returns the configured blockhash or the next queued error.
func (g *Gateway) GetLatestBlockhash(ctx context.Context) (*solana.LatestBlockhash, error) {
	if g.BlockhashHook != nil {
		g.BlockhashHook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.BlockhashCalls++
	if len(g.BlockhashErrs) > 0 {
		err := g.BlockhashErrs[0]
		g.BlockhashErrs = g.BlockhashErrs[1:]
		return nil, err
	}
	if g.Blockhash == (solana.Hash{}) {
		return nil, ErrNoBlockhash
	}
	return &solana.LatestBlockhash{Blockhash: g.Blockhash, LastValidBlockHeight: 1000}, nil
}

// SendTransaction records the transaction and returns its id.
func (g *Gateway) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	tx, err := solana.ParseTransactionBase64(txBase64)
	if err != nil {
		return "", &solana.RPCError{Code: -32602, Message: err.Error()}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.SendCalls++
	g.Sent = append(g.Sent, txBase64)

	if len(g.SendErrs) > 0 {
		err := g.SendErrs[0]
		g.SendErrs = g.SendErrs[1:]
		if err != nil {
			if g.LandOnSendError {
				g.Statuses[tx.ID()] = &solana.SignatureStatus{Slot: 1, ConfirmationStatus: "confirmed"}
			}
			return "", err
		}
	}
	g.Statuses[tx.ID()] = &solana.SignatureStatus{Slot: 1, ConfirmationStatus: "processed"}
	return tx.ID(), nil
}

// GetSignatureStatuses returns known statuses; unknown signatures map to nil.
func (g *Gateway) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusCalls++
	if len(g.StatusErrs) > 0 {
		err := g.StatusErrs[0]
		g.StatusErrs = g.StatusErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([]*solana.SignatureStatus, len(signatures))
	for i, s := range signatures {
		out[i] = g.Statuses[s]
	}
	return out, nil
}

// Calls returns a consistent snapshot of the call counters.
func (g *Gateway) Calls() (blockhash, send, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.BlockhashCalls, g.SendCalls, g.StatusCalls
}
