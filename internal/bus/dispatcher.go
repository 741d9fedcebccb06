package bus

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/idhash"
	"solana-transfer-operator/internal/observability"
	"solana-transfer-operator/internal/orchestrator"
	"solana-transfer-operator/internal/solana"
	"solana-transfer-operator/internal/storage"
)

// DefaultClaimTTL is how long a request id stays claimed.
const DefaultClaimTTL = 24 * time.Hour

// Runner executes requests. *orchestrator.Orchestrator implements it.
type Runner interface {
	Transfer(ctx context.Context, req orchestrator.TransferRequest) (*orchestrator.Result, error)
	SignAndSubmit(ctx context.Context, req orchestrator.SignRequest) (*orchestrator.Result, error)
}

var _ Runner = (*orchestrator.Orchestrator)(nil)

// Dispatcher decodes inbound messages, enforces one execution per request
// id and publishes the outcome.
type Dispatcher struct {
	runner    Runner
	publisher Publisher
	claims    storage.IdempotencyStore
	claimTTL  time.Duration
	logger    *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClaimTTL overrides DefaultClaimTTL.
func WithClaimTTL(ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.claimTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(runner Runner, publisher Publisher, claims storage.IdempotencyStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		runner:    runner,
		publisher: publisher,
		claims:    claims,
		claimTTL:  DefaultClaimTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle implements Handler.
//
// A request id is claimed before execution so a redelivered message never
// transfers twice. The claim is released again when the request failed
// before any signature existed, so the sender may retry with the same id.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) error {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		observability.RecordMessageConsumed("malformed")
		d.logger.Warn("dropping malformed message", zap.Error(err), zap.Int("bytes", len(body)))
		return nil
	}
	observability.RecordMessageConsumed(string(req.Kind))

	if req.ID == "" {
		req.ID = idhash.RequestID(body)
	}
	log := d.logger.With(zap.String("request_id", req.ID), zap.String("kind", string(req.Kind)))

	if !req.Kind.IsValid() {
		return d.publish(ctx, log, rejected(req.ID, req.Kind, domain.KindInvalidMessage,
			fmt.Sprintf("unknown request kind %q", req.Kind)))
	}

	claimed, err := d.claims.Claim(ctx, req.ID, d.claimTTL)
	if err != nil {
		return fmt.Errorf("claim request %s: %w", req.ID, err)
	}
	if !claimed {
		observability.RecordDuplicateMessage()
		log.Info("duplicate request ignored")
		return nil
	}

	res, runErr := d.run(ctx, &req)
	if res == nil {
		// Rejected before reaching the orchestrator.
		if err := d.claims.Release(context.WithoutCancel(ctx), req.ID); err != nil {
			log.Warn("failed to release claim", zap.Error(err))
		}
		return d.publish(ctx, log, rejected(req.ID, req.Kind, orchestrator.KindOf(runErr), runErr.Error()))
	}
	if runErr != nil && res.Signature == "" {
		if err := d.claims.Release(context.WithoutCancel(ctx), req.ID); err != nil {
			log.Warn("failed to release claim", zap.Error(err))
		}
	}
	return d.publish(ctx, log, resultFrom(res))
}

func (d *Dispatcher) run(ctx context.Context, req *Request) (*orchestrator.Result, error) {
	switch req.Kind {
	case domain.RequestTransfer:
		return d.runner.Transfer(ctx, orchestrator.TransferRequest{
			RequestID:       req.ID,
			AmountLamports:  req.AmountLamports,
			RecipientPubkey: req.RecipientPubkey,
			EncryptedKey:    req.EncryptedKey,
		})
	default:
		msg, err := base64.StdEncoding.DecodeString(req.Message)
		if err != nil {
			return nil, fmt.Errorf("%w: message is not base64: %v", solana.ErrMalformedMessage, err)
		}
		return d.runner.SignAndSubmit(ctx, orchestrator.SignRequest{
			RequestID:    req.ID,
			Message:      msg,
			EncryptedKey: req.EncryptedKey,
		})
	}
}

// publish sends res. A publish failure is logged, not returned: the
// outcome is already final and redelivery would only hit the claim.
func (d *Dispatcher) publish(ctx context.Context, log *zap.Logger, res *Result) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := d.publisher.Publish(pctx, res); err != nil {
		log.Error("failed to publish result", zap.Error(err), zap.String("status", string(res.Status)))
		return nil
	}
	observability.RecordResultPublished(string(res.Status))
	return nil
}
