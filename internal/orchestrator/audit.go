package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/observability"
)

// run is the per-request bookkeeping: stage events, the audit record and
// the result under construction. It never holds key material.
type run struct {
	mu     sync.Mutex
	events []*domain.StageEvent

	attempt int
	submits int
	landed  bool

	start  time.Time
	now    func() time.Time
	log    *zap.Logger
	record domain.TransferRecord
	result Result

	done func()
}

func (o *Orchestrator) begin(requestID string, kind domain.RequestKind) *run {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := o.now()
	r := &run{
		start: start,
		now:   o.now,
		log:   o.logger.With(zap.String("request_id", requestID), zap.String("kind", kind.String())),
		record: domain.TransferRecord{
			RequestID:  requestID,
			Kind:       kind,
			ReceivedAt: start.UnixMilli(),
		},
		result: Result{RequestID: requestID, Kind: kind},
		done:   observability.TrackInFlight(),
	}
	r.mark(domain.StageReceived)
	return r
}

func (r *run) mark(stage domain.Stage) {
	now := r.now()
	since := now.Sub(r.start)

	r.mu.Lock()
	r.events = append(r.events, &domain.StageEvent{
		RequestID:   r.record.RequestID,
		Stage:       stage,
		Attempt:     r.attempt,
		TimestampMs: now.UnixMilli(),
		DurationMs:  since.Milliseconds(),
	})
	r.mu.Unlock()

	observability.RecordStage(stage.String(), since.Seconds())
	r.log.Debug("stage", zap.String("stage", stage.String()), zap.Int("attempt", r.attempt))
}

func (r *run) setSender(pub string) {
	r.result.SenderPubkey = pub
	r.record.SenderPubkey = &pub
}

func (r *run) setBlockhash(hash string) {
	r.record.Blockhash = &hash
}

func (r *run) setSignature(sig string) {
	r.result.Signature = sig
	r.record.Signature = &sig
	r.landed = false
}

// stages returns a copy of the events recorded so far.
func (r *run) stages() []*domain.StageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StageEvent, len(r.events))
	copy(out, r.events)
	return out
}

// finish moves the request to its terminal state, writes the audit trail
// and returns the result. err, when set, is reported as a *StageError.
func (o *Orchestrator) finish(ctx context.Context, r *run, err error) (*Result, error) {
	defer r.done()

	res := &r.result
	res.Attempts = r.attempt
	res.SubmitAttempts = r.submits
	r.record.Attempts = r.attempt
	r.record.SubmitAttempts = r.submits

	var se *StageError
	if err != nil {
		if !errors.As(err, &se) {
			se = &StageError{Stage: domain.StageFailed, Kind: KindOf(err), Err: err}
		}
		res.Status = domain.StatusFailed
		res.Error = se
		res.Discarded = res.Signature != "" && !r.landed

		stage, kind, msg := se.Stage, se.Kind, se.Err.Error()
		r.record.Status = domain.StatusFailed
		r.record.FailedStage = &stage
		r.record.ErrorKind = &kind
		r.record.ErrorMessage = &msg
		r.mark(domain.StageFailed)

		fields := []zap.Field{
			zap.String("stage", stage.String()),
			zap.String("error_kind", kind.String()),
			zap.Error(se.Err),
		}
		if res.Discarded {
			fields = append(fields, zap.String("discarded_signature", res.Signature))
		}
		r.log.Warn("request failed", fields...)
	} else {
		res.Status = domain.StatusSubmitted
		res.ExplorerURL = o.explorer.URL(res.Signature)
		r.record.Status = domain.StatusSubmitted
		r.log.Info("transaction submitted",
			zap.String("signature", res.Signature),
			zap.String("explorer_url", res.ExplorerURL),
			zap.Int("attempts", r.attempt),
			zap.Int("submit_attempts", r.submits),
		)
	}

	completed := r.now()
	r.record.CompletedAt = completed.UnixMilli()
	observability.RecordTransfer(res.Kind.String(), string(res.Status), KindOf(err).String(), completed.Sub(r.start).Seconds())

	o.persist(ctx, r)

	if se != nil {
		return res, se
	}
	return res, nil
}

// persist writes the audit record and stage events. Storage failures are
// logged; they never change the outcome already reached on chain.
func (o *Orchestrator) persist(ctx context.Context, r *run) {
	if o.transfers == nil && o.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultPersistTimeout)
	defer cancel()

	if o.transfers != nil {
		rec := r.record
		if err := o.transfers.Insert(pctx, &rec); err != nil {
			r.log.Error("failed to store transfer record", zap.Error(err))
		}
	}
	if o.events != nil {
		if err := o.events.InsertBulk(pctx, r.stages()); err != nil {
			r.log.Error("failed to store stage events", zap.Error(err))
		}
	}
}
