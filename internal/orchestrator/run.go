package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/observability"
	"solana-transfer-operator/internal/solana"
)

var errSelfCheck = errors.New("signature failed self-verification")

// plan describes how one request kind produces the bytes to sign.
type plan struct {
	build          func(sender solana.PublicKey, blockhash solana.Hash) ([]byte, error)
	needsBlockhash bool
}

// execute loops prepare/submit until a terminal state. A blockhash-expired
// rejection discards the signed transaction and starts again from
// BLOCKHASH_FETCHED with a freshly decrypted key.
func (o *Orchestrator) execute(ctx context.Context, r *run, envelope []byte, p plan) (*Result, error) {
	for {
		r.attempt++

		tx, err := o.prepare(ctx, r, envelope, p)
		if err != nil {
			return o.finish(ctx, r, err)
		}

		err = o.submit(ctx, r, tx)
		if err == nil {
			o.confirm(ctx, r, tx.ID())
			return o.finish(ctx, r, nil)
		}

		if p.needsBlockhash && solana.IsBlockhashExpired(err) && r.attempt <= o.blockhashRestarts && ctx.Err() == nil {
			observability.RecordBlockhashRestart()
			r.log.Warn("blockhash expired, rebuilding transaction",
				zap.Int("attempt", r.attempt),
				zap.String("discarded_signature", tx.ID()),
			)
			continue
		}
		return o.finish(ctx, r, err)
	}
}

// prepare decrypts the key and fetches the blockhash concurrently, then
// builds and signs. The raw key does not outlive this call.
func (o *Orchestrator) prepare(ctx context.Context, r *run, envelope []byte, p plan) (*solana.Transaction, error) {
	var (
		raw    []byte
		sender solana.PublicKey
		latest *solana.LatestBlockhash
	)
	defer func() { keytransport.Zero(raw) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		key, err := o.keys.Decrypt(envelope)
		if err != nil {
			return failAt(domain.StageKeyDecrypted, err)
		}
		pub, err := solana.DerivePublicKey(key)
		if err != nil {
			keytransport.Zero(key)
			return failAt(domain.StageKeyDecrypted, err)
		}
		raw, sender = key, pub
		r.mark(domain.StageKeyDecrypted)
		return nil
	})
	if p.needsBlockhash {
		g.Go(func() error {
			bh, err := o.fetchBlockhash(gctx, r)
			if err != nil {
				return failAt(domain.StageBlockhashFetched, err)
			}
			latest = bh
			r.mark(domain.StageBlockhashFetched)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.setSender(sender.String())

	var blockhash solana.Hash
	if latest != nil {
		blockhash = latest.Blockhash
		r.setBlockhash(blockhash.String())
	}

	// Never sign for a caller that has gone away.
	if err := ctx.Err(); err != nil {
		return nil, failAt(domain.StageMessageBuilt, err)
	}

	msg, err := p.build(sender, blockhash)
	if err != nil {
		return nil, failAt(domain.StageMessageBuilt, err)
	}
	r.mark(domain.StageMessageBuilt)

	sig, err := solana.Sign(msg, raw)
	keytransport.Zero(raw)
	raw = nil
	if err != nil {
		return nil, failAt(domain.StageSigned, err)
	}
	if !solana.Verify(sender, msg, sig) {
		return nil, failAt(domain.StageSigned, errSelfCheck)
	}

	tx := solana.NewTransaction(msg, sig)
	r.setSignature(tx.ID())
	r.mark(domain.StageSigned)
	return tx, nil
}

// fetchBlockhash retries NetworkError with exponential backoff. Node
// rejections and cancellation are returned immediately.
func (o *Orchestrator) fetchBlockhash(ctx context.Context, r *run) (*solana.LatestBlockhash, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.retryInterval
	policy.MaxInterval = 8 * o.retryInterval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.blockhashAttempts-1)), ctx)

	var latest *solana.LatestBlockhash
	op := func() error {
		bh, err := o.gateway.GetLatestBlockhash(ctx)
		if err != nil {
			if retryableNetwork(ctx, err) {
				return err
			}
			return backoff.Permanent(err)
		}
		latest = bh
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn("blockhash fetch failed, retrying", zap.Error(err), zap.Duration("backoff", wait))
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return latest, nil
}

// submit sends tx. Once a signature exists the caller can no longer cancel:
// the send runs on a detached context bounded by submitTimeout.
//
// A NetworkError on send is ambiguous, so the signature status is checked
// first. Only a transaction the node has never seen is resent, and always
// with the identical bytes.
func (o *Orchestrator) submit(ctx context.Context, r *run, tx *solana.Transaction) error {
	wire, err := tx.Base64()
	if err != nil {
		return failAt(domain.StageSubmitted, err)
	}
	sig := tx.ID()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.submitTimeout)
	defer cancel()

	for n := 1; ; n++ {
		r.submits++
		got, err := o.gateway.SendTransaction(sctx, wire)
		if err == nil {
			if got != sig {
				r.log.Warn("node returned a different signature", zap.String("returned", got))
			}
			r.mark(domain.StageSubmitted)
			return nil
		}
		if !retryableNetwork(sctx, err) {
			return failAt(domain.StageSubmitted, err)
		}

		status, serr := o.status(sctx, sig)
		if serr != nil {
			r.log.Warn("signature status unavailable, not resending", zap.Error(serr))
			return failAt(domain.StageSubmitted, err)
		}
		if status != nil {
			r.landed = true
			if status.Err != nil {
				return failAt(domain.StageSubmitted, &solana.RPCError{
					Message: fmt.Sprintf("transaction failed on chain: %v", status.Err),
				})
			}
			r.log.Info("transaction landed despite send error", zap.Error(err))
			r.mark(domain.StageSubmitted)
			return nil
		}

		if n >= o.submitAttempts {
			return failAt(domain.StageSubmitted, err)
		}
		observability.RecordSubmitRetry()
		r.log.Warn("send failed and transaction unknown to node, resending",
			zap.Int("submit_attempt", n), zap.Error(err))
	}
}

func (o *Orchestrator) status(ctx context.Context, sig string) (*solana.SignatureStatus, error) {
	statuses, err := o.gateway.GetSignatureStatuses(ctx, []string{sig})
	if err != nil {
		return nil, err
	}
	if len(statuses) != 1 {
		return nil, fmt.Errorf("expected 1 signature status, got %d", len(statuses))
	}
	return statuses[0], nil
}

// confirm waits for the landing notification when a Confirmer is set.
// The outcome is informational; the request is already SUBMITTED.
func (o *Orchestrator) confirm(ctx context.Context, r *run, sig string) {
	if o.confirmer == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, o.confirmTimeout)
	defer cancel()

	n, err := o.confirmer.WaitForSignature(cctx, sig)
	if err != nil {
		r.log.Warn("confirmation not received", zap.Error(err))
		return
	}
	if n.Err != nil {
		r.result.ConfirmationError = fmt.Sprint(n.Err)
		r.log.Warn("transaction failed after submission", zap.Any("err", n.Err), zap.Uint64("slot", n.Slot))
		return
	}
	r.result.Confirmed = true
	r.record.Confirmed = true
	r.log.Debug("transaction confirmed", zap.Uint64("slot", n.Slot))
}
