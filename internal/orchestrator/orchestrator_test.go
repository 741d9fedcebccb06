package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/solana"
	"solana-transfer-operator/internal/solana/stub"
)

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{Gateway: stub.NewGateway(testBlockhash)})
	assert.Error(t, err)

	_, err = New(Options{Keys: &recordingKeys{}})
	assert.Error(t, err)
}

func TestTransfer_Success(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.transfer(ctx, "req-ok", 100_000_000)
	require.NoError(t, err)

	sender := senderPubkey(t)
	assert.Equal(t, domain.StatusSubmitted, res.Status)
	assert.Equal(t, sender.String(), res.SenderPubkey)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.SubmitAttempts)
	assert.False(t, res.Discarded)
	assert.Nil(t, res.Error)
	assert.Equal(t, "https://explorer.solana.com/tx/"+res.Signature+"?cluster=devnet", res.ExplorerURL)

	// The node received exactly the expected message, correctly signed.
	require.Len(t, f.gateway.Sent, 1)
	tx, err := solana.ParseTransactionBase64(f.gateway.Sent[0])
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.Equal(t, res.Signature, tx.ID())

	want, err := solana.BuildTransferMessage(sender[:], testRecipient[:], 100_000_000, testBlockhash[:], solana.SystemProgramID[:])
	require.NoError(t, err)
	wantBytes, err := want.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, wantBytes, tx.Message)
	assert.True(t, solana.Verify(sender, tx.Message, tx.Signatures[0]))

	stages := f.stages(t, "req-ok")
	require.Len(t, stages, 6)
	assert.Equal(t, domain.StageReceived, stages[0])
	assert.ElementsMatch(t, []domain.Stage{domain.StageKeyDecrypted, domain.StageBlockhashFetched}, stages[1:3])
	assert.Equal(t, []domain.Stage{domain.StageMessageBuilt, domain.StageSigned, domain.StageSubmitted}, stages[3:])

	rec, err := f.transfers.GetByRequestID(ctx, "req-ok")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, rec.Status)
	assert.Equal(t, res.Signature, *rec.Signature)
	assert.Equal(t, testBlockhash.String(), *rec.Blockhash)
	assert.Equal(t, int64(100_000_000), *rec.AmountLamports)
	assert.Nil(t, rec.ErrorKind)

	f.assertKeysZeroed(t)
}

func TestTransfer_ZeroAmountIsValid(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.transfer(context.Background(), "req-zero", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, res.Status)

	tx, err := solana.ParseTransactionBase64(f.gateway.Sent[0])
	require.NoError(t, err)
	msg, err := solana.UnmarshalMessage(tx.Message)
	require.NoError(t, err)
	lamports, err := solana.DecodeTransferData(msg.Instructions[0].Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), lamports)
}

func TestTransfer_BlockhashRPCErrorNeverSigns(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.BlockhashErrs = []error{&solana.RPCError{Code: -32005, Message: "Node is behind"}}

	res, err := f.transfer(context.Background(), "req-rpc", 1000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.StageBlockhashFetched, se.Stage)
	assert.Equal(t, domain.KindRPCError, se.Kind)

	var rpcErr *solana.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32005, rpcErr.Code)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Empty(t, res.Signature)
	assert.False(t, res.Discarded)

	blockhashCalls, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 1, blockhashCalls, "rpc errors are not retried")
	assert.Equal(t, 0, sendCalls)

	stages := f.stages(t, "req-rpc")
	assert.False(t, contains(stages, domain.StageMessageBuilt))
	assert.False(t, contains(stages, domain.StageSigned))
	assert.Equal(t, domain.StageFailed, stages[len(stages)-1])

	rec, err := f.transfers.GetByRequestID(context.Background(), "req-rpc")
	require.NoError(t, err)
	assert.Nil(t, rec.Signature)
	assert.Equal(t, domain.KindRPCError, *rec.ErrorKind)
	assert.Equal(t, domain.StageBlockhashFetched, *rec.FailedStage)

	f.assertKeysZeroed(t)
}

func TestTransfer_BlockhashNetworkErrorRetried(t *testing.T) {
	f := newFixture(t, nil)
	netErr := &solana.NetworkError{Op: "getLatestBlockhash", Err: errors.New("connection refused")}
	f.gateway.BlockhashErrs = []error{netErr, netErr}

	res, err := f.transfer(context.Background(), "req-net", 1000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, res.Status)

	blockhashCalls, _, _ := f.gateway.Calls()
	assert.Equal(t, 3, blockhashCalls)
}

func TestTransfer_BlockhashNetworkErrorExhausted(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.BlockhashAttempts = 2 })
	netErr := &solana.NetworkError{Op: "getLatestBlockhash", Err: errors.New("timeout")}
	f.gateway.BlockhashErrs = []error{netErr, netErr, netErr}

	_, err := f.transfer(context.Background(), "req-net-x", 1000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.StageBlockhashFetched, se.Stage)
	assert.Equal(t, domain.KindNetworkError, se.Kind)

	blockhashCalls, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 2, blockhashCalls)
	assert.Equal(t, 0, sendCalls)
}

func TestTransfer_InvalidInputs(t *testing.T) {
	operator, stranger := operatorKeys(t)

	tests := []struct {
		name      string
		lamports  int64
		recipient string
		envelope  func(t *testing.T) string
		wantStage domain.Stage
		wantKind  domain.ErrorKind
	}{
		{
			name:      "recipient with invalid character",
			recipient: "0OIl",
			wantStage: domain.StageReceived,
			wantKind:  domain.KindInvalidCharacter,
		},
		{
			name:      "recipient too short",
			recipient: solana.EncodeBase58([]byte{1, 2, 3}),
			wantStage: domain.StageReceived,
			wantKind:  domain.KindInvalidPublicKey,
		},
		{
			name:      "negative amount",
			lamports:  -1,
			wantStage: domain.StageReceived,
			wantKind:  domain.KindInvalidAmount,
		},
		{
			name:      "envelope not base58",
			envelope:  func(*testing.T) string { return "not+base58" },
			wantStage: domain.StageReceived,
			wantKind:  domain.KindInvalidCharacter,
		},
		{
			name:      "empty envelope",
			envelope:  func(*testing.T) string { return "" },
			wantStage: domain.StageKeyDecrypted,
			wantKind:  domain.KindDecryptionFailed,
		},
		{
			name: "envelope for another operator",
			envelope: func(t *testing.T) string {
				return envelopeFor(t, senderSeed(), &stranger.PublicKey)
			},
			wantStage: domain.StageKeyDecrypted,
			wantKind:  domain.KindDecryptionFailed,
		},
		{
			name: "short private key",
			envelope: func(t *testing.T) string {
				return envelopeFor(t, make([]byte, 16), &operator.PublicKey)
			},
			wantStage: domain.StageKeyDecrypted,
			wantKind:  domain.KindInvalidKeyLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			req := TransferRequest{
				RequestID:       "req-invalid",
				AmountLamports:  tt.lamports,
				RecipientPubkey: testRecipient.String(),
				EncryptedKey:    f.envelope,
			}
			if tt.recipient != "" {
				req.RecipientPubkey = tt.recipient
			}
			if tt.envelope != nil {
				req.EncryptedKey = tt.envelope(t)
			}

			res, err := f.orch.Transfer(context.Background(), req)
			se := stageErrorOf(t, err)
			assert.Equal(t, tt.wantStage, se.Stage)
			assert.Equal(t, tt.wantKind, se.Kind)
			assert.Equal(t, domain.StatusFailed, res.Status)

			_, sendCalls, _ := f.gateway.Calls()
			assert.Equal(t, 0, sendCalls)
			f.assertKeysZeroed(t)
		})
	}
}

func TestTransfer_BlockhashExpiredRestarts(t *testing.T) {
	f := newFixture(t, nil)
	fresh := solana.Hash{0x77, 0x66}
	f.gateway.BlockhashHook = func(context.Context) {
		if f.gateway.BlockhashCalls == 1 {
			f.gateway.Blockhash = fresh
		}
	}
	f.gateway.SendErrs = []error{&solana.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Blockhash not found",
	}}

	res, err := f.transfer(context.Background(), "req-restart", 5000)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, res.SubmitAttempts)

	blockhashCalls, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 2, blockhashCalls)
	assert.Equal(t, 2, sendCalls)
	assert.Equal(t, 2, f.keys.calls(), "key is decrypted again for the rebuild")
	assert.NotEqual(t, f.gateway.Sent[0], f.gateway.Sent[1])

	tx, err := solana.ParseTransactionBase64(f.gateway.Sent[1])
	require.NoError(t, err)
	msg, err := solana.UnmarshalMessage(tx.Message)
	require.NoError(t, err)
	assert.Equal(t, fresh, msg.RecentBlockhash)
	assert.Equal(t, res.Signature, tx.ID())

	f.assertKeysZeroed(t)
}

func TestTransfer_BlockhashExpiredWithoutRestarts(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.BlockhashRestarts = -1 })
	f.gateway.SendErrs = []error{&solana.RPCError{Code: -32002, Message: "Blockhash not found"}}

	res, err := f.transfer(context.Background(), "req-expired", 5000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.StageSubmitted, se.Stage)
	assert.Equal(t, domain.KindRPCError, se.Kind)
	assert.True(t, res.Discarded)
	assert.NotEmpty(t, res.Signature)
	assert.Empty(t, res.ExplorerURL)
}

func TestTransfer_SendNetworkErrorButLanded(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.SendErrs = []error{&solana.NetworkError{Op: "sendTransaction", Err: errors.New("EOF")}}
	f.gateway.LandOnSendError = true

	res, err := f.transfer(context.Background(), "req-landed", 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, res.Status)

	_, sendCalls, statusCalls := f.gateway.Calls()
	assert.Equal(t, 1, sendCalls, "landed transaction must not be resent")
	assert.Equal(t, 1, statusCalls)
}

func TestTransfer_SendNetworkErrorResendsIdenticalBytes(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.SendErrs = []error{&solana.NetworkError{Op: "sendTransaction", Err: errors.New("reset by peer")}}

	res, err := f.transfer(context.Background(), "req-resend", 5000)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SubmitAttempts)
	assert.Equal(t, 1, res.Attempts)

	require.Len(t, f.gateway.Sent, 2)
	assert.Equal(t, f.gateway.Sent[0], f.gateway.Sent[1])
}

func TestTransfer_SendNetworkErrorStatusUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.SendErrs = []error{&solana.NetworkError{Op: "sendTransaction", Err: errors.New("timeout")}}
	f.gateway.StatusErrs = []error{&solana.NetworkError{Op: "getSignatureStatuses", Err: errors.New("timeout")}}

	res, err := f.transfer(context.Background(), "req-unknown", 5000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.StageSubmitted, se.Stage)
	assert.Equal(t, domain.KindNetworkError, se.Kind)
	assert.True(t, res.Discarded)

	_, sendCalls, statusCalls := f.gateway.Calls()
	assert.Equal(t, 1, sendCalls, "no resend without a status answer")
	assert.Equal(t, 1, statusCalls)
}

func TestTransfer_SendNetworkErrorExhausted(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SubmitAttempts = 2 })
	netErr := &solana.NetworkError{Op: "sendTransaction", Err: errors.New("refused")}
	f.gateway.SendErrs = []error{netErr, netErr, netErr}

	res, err := f.transfer(context.Background(), "req-send-x", 5000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.KindNetworkError, se.Kind)
	assert.Equal(t, 2, res.SubmitAttempts)
}

func TestTransfer_LandedWithOnChainError(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.SendErrs = []error{&solana.NetworkError{Op: "sendTransaction", Err: errors.New("EOF")}}
	f.gateway.StatusErrs = []error{nil}

	// Pre-seed a failed status for the signature the request will produce.
	sender := senderPubkey(t)
	msg, err := solana.BuildTransferMessage(sender[:], testRecipient[:], 5000, testBlockhash[:], solana.SystemProgramID[:])
	require.NoError(t, err)
	raw, err := msg.MarshalBinary()
	require.NoError(t, err)
	sig, err := solana.Sign(raw, senderSeed())
	require.NoError(t, err)
	f.gateway.Statuses[sig.String()] = &solana.SignatureStatus{Slot: 9, Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}

	res, err := f.transfer(context.Background(), "req-onchain", 5000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.KindRPCError, se.Kind)
	assert.False(t, res.Discarded, "the transaction landed")
	assert.Equal(t, sig.String(), res.Signature)
}

// cancellingGateway cancels the caller's context just before sending,
// simulating a caller that gives up between SIGNED and SUBMITTED.
type cancellingGateway struct {
	*stub.Gateway
	cancel context.CancelFunc
}

func (g *cancellingGateway) SendTransaction(ctx context.Context, tx string) (string, error) {
	g.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.Gateway.SendTransaction(ctx, tx)
}

func TestTransfer_CancelAfterSigningStillSubmits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &cancellingGateway{Gateway: stub.NewGateway(testBlockhash), cancel: cancel}
	f := newFixture(t, func(o *Options) { o.Gateway = gw })
	f.gateway = gw.Gateway

	res, err := f.transfer(ctx, "req-cancel-late", 5000)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, res.Status)
	assert.Len(t, f.gateway.Sent, 1)
	assert.Error(t, ctx.Err())
}

func TestTransfer_CancelBeforeSigning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, nil)
	f.gateway.BlockhashHook = func(context.Context) { cancel() }

	res, err := f.transfer(ctx, "req-cancel", 5000)
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.KindCancelled, se.Kind)
	assert.Empty(t, res.Signature)

	_, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 0, sendCalls)
	f.assertKeysZeroed(t)
}

func TestTransfer_SixtyFourByteKey(t *testing.T) {
	f := newFixture(t, nil)
	operator, _ := operatorKeys(t)

	sender := senderPubkey(t)
	full := append(senderSeed(), sender[:]...)
	f.envelope = envelopeFor(t, full, &operator.PublicKey)

	res, err := f.transfer(context.Background(), "req-64", 1)
	require.NoError(t, err)
	assert.Equal(t, sender.String(), res.SenderPubkey)
}

func TestTransfer_GeneratesRequestID(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.transfer(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Len(t, res.RequestID, 36)

	_, err = f.transfers.GetByRequestID(context.Background(), res.RequestID)
	assert.NoError(t, err)
}

func TestTransfer_Concurrent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Distinct amounts give distinct signatures.
			if _, err := f.transfer(ctx, fmt.Sprintf("req-%d", i), int64(i+1)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("transfer failed: %v", err)
	}

	submitted, err := f.transfers.GetByStatus(ctx, domain.StatusSubmitted)
	require.NoError(t, err)
	assert.Len(t, submitted, n)
	f.assertKeysZeroed(t)
}

func TestSignAndSubmit(t *testing.T) {
	f := newFixture(t, nil)
	sender := senderPubkey(t)

	msg, err := solana.BuildTransferMessage(sender[:], testRecipient[:], 42, testBlockhash[:], solana.SystemProgramID[:])
	require.NoError(t, err)
	raw, err := msg.MarshalBinary()
	require.NoError(t, err)

	res, err := f.orch.SignAndSubmit(context.Background(), SignRequest{
		RequestID:    "sign-1",
		Message:      raw,
		EncryptedKey: f.envelope,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestSign, res.Kind)

	blockhashCalls, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 0, blockhashCalls, "pass-through never fetches a blockhash")
	assert.Equal(t, 1, sendCalls)

	tx, err := solana.ParseTransactionBase64(f.gateway.Sent[0])
	require.NoError(t, err)
	assert.Equal(t, raw, tx.Message)
	assert.True(t, solana.Verify(sender, raw, tx.Signatures[0]))

	stages := f.stages(t, "sign-1")
	assert.False(t, contains(stages, domain.StageBlockhashFetched))

	rec, err := f.transfers.GetByRequestID(context.Background(), "sign-1")
	require.NoError(t, err)
	assert.Equal(t, testBlockhash.String(), *rec.Blockhash)
	assert.Nil(t, rec.AmountLamports)
	f.assertKeysZeroed(t)
}

func TestSignAndSubmit_OpaqueMessage(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.orch.SignAndSubmit(context.Background(), SignRequest{
		RequestID:    "sign-opaque",
		Message:      []byte("not a parseable message"),
		EncryptedKey: f.envelope,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, res.Status)
}

func TestSignAndSubmit_EmptyMessage(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orch.SignAndSubmit(context.Background(), SignRequest{
		RequestID:    "sign-empty",
		EncryptedKey: f.envelope,
	})
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.StageReceived, se.Stage)
	assert.Equal(t, domain.KindInvalidMessage, se.Kind)
	assert.Equal(t, 0, f.keys.calls(), "key is never decrypted for an invalid request")
}

func TestSignAndSubmit_BlockhashExpiredIsFinal(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.SendErrs = []error{&solana.RPCError{Code: -32002, Message: "Blockhash not found"}}

	_, err := f.orch.SignAndSubmit(context.Background(), SignRequest{
		RequestID:    "sign-expired",
		Message:      []byte{1, 2, 3},
		EncryptedKey: f.envelope,
	})
	se := stageErrorOf(t, err)
	assert.Equal(t, domain.KindRPCError, se.Kind)

	_, sendCalls, _ := f.gateway.Calls()
	assert.Equal(t, 1, sendCalls)
}

type fakeConfirmer struct {
	notification *solana.SignatureNotification
	err          error
	waited       []string
}

func (c *fakeConfirmer) WaitForSignature(_ context.Context, sig string) (*solana.SignatureNotification, error) {
	c.waited = append(c.waited, sig)
	return c.notification, c.err
}

func (c *fakeConfirmer) Close() error { return nil }

func TestTransfer_Confirmation(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		conf := &fakeConfirmer{notification: &solana.SignatureNotification{Slot: 10}}
		f := newFixture(t, func(o *Options) { o.Confirmer = conf })

		res, err := f.transfer(context.Background(), "req-conf", 1)
		require.NoError(t, err)
		assert.True(t, res.Confirmed)
		assert.Equal(t, []string{res.Signature}, conf.waited)

		rec, err := f.transfers.GetByRequestID(context.Background(), "req-conf")
		require.NoError(t, err)
		assert.True(t, rec.Confirmed)
	})

	t.Run("failed on chain", func(t *testing.T) {
		conf := &fakeConfirmer{notification: &solana.SignatureNotification{Slot: 10, Err: "InsufficientFundsForRent"}}
		f := newFixture(t, func(o *Options) { o.Confirmer = conf })

		res, err := f.transfer(context.Background(), "req-conf-err", 1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, res.Status)
		assert.False(t, res.Confirmed)
		assert.Equal(t, "InsufficientFundsForRent", res.ConfirmationError)
	})

	t.Run("timeout", func(t *testing.T) {
		conf := &fakeConfirmer{err: context.DeadlineExceeded}
		f := newFixture(t, func(o *Options) { o.Confirmer = conf })

		res, err := f.transfer(context.Background(), "req-conf-timeout", 1)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, res.Status)
		assert.False(t, res.Confirmed)
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want domain.ErrorKind
	}{
		{nil, domain.KindNone},
		{solana.ErrInvalidCharacter, domain.KindInvalidCharacter},
		{fmt.Errorf("recipient: %w", solana.ErrInvalidPublicKey), domain.KindInvalidPublicKey},
		{solana.ErrInvalidBlockhash, domain.KindInvalidBlockhash},
		{solana.ErrInvalidAmount, domain.KindInvalidAmount},
		{solana.ErrEmptyMessage, domain.KindInvalidMessage},
		{keytransport.ErrDecryptionFailed, domain.KindDecryptionFailed},
		{solana.ErrInvalidKeyLength, domain.KindInvalidKeyLength},
		{&solana.RPCError{Code: -1, Message: "x"}, domain.KindRPCError},
		{&solana.NetworkError{Op: "x", Err: errors.New("y")}, domain.KindNetworkError},
		{&solana.NetworkError{Op: "x", Err: context.Canceled}, domain.KindCancelled},
		{context.Canceled, domain.KindCancelled},
		{context.DeadlineExceeded, domain.KindNetworkError},
		{errors.New("boom"), domain.KindInternal},
		{&StageError{Stage: domain.StageSigned, Kind: domain.KindInternal, Err: errSelfCheck}, domain.KindInternal},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExplorerURL(t *testing.T) {
	tests := []struct {
		explorer Explorer
		want     string
	}{
		{DefaultExplorer, "https://explorer.solana.com/tx/abc?cluster=devnet"},
		{Explorer{Network: "solana.com", Cluster: "mainnet-beta"}, "https://explorer.solana.com/tx/abc?cluster=mainnet-beta"},
		{Explorer{Network: "example.org"}, "https://explorer.example.org/tx/abc"},
		{Explorer{Cluster: "testnet"}, "https://explorer.solana.com/tx/abc?cluster=testnet"},
	}
	for _, tt := range tests {
		if got := tt.explorer.URL("abc"); got != tt.want {
			t.Errorf("URL() = %q, want %q", got, tt.want)
		}
	}
}
