package orchestrator

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/solana"
	"solana-transfer-operator/internal/solana/stub"
	"solana-transfer-operator/internal/storage/memory"
)

var (
	operatorOnce sync.Once
	operatorPriv *rsa.PrivateKey
	strangerPriv *rsa.PrivateKey
)

func operatorKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	operatorOnce.Do(func() {
		var err error
		if operatorPriv, err = keytransport.GenerateOperatorKey(2048); err != nil {
			panic(err)
		}
		if strangerPriv, err = keytransport.GenerateOperatorKey(2048); err != nil {
			panic(err)
		}
	})
	return operatorPriv, strangerPriv
}

var (
	testBlockhash = solana.Hash{0xab, 0xcd, 0xef, 0x01, 0x02, 0x03}
	testRecipient = solana.PublicKey{0x09, 0x08, 0x07, 0x06, 0x05}
)

// senderSeed returns a fresh copy of the sender's 32-byte seed.
func senderSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func senderPubkey(t *testing.T) solana.PublicKey {
	t.Helper()
	pub, err := solana.DerivePublicKey(senderSeed())
	require.NoError(t, err)
	return pub
}

// envelopeFor wraps raw under pub and returns the bus text form.
func envelopeFor(t *testing.T, raw []byte, pub *rsa.PublicKey) string {
	t.Helper()
	env, err := keytransport.Encrypt(raw, pub)
	require.NoError(t, err)
	return keytransport.EncodeEnvelope(env)
}

// recordingKeys remembers every decrypted buffer so tests can check zeroing.
type recordingKeys struct {
	inner KeyDecrypter

	mu     sync.Mutex
	handed [][]byte
}

func (k *recordingKeys) Decrypt(envelope []byte) ([]byte, error) {
	b, err := k.inner.Decrypt(envelope)
	if err == nil {
		k.mu.Lock()
		k.handed = append(k.handed, b)
		k.mu.Unlock()
	}
	return b, err
}

func (k *recordingKeys) calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.handed)
}

type fixture struct {
	orch      *Orchestrator
	gateway   *stub.Gateway
	keys      *recordingKeys
	transfers *memory.TransferStore
	events    *memory.StageEventStore
	envelope  string
}

// newFixture builds an orchestrator over a stub gateway, memory stores and
// a real operator key. mutate may adjust Options before construction.
func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	priv, _ := operatorKeys(t)
	opKey, err := keytransport.NewOperatorKey(priv)
	require.NoError(t, err)

	f := &fixture{
		gateway:   stub.NewGateway(testBlockhash),
		keys:      &recordingKeys{inner: opKey},
		transfers: memory.NewTransferStore(),
		events:    memory.NewStageEventStore(),
		envelope:  envelopeFor(t, senderSeed(), &priv.PublicKey),
	}

	opts := Options{
		Keys:            f.keys,
		Gateway:         f.gateway,
		TransferStore:   f.transfers,
		StageEventStore: f.events,
		RetryInterval:   time.Millisecond,
		SubmitTimeout:   5 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}

	f.orch, err = New(opts)
	require.NoError(t, err)
	return f
}

func (f *fixture) transfer(ctx context.Context, id string, lamports int64) (*Result, error) {
	return f.orch.Transfer(ctx, TransferRequest{
		RequestID:       id,
		AmountLamports:  lamports,
		RecipientPubkey: testRecipient.String(),
		EncryptedKey:    f.envelope,
	})
}

func (f *fixture) stages(t *testing.T, id string) []domain.Stage {
	t.Helper()
	events, err := f.events.GetByRequestID(context.Background(), id)
	require.NoError(t, err)
	out := make([]domain.Stage, len(events))
	for i, e := range events {
		out[i] = e.Stage
	}
	return out
}

func (f *fixture) assertKeysZeroed(t *testing.T) {
	t.Helper()
	f.keys.mu.Lock()
	defer f.keys.mu.Unlock()
	for i, b := range f.keys.handed {
		for _, v := range b {
			if v != 0 {
				t.Fatalf("decrypted key %d was not zeroed", i)
			}
		}
	}
}

func stageErrorOf(t *testing.T, err error) *StageError {
	t.Helper()
	require.Error(t, err)
	se, ok := err.(*StageError)
	require.True(t, ok, "expected *StageError, got %T: %v", err, err)
	return se
}

func contains(stages []domain.Stage, s domain.Stage) bool {
	for _, v := range stages {
		if v == s {
			return true
		}
	}
	return false
}
