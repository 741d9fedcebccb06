// Package orchestrator drives a transfer request through its lifecycle:
// RECEIVED → KEY_DECRYPTED → BLOCKHASH_FETCHED → MESSAGE_BUILT → SIGNED →
// SUBMITTED, or FAILED from any stage.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/solana"
	"solana-transfer-operator/internal/storage"
)

// Defaults for Options left at zero.
const (
	DefaultBlockhashAttempts = 3
	DefaultBlockhashRestarts = 2
	DefaultSubmitAttempts    = 3
	DefaultRetryInterval     = 250 * time.Millisecond
	DefaultSubmitTimeout     = solana.DefaultTimeout
	DefaultConfirmTimeout    = 30 * time.Second
	defaultPersistTimeout    = 5 * time.Second
)

// KeyDecrypter unwraps key envelopes. *keytransport.OperatorKey implements it.
type KeyDecrypter interface {
	Decrypt(envelope []byte) ([]byte, error)
}

var _ KeyDecrypter = (*keytransport.OperatorKey)(nil)

// Options for creating Orchestrator.
type Options struct {
	// Required
	Keys    KeyDecrypter
	Gateway solana.Gateway

	// Optional. Confirmer waits for the landing notification after submit;
	// the stores receive the audit trail.
	Confirmer       solana.Confirmer
	TransferStore   storage.TransferStore
	StageEventStore storage.StageEventStore
	Logger          *zap.Logger

	SystemProgram solana.PublicKey
	Explorer      Explorer

	// Retry bounds
	BlockhashAttempts int           // getLatestBlockhash calls per fetch on NetworkError
	BlockhashRestarts int           // rebuilds after a blockhash-expired rejection; negative disables
	SubmitAttempts    int           // sendTransaction calls per signed transaction
	RetryInterval     time.Duration // initial backoff between blockhash fetches

	// SubmitTimeout bounds submission once a signature exists. Submission
	// ignores caller cancellation so a produced signature is never dropped.
	SubmitTimeout  time.Duration
	ConfirmTimeout time.Duration

	Now func() time.Time
}

// Orchestrator runs transfer and pass-through signing requests.
// It is safe for concurrent use; requests share no mutable state.
type Orchestrator struct {
	keys      KeyDecrypter
	gateway   solana.Gateway
	confirmer solana.Confirmer
	transfers storage.TransferStore
	events    storage.StageEventStore
	logger    *zap.Logger

	systemProgram solana.PublicKey
	explorer      Explorer

	blockhashAttempts int
	blockhashRestarts int
	submitAttempts    int
	retryInterval     time.Duration
	submitTimeout     time.Duration
	confirmTimeout    time.Duration

	now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Keys == nil {
		return nil, errors.New("orchestrator: key decrypter is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("orchestrator: rpc gateway is required")
	}

	o := &Orchestrator{
		keys:              opts.Keys,
		gateway:           opts.Gateway,
		confirmer:         opts.Confirmer,
		transfers:         opts.TransferStore,
		events:            opts.StageEventStore,
		logger:            opts.Logger,
		systemProgram:     opts.SystemProgram,
		explorer:          opts.Explorer,
		blockhashAttempts: opts.BlockhashAttempts,
		blockhashRestarts: opts.BlockhashRestarts,
		submitAttempts:    opts.SubmitAttempts,
		retryInterval:     opts.RetryInterval,
		submitTimeout:     opts.SubmitTimeout,
		confirmTimeout:    opts.ConfirmTimeout,
		now:               opts.Now,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.explorer == (Explorer{}) {
		o.explorer = DefaultExplorer
	}
	if o.blockhashAttempts <= 0 {
		o.blockhashAttempts = DefaultBlockhashAttempts
	}
	switch {
	case o.blockhashRestarts < 0:
		o.blockhashRestarts = 0 // disabled
	case o.blockhashRestarts == 0:
		o.blockhashRestarts = DefaultBlockhashRestarts
	}
	if o.submitAttempts <= 0 {
		o.submitAttempts = DefaultSubmitAttempts
	}
	if o.retryInterval <= 0 {
		o.retryInterval = DefaultRetryInterval
	}
	if o.submitTimeout <= 0 {
		o.submitTimeout = DefaultSubmitTimeout
	}
	if o.confirmTimeout <= 0 {
		o.confirmTimeout = DefaultConfirmTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// TransferRequest asks for a System Program transfer from the key inside
// EncryptedKey to RecipientPubkey.
type TransferRequest struct {
	RequestID       string
	AmountLamports  int64
	RecipientPubkey string // Base58
	EncryptedKey    string // Base58 envelope
}

// SignRequest asks for a pre-built message to be signed and submitted as-is.
type SignRequest struct {
	RequestID    string
	Message      []byte
	EncryptedKey string // Base58 envelope
}

// Result is the outcome of one request. It is returned on failure too.
type Result struct {
	RequestID    string
	Kind         domain.RequestKind
	Status       domain.TransferStatus
	SenderPubkey string
	Signature    string
	ExplorerURL  string

	Attempts       int // signing attempts, > 1 after blockhash restarts
	SubmitAttempts int

	// Discarded is set when a signature was produced but never accepted.
	Discarded bool

	Confirmed         bool
	ConfirmationError string

	Error *StageError
}

// Transfer runs a transfer request to a terminal state. On failure the
// returned error is a *StageError and the Result describes the failure.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*Result, error) {
	r := o.begin(req.RequestID, domain.RequestTransfer)
	r.log = r.log.With(zap.String("recipient", req.RecipientPubkey), zap.Int64("lamports", req.AmountLamports))
	r.record.RecipientKey = &req.RecipientPubkey
	r.record.AmountLamports = &req.AmountLamports

	recipientBytes, err := solana.DecodeBase58(req.RecipientPubkey)
	if err != nil {
		return o.finish(ctx, r, failAt(domain.StageReceived, err))
	}
	recipient, err := solana.PublicKeyFromBytes(recipientBytes)
	if err != nil {
		return o.finish(ctx, r, failAt(domain.StageReceived, err))
	}
	if req.AmountLamports < 0 {
		return o.finish(ctx, r, failAt(domain.StageReceived, solana.ErrInvalidAmount))
	}
	if !solana.IsOnCurve(recipient) {
		r.log.Warn("recipient is not an ed25519 point (program derived address?)")
	}

	envelope, err := o.decodeEnvelope(req.EncryptedKey)
	if err != nil {
		return o.finish(ctx, r, err)
	}

	program := o.systemProgram
	build := func(sender solana.PublicKey, blockhash solana.Hash) ([]byte, error) {
		msg, err := solana.BuildTransferMessage(sender[:], recipient[:], req.AmountLamports, blockhash[:], program[:])
		if err != nil {
			return nil, err
		}
		return msg.MarshalBinary()
	}

	return o.execute(ctx, r, envelope, plan{build: build, needsBlockhash: true})
}

// SignAndSubmit signs req.Message without interpreting it and submits the
// single-signature transaction. No blockhash is fetched; the message already
// carries one, so a blockhash-expired rejection is final.
func (o *Orchestrator) SignAndSubmit(ctx context.Context, req SignRequest) (*Result, error) {
	r := o.begin(req.RequestID, domain.RequestSign)

	message, err := solana.RawMessage(req.Message)
	if err != nil {
		return o.finish(ctx, r, failAt(domain.StageReceived, err))
	}

	// Best effort, for the audit record only.
	if m, err := solana.UnmarshalMessage(message); err == nil {
		r.setBlockhash(m.RecentBlockhash.String())
	}

	envelope, err := o.decodeEnvelope(req.EncryptedKey)
	if err != nil {
		return o.finish(ctx, r, err)
	}

	build := func(solana.PublicKey, solana.Hash) ([]byte, error) {
		return message, nil
	}
	return o.execute(ctx, r, envelope, plan{build: build})
}

func (o *Orchestrator) decodeEnvelope(text string) ([]byte, error) {
	envelope, err := keytransport.DecodeEnvelope(text)
	if err == nil {
		return envelope, nil
	}
	if errors.Is(err, keytransport.ErrDecryptionFailed) {
		return nil, failAt(domain.StageKeyDecrypted, err)
	}
	return nil, failAt(domain.StageReceived, err)
}
