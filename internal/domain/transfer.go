package domain

// RequestKind distinguishes the two inbound request types.
type RequestKind string

const (
	// RequestTransfer builds a System Program transfer.
	RequestTransfer RequestKind = "transfer"
	// RequestSign signs a caller-supplied message as-is.
	RequestSign RequestKind = "sign"
)

// String returns the string representation of RequestKind.
func (k RequestKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a valid value.
func (k RequestKind) IsValid() bool {
	return k == RequestTransfer || k == RequestSign
}

// TransferStatus is the terminal outcome of a request.
type TransferStatus string

const (
	StatusSubmitted TransferStatus = "submitted"
	StatusFailed    TransferStatus = "failed"
)

// TransferRecord is the audit trail of one request.
// Corresponds to transfer_records table in PostgreSQL.
// It never holds key material or envelopes.
type TransferRecord struct {
	RequestID      string         // PRIMARY KEY
	Kind           RequestKind    // transfer | sign
	Status         TransferStatus // submitted | failed
	FailedStage    *Stage         // stage that produced the error (nullable)
	ErrorKind      *ErrorKind     // nullable
	ErrorMessage   *string        // nullable
	SenderPubkey   *string        // Base58, nullable when decryption failed
	RecipientKey   *string        // Base58, transfer requests only
	AmountLamports *int64         // transfer requests only
	Signature      *string        // Base58 transaction id (nullable)
	Blockhash      *string        // Base58 blockhash the message was built on
	Attempts       int            // signing attempts including blockhash restarts
	SubmitAttempts int            // sendTransaction calls
	Confirmed      bool           // notification received before timeout
	ReceivedAt     int64          // Unix ms
	CompletedAt    int64          // Unix ms
}

// StageEvent is one state transition of a request.
// Corresponds to transfer_stage_events table in ClickHouse.
type StageEvent struct {
	RequestID   string
	Stage       Stage
	Attempt     int
	TimestampMs int64
	DurationMs  int64 // time since RECEIVED
}
