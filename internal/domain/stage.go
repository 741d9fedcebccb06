package domain

// Stage is a state of the transfer lifecycle.
type Stage string

const (
	StageReceived         Stage = "RECEIVED"
	StageKeyDecrypted     Stage = "KEY_DECRYPTED"
	StageBlockhashFetched Stage = "BLOCKHASH_FETCHED"
	StageMessageBuilt     Stage = "MESSAGE_BUILT"
	StageSigned           Stage = "SIGNED"
	StageSubmitted        Stage = "SUBMITTED"
	StageFailed           Stage = "FAILED"
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks if the stage is a valid value.
func (s Stage) IsValid() bool {
	switch s {
	case StageReceived, StageKeyDecrypted, StageBlockhashFetched, StageMessageBuilt,
		StageSigned, StageSubmitted, StageFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageSubmitted || s == StageFailed
}

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInvalidCharacter ErrorKind = "InvalidCharacter"
	KindInvalidPublicKey ErrorKind = "InvalidPublicKey"
	KindInvalidBlockhash ErrorKind = "InvalidBlockhash"
	KindInvalidAmount    ErrorKind = "InvalidAmount"
	KindInvalidMessage   ErrorKind = "InvalidMessage"
	KindDecryptionFailed ErrorKind = "DecryptionFailed"
	KindInvalidKeyLength ErrorKind = "InvalidKeyLength"
	KindRPCError         ErrorKind = "RpcError"
	KindNetworkError     ErrorKind = "NetworkError"
	KindCancelled        ErrorKind = "Cancelled"
	KindInternal         ErrorKind = "Internal"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}
