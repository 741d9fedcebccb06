package solana

import "context"

// Gateway defines the JSON-RPC calls needed to submit a transfer.
type Gateway interface {
	// GetLatestBlockhash returns the most recent blockhash at confirmed commitment.
	GetLatestBlockhash(ctx context.Context) (*LatestBlockhash, error)

	// SendTransaction submits a base64-encoded signed transaction and returns
	// the node-reported transaction id.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetSignatureStatuses looks up landing status for signatures.
	// A nil entry means the network has not seen that signature.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            Hash
	LastValidBlockHeight uint64
	Slot                 uint64
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64 // nil once rooted
	Err                interface{}
	ConfirmationStatus string // processed, confirmed or finalized
}

// Landed reports whether the transaction made it into a block without error.
func (s *SignatureStatus) Landed() bool {
	return s != nil && s.Err == nil
}
