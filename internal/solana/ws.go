package solana

import "context"

// Confirmer waits for a submitted transaction to reach a commitment level.
type Confirmer interface {
	// WaitForSignature blocks until the node reports the signature at the
	// client's commitment, or ctx ends.
	WaitForSignature(ctx context.Context, signature string) (*SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification is the payload of signatureNotification.
type SignatureNotification struct {
	Signature string
	Slot      uint64
	Err       interface{} // nil when the transaction succeeded
}
