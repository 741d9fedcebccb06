package solana

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors returned by the message builder and signer.
var (
	ErrInvalidPublicKey = errors.New("invalid public key: must be 32 bytes")
	ErrInvalidBlockhash = errors.New("invalid blockhash: must be 32 bytes")
	ErrInvalidAmount    = errors.New("invalid amount: lamports must be non-negative")
	ErrInvalidKeyLength = errors.New("invalid private key length: need at least 32 bytes")
	ErrEmptyMessage     = errors.New("empty message")
	ErrMalformedMessage = errors.New("malformed message")
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// NetworkError wraps a failure to obtain a well-formed RPC response:
// transport errors, timeouts, non-200 status or undecodable bodies.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsBlockhashExpired reports whether err is the node rejecting a transaction
// whose recent blockhash is no longer valid. Nodes report this as a -32002
// preflight failure carrying BlockhashNotFound.
func IsBlockhashExpired(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "blockhash not found") || strings.Contains(msg, "blockhashnotfound")
}
