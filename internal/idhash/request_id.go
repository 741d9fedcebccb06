// Package idhash derives deterministic identifiers from message content.
package idhash

import (
	"github.com/google/uuid"
)

// requestNamespace scopes name-based request ids to this operator.
var requestNamespace = uuid.MustParse("6f1d3c52-8a0e-4c1b-9b7e-2d54c0a1f3e9")

// RequestID returns a name-based (version 5) UUID of the raw request body.
// A message redelivered without an id maps to the same id, so the idempotency
// claim still catches it. Envelopes are encrypted with randomized padding, so
// two independently produced requests never share a body.
func RequestID(body []byte) string {
	return uuid.NewSHA1(requestNamespace, body).String()
}
