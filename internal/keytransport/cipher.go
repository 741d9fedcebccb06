// Package keytransport moves ephemeral signing keys from clients to the
// operator without exposing them in transit. Keys are wrapped with
// RSA-OAEP (SHA-256 for both the OAEP hash and MGF1, empty label) under the
// operator's long-lived RSA public key.
package keytransport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

var (
	// ErrDecryptionFailed is returned for any envelope that does not decrypt
	// under the operator key: wrong key, truncation or corruption.
	ErrDecryptionFailed = errors.New("key envelope decryption failed")

	// ErrPlaintextTooLong is returned when the key does not fit in one OAEP block.
	ErrPlaintextTooLong = errors.New("plaintext too long for RSA-OAEP block")
)

// Encrypt wraps raw under pub. Output is randomized; encrypting the same key
// twice yields different envelopes.
func Encrypt(raw []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil {
		return nil, errors.New("nil public key")
	}
	if len(raw) > MaxPlaintextSize(pub) {
		return nil, ErrPlaintextTooLong
	}
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("rsa-oaep encrypt: %w", err)
	}
	return out, nil
}

// Decrypt unwraps an envelope. The error never carries ciphertext or
// plaintext material.
func Decrypt(envelope []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil || len(envelope) != priv.Size() {
		return nil, ErrDecryptionFailed
	}
	out, err := rsa.DecryptOAEP(sha256.New(), nil, priv, envelope, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return out, nil
}

// MaxPlaintextSize is the largest payload one OAEP-SHA256 block can carry
// for pub (k - 2*hLen - 2).
func MaxPlaintextSize(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// Zero overwrites b in place. Callers zero raw keys as soon as they are no
// longer needed.
func Zero(b []byte) {
	clear(b)
}
