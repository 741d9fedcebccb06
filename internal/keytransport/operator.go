package keytransport

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrKeyClosed is returned by OperatorKey methods after Close.
var ErrKeyClosed = errors.New("operator key closed")

// OperatorKey holds the operator's RSA private key for the life of the
// process. It is read-only after load and safe for concurrent Decrypt.
type OperatorKey struct {
	mu     sync.RWMutex
	priv   *rsa.PrivateKey
	closed bool
}

// NewOperatorKey wraps an already-parsed private key.
func NewOperatorKey(priv *rsa.PrivateKey) (*OperatorKey, error) {
	if priv == nil {
		return nil, errors.New("nil private key")
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("validate operator key: %w", err)
	}
	priv.Precompute()
	return &OperatorKey{priv: priv}, nil
}

// LoadOperatorKey parses a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func LoadOperatorKey(pemBytes []byte) (*OperatorKey, error) {
	priv, err := ParsePrivateKeyPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	return NewOperatorKey(priv)
}

// LoadOperatorKeyFile reads and parses the key at path.
func LoadOperatorKeyFile(path string) (*OperatorKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operator key: %w", err)
	}
	defer Zero(data)
	return LoadOperatorKey(data)
}

// Decrypt unwraps a client envelope. The caller owns the returned key and
// must Zero it.
func (k *OperatorKey) Decrypt(envelope []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, ErrKeyClosed
	}
	return Decrypt(envelope, k.priv)
}

// PublicKey returns the public half for distribution to clients.
func (k *OperatorKey) PublicKey() (*rsa.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return nil, ErrKeyClosed
	}
	pub := k.priv.PublicKey
	return &pub, nil
}

// Close zeroes the private exponent, primes and CRT values, and drops the
// precomputed form cached by Precompute.
func (k *OperatorKey) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true

	p := k.priv
	if p.D != nil {
		clear(p.D.Bits())
		p.D.SetInt64(0)
	}
	for _, prime := range p.Primes {
		clear(prime.Bits())
		prime.SetInt64(0)
	}
	if p.Precomputed.Dp != nil {
		clear(p.Precomputed.Dp.Bits())
		clear(p.Precomputed.Dq.Bits())
		clear(p.Precomputed.Qinv.Bits())
	}
	for _, crt := range p.Precomputed.CRTValues {
		clear(crt.Exp.Bits())
		clear(crt.Coeff.Bits())
		clear(crt.R.Bits())
	}
	p.Precomputed = rsa.PrecomputedValues{}
	k.priv = nil
	return nil
}
