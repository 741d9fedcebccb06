package solana

import (
	"crypto/ed25519"

	"filippo.io/edwards25519"
)

// seed returns the Ed25519 seed portion of a raw private key. Keys are either
// a bare 32-byte seed or a 64-byte seed||pubkey; only the first 32 bytes count.
func seed(raw []byte) ([]byte, error) {
	if len(raw) < ed25519.SeedSize {
		return nil, ErrInvalidKeyLength
	}
	return raw[:ed25519.SeedSize], nil
}

// DerivePublicKey returns the account address controlled by raw.
func DerivePublicKey(raw []byte) (PublicKey, error) {
	s, err := seed(raw)
	if err != nil {
		return PublicKey{}, err
	}
	priv := ed25519.NewKeyFromSeed(s)
	defer clear(priv)

	var pub PublicKey
	copy(pub[:], priv[ed25519.SeedSize:])
	return pub, nil
}

// Sign produces a detached Ed25519 signature over message exactly as given.
// Signing is deterministic for a given key and message.
func Sign(message, raw []byte) (Signature, error) {
	s, err := seed(raw)
	if err != nil {
		return Signature{}, err
	}
	priv := ed25519.NewKeyFromSeed(s)
	defer clear(priv)

	var sig Signature
	copy(sig[:], ed25519.Sign(priv, message))
	return sig, nil
}

// Verify checks sig over message against pub.
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(pub[:], message, sig[:])
}

// IsOnCurve reports whether pub decodes to a valid Ed25519 point. Program
// derived addresses are deliberately off-curve and have no private key.
func IsOnCurve(pub PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pub[:])
	return err == nil
}
