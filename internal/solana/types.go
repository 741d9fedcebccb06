package solana

import "fmt"

// Fixed sizes of the on-chain primitives.
const (
	PublicKeySize = 32
	HashSize      = 32
	SignatureSize = 64
)

// PublicKey is a 32-byte Ed25519 account address.
type PublicKey [PublicKeySize]byte

// SystemProgramID is the address of the native System Program
// ("11111111111111111111111111111111").
var SystemProgramID = PublicKey{}

// String returns the Base58 address.
func (p PublicKey) String() string {
	return EncodeBase58(p[:])
}

// Bytes returns a copy of the key bytes.
func (p PublicKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, p[:])
	return b
}

// PublicKeyFromBytes validates length and copies b into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var p PublicKey
	if len(b) != PublicKeySize {
		return p, fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// PublicKeyFromBase58 decodes a Base58 address.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	b, err := DecodeBase58(s)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromBytes(b)
}

// Hash is a 32-byte recent blockhash.
type Hash [HashSize]byte

func (h Hash) String() string {
	return EncodeBase58(h[:])
}

// HashFromBase58 decodes a Base58 blockhash as returned by getLatestBlockhash.
func HashFromBase58(s string) (Hash, error) {
	var h Hash
	b, err := DecodeBase58(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: got %d bytes", ErrInvalidBlockhash, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Signature is a 64-byte Ed25519 signature. Its Base58 form is the
// transaction id.
type Signature [SignatureSize]byte

func (s Signature) String() string {
	return EncodeBase58(s[:])
}
