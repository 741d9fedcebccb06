package solana

import (
	"errors"

	"github.com/mr-tron/base58"
)

// ErrInvalidCharacter is returned when a Base58 string contains a character
// outside the Bitcoin alphabet.
var ErrInvalidCharacter = errors.New("base58: invalid character")

// EncodeBase58 encodes b with the Bitcoin alphabet.
// Each leading zero byte becomes a leading '1'.
func EncodeBase58(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return base58.Encode(b)
}

// DecodeBase58 decodes s. The empty string decodes to an empty slice.
func DecodeBase58(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, ErrInvalidCharacter
	}
	return b, nil
}
