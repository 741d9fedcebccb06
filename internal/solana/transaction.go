package solana

import (
	"encoding/base64"
	"fmt"
)

// Transaction is a signed transaction: compact-u16 signature count, the
// signatures, then the serialized message they cover.
type Transaction struct {
	Signatures []Signature
	Message    []byte
}

// NewTransaction wraps already-serialized message bytes with a single
// fee-payer signature.
func NewTransaction(message []byte, sig Signature) *Transaction {
	return &Transaction{
		Signatures: []Signature{sig},
		Message:    message,
	}
}

// ID returns the transaction id (Base58 of the first signature).
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return tx.Signatures[0].String()
}

// MarshalBinary returns the wire form.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: transaction has no signatures", ErrMalformedMessage)
	}
	if len(tx.Message) == 0 {
		return nil, ErrEmptyMessage
	}
	buf := make([]byte, 0, 3+len(tx.Signatures)*SignatureSize+len(tx.Message))
	buf = appendShortVec(buf, len(tx.Signatures))
	for _, s := range tx.Signatures {
		buf = append(buf, s[:]...)
	}
	return append(buf, tx.Message...), nil
}

// Base64 returns the wire form encoded for sendTransaction.
func (tx *Transaction) Base64() (string, error) {
	b, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ParseTransaction is the inverse of MarshalBinary. The message bytes are
// kept opaque.
func ParseTransaction(b []byte) (*Transaction, error) {
	r := &byteReader{buf: b}
	n, err := r.shortVec()
	if err != nil {
		return nil, err
	}
	tx := &Transaction{Signatures: make([]Signature, n)}
	for i := range tx.Signatures {
		s, err := r.next(SignatureSize)
		if err != nil {
			return nil, err
		}
		copy(tx.Signatures[i][:], s)
	}
	rest, _ := r.next(r.remaining())
	tx.Message = append([]byte(nil), rest...)
	return tx, nil
}

// ParseTransactionBase64 decodes a base64 wire transaction.
func ParseTransactionBase64(s string) (*Transaction, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 transaction: %w", err)
	}
	return ParseTransaction(b)
}
