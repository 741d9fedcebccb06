package keytransport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"solana-transfer-operator/internal/solana"
)

// DefaultKeyBits is the operator key size produced by GenerateOperatorKey.
const DefaultKeyBits = 3072

// File names written by WriteKeyPair.
const (
	PrivateKeyFile = "operator_private.pem"
	PublicKeyFile  = "operator_public.pem"
)

// ErrInvalidPEM is returned when PEM input has no usable key block.
var ErrInvalidPEM = errors.New("invalid PEM key")

// GenerateOperatorKey creates a new RSA key pair.
func GenerateOperatorKey(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, fmt.Errorf("key size %d too small, need at least 2048", bits)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// MarshalPrivateKeyPEM encodes priv as PKCS#8 "PRIVATE KEY".
func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal pkcs8: %w", err)
	}
	defer Zero(der)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParsePrivateKeyPEM accepts PKCS#8 "PRIVATE KEY" or PKCS#1 "RSA PRIVATE KEY".
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		return priv, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key (%T)", ErrInvalidPEM, key)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
}

// MarshalPublicKeyPEM encodes pub as PKIX "PUBLIC KEY".
func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal pkix: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// ParsePublicKeyPEM accepts PKIX "PUBLIC KEY" or PKCS#1 "RSA PUBLIC KEY".
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		return pub, nil
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key (%T)", ErrInvalidPEM, key)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
}

// WriteKeyPair stores priv and its public half in dir. The private key file
// is created with 0600 and never overwritten.
func WriteKeyPair(dir string, priv *rsa.PrivateKey) (privPath, pubPath string, err error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", "", fmt.Errorf("create key dir: %w", err)
	}

	privPEM, err := MarshalPrivateKeyPEM(priv)
	if err != nil {
		return "", "", err
	}
	defer Zero(privPEM)

	pubPEM, err := MarshalPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return "", "", err
	}

	privPath = filepath.Join(dir, PrivateKeyFile)
	f, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", "", fmt.Errorf("create private key file: %w", err)
	}
	if _, err := f.Write(privPEM); err != nil {
		f.Close()
		return "", "", fmt.Errorf("write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close private key: %w", err)
	}

	pubPath = filepath.Join(dir, PublicKeyFile)
	if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
		return "", "", fmt.Errorf("write public key: %w", err)
	}
	return privPath, pubPath, nil
}

// EncodeEnvelope renders an envelope as Base58 text for the bus.
func EncodeEnvelope(envelope []byte) string {
	return solana.EncodeBase58(envelope)
}

// DecodeEnvelope parses Base58 envelope text.
func DecodeEnvelope(s string) ([]byte, error) {
	b, err := solana.DecodeBase58(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrDecryptionFailed
	}
	return b, nil
}
