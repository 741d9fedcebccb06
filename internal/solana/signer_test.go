package solana

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

// RFC 8032 section 7.1, test 1.
const (
	rfcSeed      = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	rfcPublicKey = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	rfcSignature = "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065" +
		"224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex: %v", err)
	}
	return b
}

func TestSign_RFC8032Vector(t *testing.T) {
	seed := mustHex(t, rfcSeed)

	pub, err := DerivePublicKey(seed)
	if err != nil {
		t.Fatalf("DerivePublicKey: %v", err)
	}
	if !bytes.Equal(pub[:], mustHex(t, rfcPublicKey)) {
		t.Errorf("public key = %x, want %s", pub[:], rfcPublicKey)
	}

	sig, err := Sign(nil, seed)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !bytes.Equal(sig[:], mustHex(t, rfcSignature)) {
		t.Errorf("signature = %x, want %s", sig[:], rfcSignature)
	}
	if !Verify(pub, nil, sig) {
		t.Error("Verify rejected a valid signature")
	}
}

func TestSign_SixtyFourByteKeyUsesSeed(t *testing.T) {
	seed := mustHex(t, rfcSeed)
	full := append(append([]byte{}, seed...), mustHex(t, rfcPublicKey)...)
	msg := []byte("transfer")

	a, err := Sign(msg, seed)
	if err != nil {
		t.Fatalf("Sign(seed): %v", err)
	}
	b, err := Sign(msg, full)
	if err != nil {
		t.Fatalf("Sign(full): %v", err)
	}
	if a != b {
		t.Error("64-byte key produced a different signature than its seed")
	}
}

func TestSign_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)
	msg := []byte("same message")

	a, _ := Sign(msg, seed)
	b, _ := Sign(msg, seed)
	if a != b {
		t.Error("signatures differ for identical input")
	}
}

func TestVerify_TamperedMessage(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)
	pub, _ := DerivePublicKey(seed)
	msg := []byte{1, 2, 3, 4}

	sig, err := Sign(msg, seed)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := []byte{1, 2, 3, 5}
	if Verify(pub, tampered, sig) {
		t.Error("Verify accepted a signature over a different message")
	}
	sig[0] ^= 0xff
	if Verify(pub, msg, sig) {
		t.Error("Verify accepted a corrupted signature")
	}
}

func TestSign_InvalidKeyLength(t *testing.T) {
	if _, err := Sign([]byte("x"), make([]byte, 31)); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("Sign error = %v, want ErrInvalidKeyLength", err)
	}
	if _, err := DerivePublicKey(nil); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("DerivePublicKey error = %v, want ErrInvalidKeyLength", err)
	}
}

func TestIsOnCurve(t *testing.T) {
	pub, err := DerivePublicKey(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("DerivePublicKey: %v", err)
	}
	if !IsOnCurve(pub) {
		t.Error("derived public key should be on curve")
	}

	var nonCanonical PublicKey
	for i := range nonCanonical {
		nonCanonical[i] = 0xff
	}
	if IsOnCurve(nonCanonical) {
		t.Error("non-canonical encoding should not be on curve")
	}
}
