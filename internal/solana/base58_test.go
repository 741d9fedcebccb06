package solana

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestBase58_KnownVectors(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		encoded string
	}{
		{"empty", []byte{}, ""},
		{"single zero", []byte{0}, "1"},
		{"leading zeros", []byte{0, 0, 1}, "112"},
		{"ascii", []byte("Hello World!"), "2NEpo7TZRRrLZSi2U"},
		{"system program", make([]byte, 32), strings.Repeat("1", 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeBase58(tt.input); got != tt.encoded {
				t.Errorf("EncodeBase58 = %q, want %q", got, tt.encoded)
			}
			got, err := DecodeBase58(tt.encoded)
			if err != nil {
				t.Fatalf("DecodeBase58: %v", err)
			}
			if !bytes.Equal(got, tt.input) {
				t.Errorf("DecodeBase58 = %x, want %x", got, tt.input)
			}
		})
	}
}

func TestBase58_RoundTripPreservesLeadingZeros(t *testing.T) {
	inputs := [][]byte{
		{0, 0, 0, 0},
		{0, 0xff, 0xfe},
		bytes.Repeat([]byte{0xff}, 64),
		append(make([]byte, 5), bytes.Repeat([]byte{0x80}, 27)...),
	}
	for _, in := range inputs {
		out, err := DecodeBase58(EncodeBase58(in))
		if err != nil {
			t.Fatalf("round trip %x: %v", in, err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("round trip %x = %x", in, out)
		}
	}
}

func TestBase58_InvalidCharacter(t *testing.T) {
	for _, s := range []string{"0", "O", "I", "l", "abc+", "11 1"} {
		if _, err := DecodeBase58(s); !errors.Is(err, ErrInvalidCharacter) {
			t.Errorf("DecodeBase58(%q) error = %v, want ErrInvalidCharacter", s, err)
		}
	}
}

func TestPublicKeyFromBase58(t *testing.T) {
	pk, err := PublicKeyFromBase58("11111111111111111111111111111111")
	if err != nil {
		t.Fatalf("PublicKeyFromBase58: %v", err)
	}
	if pk != SystemProgramID {
		t.Errorf("expected system program id, got %s", pk)
	}

	if _, err := PublicKeyFromBase58("2NEpo7TZRRrLZSi2U"); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("short key error = %v, want ErrInvalidPublicKey", err)
	}
	if _, err := PublicKeyFromBase58("0x1234"); !errors.Is(err, ErrInvalidCharacter) {
		t.Errorf("bad alphabet error = %v, want ErrInvalidCharacter", err)
	}
}
