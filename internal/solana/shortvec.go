package solana

import "fmt"

// maxShortVecLen is the largest length a compact-u16 prefix can carry.
const maxShortVecLen = 1<<16 - 1

// appendShortVec appends n as a compact-u16: 7 bits per byte, low group
// first, high bit set on every byte except the last.
func appendShortVec(dst []byte, n int) []byte {
	if n < 0 || n > maxShortVecLen {
		panic(fmt.Sprintf("shortvec length out of range: %d", n))
	}
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// readShortVec decodes a compact-u16 from the start of b and returns the
// value and the number of bytes consumed.
func readShortVec(b []byte) (int, int, error) {
	var v uint32
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("%w: truncated length prefix", ErrMalformedMessage)
		}
		c := b[i]
		v |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			if i > 0 && c == 0 {
				return 0, 0, fmt.Errorf("%w: non-canonical length prefix", ErrMalformedMessage)
			}
			if v > maxShortVecLen {
				return 0, 0, fmt.Errorf("%w: length prefix overflow", ErrMalformedMessage)
			}
			return int(v), i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: length prefix too long", ErrMalformedMessage)
}
