package solana

import (
	"encoding/binary"
	"fmt"
)

// MessageHeader counts how the account key table splits into signer and
// read-only groups.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts and the program by index into the
// message's account key table.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message. Account keys are ordered:
// signer+writable, signer+readonly, non-signer+writable, non-signer+readonly.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// systemInstructionTransfer is the System Program instruction index for a
// lamport transfer.
const systemInstructionTransfer uint32 = 2

// transferDataLen is u32 instruction index followed by u64 lamports.
const transferDataLen = 12

// EncodeTransferData returns the 12-byte System Program transfer payload.
func EncodeTransferData(lamports uint64) []byte {
	data := make([]byte, transferDataLen)
	binary.LittleEndian.PutUint32(data[0:4], systemInstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return data
}

// DecodeTransferData parses a System Program transfer payload.
func DecodeTransferData(data []byte) (uint64, error) {
	if len(data) != transferDataLen {
		return 0, fmt.Errorf("%w: transfer data must be %d bytes, got %d", ErrMalformedMessage, transferDataLen, len(data))
	}
	if ix := binary.LittleEndian.Uint32(data[0:4]); ix != systemInstructionTransfer {
		return 0, fmt.Errorf("%w: unexpected system instruction %d", ErrMalformedMessage, ix)
	}
	return binary.LittleEndian.Uint64(data[4:12]), nil
}

// BuildTransferMessage assembles a single-instruction System Program transfer
// from sender to recipient. sender signs and pays; recipient is writable;
// the program is a read-only non-signer.
func BuildTransferMessage(sender, recipient []byte, lamports int64, blockhash []byte, systemProgram []byte) (*Message, error) {
	if lamports < 0 {
		return nil, ErrInvalidAmount
	}
	from, err := PublicKeyFromBytes(sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	to, err := PublicKeyFromBytes(recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	program, err := PublicKeyFromBytes(systemProgram)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	if len(blockhash) != HashSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidBlockhash, len(blockhash))
	}
	var recent Hash
	copy(recent[:], blockhash)

	return &Message{
		Header: MessageHeader{
			NumRequiredSignatures:       1,
			NumReadonlySignedAccounts:   0,
			NumReadonlyUnsignedAccounts: 1,
		},
		AccountKeys:     []PublicKey{from, to, program},
		RecentBlockhash: recent,
		Instructions: []CompiledInstruction{{
			ProgramIDIndex: 2,
			Accounts:       []uint8{0, 1},
			Data:           EncodeTransferData(uint64(lamports)),
		}},
	}, nil
}

// RawMessage accepts pre-built message bytes for signing as-is.
func RawMessage(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrEmptyMessage
	}
	return b, nil
}

// MarshalBinary serializes the message into its wire form. The output is
// the exact buffer that gets signed.
func (m *Message) MarshalBinary() ([]byte, error) {
	if m.Header.NumRequiredSignatures < 1 {
		return nil, fmt.Errorf("%w: at least one signer required", ErrMalformedMessage)
	}
	if int(m.Header.NumRequiredSignatures) > len(m.AccountKeys) {
		return nil, fmt.Errorf("%w: %d signers but %d accounts", ErrMalformedMessage, m.Header.NumRequiredSignatures, len(m.AccountKeys))
	}
	if len(m.AccountKeys) > 256 {
		return nil, fmt.Errorf("%w: too many accounts", ErrMalformedMessage)
	}

	size := 3 + 3 + len(m.AccountKeys)*PublicKeySize + HashSize + 3
	for _, ix := range m.Instructions {
		size += 1 + 3 + len(ix.Accounts) + 3 + len(ix.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf,
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	)
	buf = appendShortVec(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)

	buf = appendShortVec(buf, len(m.Instructions))
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= len(m.AccountKeys) {
			return nil, fmt.Errorf("%w: instruction %d program index %d out of range", ErrMalformedMessage, i, ix.ProgramIDIndex)
		}
		if len(ix.Accounts) > maxShortVecLen || len(ix.Data) > maxShortVecLen {
			return nil, fmt.Errorf("%w: instruction %d too large", ErrMalformedMessage, i)
		}
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendShortVec(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = appendShortVec(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf, nil
}

// UnmarshalMessage parses the wire form produced by MarshalBinary.
func UnmarshalMessage(b []byte) (*Message, error) {
	r := &byteReader{buf: b}
	m := &Message{}

	header, err := r.next(3)
	if err != nil {
		return nil, err
	}
	m.Header = MessageHeader{
		NumRequiredSignatures:       header[0],
		NumReadonlySignedAccounts:   header[1],
		NumReadonlyUnsignedAccounts: header[2],
	}

	numKeys, err := r.shortVec()
	if err != nil {
		return nil, err
	}
	m.AccountKeys = make([]PublicKey, numKeys)
	for i := range m.AccountKeys {
		k, err := r.next(PublicKeySize)
		if err != nil {
			return nil, err
		}
		copy(m.AccountKeys[i][:], k)
	}

	bh, err := r.next(HashSize)
	if err != nil {
		return nil, err
	}
	copy(m.RecentBlockhash[:], bh)

	numIx, err := r.shortVec()
	if err != nil {
		return nil, err
	}
	m.Instructions = make([]CompiledInstruction, numIx)
	for i := range m.Instructions {
		p, err := r.next(1)
		if err != nil {
			return nil, err
		}
		n, err := r.shortVec()
		if err != nil {
			return nil, err
		}
		accounts, err := r.next(n)
		if err != nil {
			return nil, err
		}
		n, err = r.shortVec()
		if err != nil {
			return nil, err
		}
		data, err := r.next(n)
		if err != nil {
			return nil, err
		}
		m.Instructions[i] = CompiledInstruction{
			ProgramIDIndex: p[0],
			Accounts:       append([]uint8(nil), accounts...),
			Data:           append([]byte(nil), data...),
		}
	}

	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedMessage, r.remaining())
	}
	return m, nil
}

type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) next(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: unexpected end of input at offset %d", ErrMalformedMessage, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) shortVec() (int, error) {
	v, n, err := readShortVec(r.buf[r.off:])
	if err != nil {
		return 0, err
	}
	r.off += n
	return v, nil
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.off
}
