// Package codec implements the canonical byte layout of a Bitcoin-style
// transaction, streamed one input or output at a time.
//
// A Codec runs in one of two modes:
//
//   - hash mode: every call feeds a running SHA-256 context (or any
//     hash.Hash) and returns only the number of bytes that would have
//     been written;
//   - emit mode: every call appends to a caller-provided buffer and
//     returns the number of bytes written.
//
// The codec tracks how many inputs and outputs it has seen so it can
// place the VarInt count prefix at the right position without being told
// again on every call: version, VarInt(input count), each input in
// order, VarInt(output count), each output in order, lock time.
package codec

import (
	"encoding/binary"
	"hash"
)

// Codec streams one transaction's worth of inputs and outputs into either
// a running hash or an output buffer.
type Codec struct {
	inputsLen  uint32
	outputsLen uint32
	isSigning  bool

	inputCursor  uint32
	outputCursor uint32

	// hasher is non-nil in hash mode; emit mode leaves it nil and writes
	// directly to the destination buffer passed to each Write call
	// instead.
	hasher hash.Hash
}

// New constructs a Codec in hash mode, bound to hasher. isSigning selects
// whether the caller intends to substitute an empty scriptSig for every
// input other than the one being signed (Phase 2's sign_tx_hash); the
// codec itself does not enforce this, it only records the flag for
// IsSigning so callers building Input values can consult it.
func New(hasher hash.Hash, inputsLen, outputsLen uint32, isSigning bool) *Codec {
	return &Codec{inputsLen: inputsLen, outputsLen: outputsLen, isSigning: isSigning, hasher: hasher}
}

// NewEmit constructs a Codec in emit mode: WriteInput/WriteOutput append
// to the dst slice passed to each call instead of feeding a hash.
func NewEmit(inputsLen, outputsLen uint32, isSigning bool) *Codec {
	return New(nil, inputsLen, outputsLen, isSigning)
}

// Reset rewinds the cursor to the start of a fresh input/output walk and,
// if hasher is non-nil, replaces the running hash context. The engine
// does not call it: it builds a fresh Codec (and a fresh sign_tx_hash)
// for each Phase-2 input being signed.
func (c *Codec) Reset(hasher hash.Hash) {
	c.inputCursor = 0
	c.outputCursor = 0
	if hasher != nil {
		c.hasher = hasher
	}
}

func (c *Codec) write(dst *[]byte, p []byte) int {
	if c.hasher != nil {
		c.hasher.Write(p)
	} else if dst != nil {
		*dst = append(*dst, p...)
	}
	return len(p)
}

// PutVarInt returns the Bitcoin-style VarInt encoding of n.
func PutVarInt(n uint64) []byte {
	switch {
	case n < 0xfd:
		return []byte{byte(n)}
	case n <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return b
	case n <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(n))
		return b
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], n)
		return b
	}
}

// PutVarBytes returns data prefixed with its VarInt length.
func PutVarBytes(data []byte) []byte {
	out := PutVarInt(uint64(len(data)))
	return append(out, data...)
}

// PutUint32LE returns the little-endian encoding of n.
func PutUint32LE(n uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, n)
	return b
}

// PutUint64LE returns the little-endian encoding of n.
func PutUint64LE(n uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, n)
	return b
}

// Input is the canonical per-input record the codec serializes. The
// engine builds this from a wire.TxInput plus the scriptSig it wants
// hashed/emitted for that slot (empty for un-signed positions during
// Phase 2's sign_tx_hash construction).
type Input struct {
	PrevHash  [32]byte
	PrevIndex uint32
	ScriptSig []byte
	Sequence  uint32
}

// Output is the canonical per-output record: a compiled scriptPubKey plus
// its amount.
type Output struct {
	Amount       uint64
	ScriptPubKey []byte
}

// WriteInput serializes one input at the codec's current cursor position,
// writing the VarInt input-count prefix first if this is input 0. dst is
// used only in emit mode and may be nil in hash mode.
func (c *Codec) WriteInput(dst *[]byte, in Input) int {
	n := 0
	if c.inputCursor == 0 {
		n += c.write(dst, PutVarInt(uint64(c.inputsLen)))
	}
	n += c.write(dst, in.PrevHash[:])
	n += c.write(dst, PutUint32LE(in.PrevIndex))
	n += c.write(dst, PutVarBytes(in.ScriptSig))
	n += c.write(dst, PutUint32LE(in.Sequence))
	c.inputCursor++
	return n
}

// WriteOutput serializes one output at the codec's current cursor
// position, writing the VarInt output-count prefix first if this is
// output 0.
func (c *Codec) WriteOutput(dst *[]byte, out Output) int {
	n := 0
	if c.outputCursor == 0 {
		n += c.write(dst, PutVarInt(uint64(c.outputsLen)))
	}
	n += c.write(dst, PutUint64LE(out.Amount))
	n += c.write(dst, PutVarBytes(out.ScriptPubKey))
	c.outputCursor++
	return n
}

// WriteVersion writes the 4-byte little-endian transaction version. The
// caller writes this once, before the first WriteInput.
func (c *Codec) WriteVersion(dst *[]byte, version uint32) int {
	return c.write(dst, PutUint32LE(version))
}

// WriteLockTime writes the 4-byte little-endian lock time. The caller
// writes this once, after the last WriteOutput.
func (c *Codec) WriteLockTime(dst *[]byte, lockTime uint32) int {
	return c.write(dst, PutUint32LE(lockTime))
}

// IsSigning reports whether this codec was constructed for the
// signing-digest walk (sign_tx_hash), as opposed to a plain
// serialization/emission walk.
func (c *Codec) IsSigning() bool { return c.isSigning }

// Cursor reports how many inputs and outputs have been written so far.
// Test-support surface only.
func (c *Codec) Cursor() (inputs, outputs uint32) { return c.inputCursor, c.outputCursor }
