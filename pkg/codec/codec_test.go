package codec

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutVarInt(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{252, []byte{0xfc}},
		{253, []byte{0xfd, 0xfd, 0x00}},
		{0x1234, []byte{0xfd, 0x34, 0x12}},
		{0x12345678, []byte{0xfe, 0x78, 0x56, 0x34, 0x12}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, PutVarInt(c.n))
	}
}

func TestEmitModeMatchesHashModeByteLayout(t *testing.T) {
	in := Input{PrevHash: [32]byte{1, 2, 3}, PrevIndex: 7, ScriptSig: []byte{0xde, 0xad}, Sequence: 0xffffffff}
	out := Output{Amount: 5000, ScriptPubKey: []byte{0xbe, 0xef}}

	var emitted []byte
	emitCodec := NewEmit(1, 1, false)
	emitCodec.WriteVersion(&emitted, 1)
	emitCodec.WriteInput(&emitted, in)
	emitCodec.WriteOutput(&emitted, out)
	emitCodec.WriteLockTime(&emitted, 0)

	h := sha256.New()
	hashCodec := New(h, 1, 1, false)
	hashCodec.WriteVersion(nil, 1)
	hashCodec.WriteInput(nil, in)
	hashCodec.WriteOutput(nil, out)
	hashCodec.WriteLockTime(nil, 0)

	// The hash mode digest must equal SHA-256 of exactly the emitted
	// bytes: both modes walk the identical canonical layout.
	want := sha256.Sum256(emitted)
	got := h.Sum(nil)
	require.Len(t, got, 32)
	assert.Equal(t, want[:], got)
}

func TestCursorTracksWrites(t *testing.T) {
	c := NewEmit(2, 1, false)
	var buf []byte
	in, out := Input{}, Output{}
	c.WriteInput(&buf, in)
	c.WriteInput(&buf, in)
	c.WriteOutput(&buf, out)

	inputs, outputs := c.Cursor()
	assert.Equal(t, uint32(2), inputs)
	assert.Equal(t, uint32(1), outputs)
}

func TestResetRewindsCursor(t *testing.T) {
	c := NewEmit(1, 1, true)
	var buf []byte
	c.WriteInput(&buf, Input{})
	c.Reset(nil)
	inputs, outputs := c.Cursor()
	assert.Zero(t, inputs)
	assert.Zero(t, outputs)
	assert.True(t, c.IsSigning())
}
