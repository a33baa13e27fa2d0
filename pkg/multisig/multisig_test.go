package multisig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldbolt/txsigner/pkg/wire"
)

func pubkey(b byte) [33]byte {
	var pk [33]byte
	pk[0] = 0x02
	pk[32] = b
	return pk
}

func TestFingerprintIndependentOfPubkeyOrder(t *testing.T) {
	a := &wire.MultisigRedeem{M: 2, Pubkeys: [][33]byte{pubkey(1), pubkey(2), pubkey(3)}}
	b := &wire.MultisigRedeem{M: 2, Pubkeys: [][33]byte{pubkey(3), pubkey(1), pubkey(2)}}

	fpA, err := Compute(a)
	require.NoError(t, err)
	fpB, err := Compute(b)
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
}

func TestFingerprintDiffersOnThreshold(t *testing.T) {
	a := &wire.MultisigRedeem{M: 1, Pubkeys: [][33]byte{pubkey(1), pubkey(2)}}
	b := &wire.MultisigRedeem{M: 2, Pubkeys: [][33]byte{pubkey(1), pubkey(2)}}

	fpA, err := Compute(a)
	require.NoError(t, err)
	fpB, err := Compute(b)
	require.NoError(t, err)

	assert.NotEqual(t, fpA, fpB)
}

func TestComputeRejectsInvalidThreshold(t *testing.T) {
	_, err := Compute(&wire.MultisigRedeem{M: 0, Pubkeys: [][33]byte{pubkey(1)}})
	assert.Error(t, err)

	_, err = Compute(&wire.MultisigRedeem{M: 3, Pubkeys: [][33]byte{pubkey(1)}})
	assert.Error(t, err)

	_, err = Compute(nil)
	assert.Error(t, err)
}
