package engine

import (
	"hash"

	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// seedChecksum writes the fixed 4-tuple (inputs_count, outputs_count,
// version, lock_time) that opens checksum_hash in both Phase 1 and every
// Phase-2 rescan. Version and lock_time are the engine's hardcoded
// constants, never the host's — see the Phase-2 pseudocode's closing
// note that version is fixed to 1 and lock_time to 0.
func seedChecksum(h hash.Hash, inputsCount, outputsCount uint32) {
	h.Write(codec.PutUint32LE(inputsCount))
	h.Write(codec.PutUint32LE(outputsCount))
	h.Write(codec.PutUint32LE(txVersion))
	h.Write(codec.PutUint32LE(txLockTime))
}

// writeChecksumInput folds one input into checksum_hash in "received
// form": the exact fields the host sent, independent of how the script
// compiler will later turn them into a scriptSig. Two calls with
// differently-ordered AddressN, a different ScriptType, or a different
// multisig threshold or pubkey list never produce the same bytes, which
// is what makes property 1 (two-pass consistency) catch host tampering.
// The multisig Signatures and SignaturesOK fields are not hashed.
func writeChecksumInput(h hash.Hash, in *wire.TxInput) {
	h.Write(in.PrevHash[:])
	h.Write(codec.PutUint32LE(in.PrevIndex))
	h.Write([]byte{byte(in.ScriptType)})
	h.Write(codec.PutVarInt(uint64(len(in.AddressN))))
	for _, index := range in.AddressN {
		h.Write(codec.PutUint32LE(index))
	}
	h.Write(codec.PutUint32LE(in.Sequence))
	if in.Multisig != nil {
		h.Write([]byte{byte(in.Multisig.M)})
		h.Write(codec.PutVarInt(uint64(len(in.Multisig.Pubkeys))))
		for _, pk := range in.Multisig.Pubkeys {
			h.Write(pk[:])
		}
	} else {
		h.Write([]byte{0x00})
	}
}

// writeChecksumOutput folds one output into checksum_hash in "compiled
// binary form": amount plus the scriptPubKey the script compiler
// produced for it. This is the same byte shape a codec.Output carries,
// without the VarInt output-count prefix (that count is already covered
// by seedChecksum).
func writeChecksumOutput(h hash.Hash, amount uint64, scriptPubKey []byte) {
	h.Write(codec.PutUint64LE(amount))
	h.Write(codec.PutVarBytes(scriptPubKey))
}
