package engine

import (
	"crypto/sha256"

	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/keys"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// fixture bundles a signer's derived key material with a synthetic
// previous transaction paying a known amount to that key's P2PKH
// address, so tests can assemble host acks without hand-computing
// double-SHA-256 txids by hand.
type fixture struct {
	root       *keys.HDNode
	addressN   []uint32
	privkey    *keys.PrivateKey
	pubkey     [keys.PublicKeySize]byte
	ownHash160 [20]byte

	prevHash  [32]byte
	prevIndex uint32
	prevMeta  wire.PrevTxMeta
	prevIns   []wire.PrevTxInput
	prevOuts  []wire.PrevTxOutput
}

func newFixture(seed byte, amount uint64) *fixture {
	var seedBytes [32]byte
	for i := range seedBytes {
		seedBytes[i] = seed + byte(i)
	}
	root, err := keys.NewHDNodeFromSeed(seedBytes[:], nil)
	if err != nil {
		panic(err)
	}
	addressN := []uint32{keys.Hardened(44), keys.Hardened(0), keys.Hardened(0), 0, 0}
	privkey, err := root.DerivePath(addressN)
	if err != nil {
		panic(err)
	}
	pubkey := privkey.PublicKey()
	hash160 := keys.Hash160(pubkey[:])

	prevScriptPubKey := p2pkhScriptForTest(hash160)
	prevIn := wire.PrevTxInput{PrevHash: [32]byte{0xaa}, PrevIndex: 0, ScriptSig: []byte{0x00}, Sequence: 0xffffffff}
	prevOut := wire.PrevTxOutput{Amount: amount, ScriptPubKey: prevScriptPubKey}

	prevMeta := wire.PrevTxMeta{InputsCount: 1, OutputsCount: 1, Version: 1, LockTime: 0}
	txid := computeTxidForTest(prevMeta, []wire.PrevTxInput{prevIn}, []wire.PrevTxOutput{prevOut})

	return &fixture{
		root:       root,
		addressN:   addressN,
		privkey:    privkey,
		pubkey:     pubkey,
		ownHash160: hash160,
		prevHash:   txid,
		prevIndex:  0,
		prevMeta:   prevMeta,
		prevIns:    []wire.PrevTxInput{prevIn},
		prevOuts:   []wire.PrevTxOutput{prevOut},
	}
}

func (f *fixture) input() *wire.TxInput {
	return &wire.TxInput{
		PrevHash:   f.prevHash,
		PrevIndex:  f.prevIndex,
		ScriptType: wire.ScriptTypePayToAddress,
		AddressN:   append([]uint32(nil), f.addressN...),
		Sequence:   0xffffffff,
	}
}

// computeTxidForTest mirrors finishPrevTxWalk's reconstruction exactly,
// using the same codec package the engine itself uses, so the fixture's
// prevHash is guaranteed to match what the engine recomputes.
func computeTxidForTest(meta wire.PrevTxMeta, ins []wire.PrevTxInput, outs []wire.PrevTxOutput) [32]byte {
	h := sha256.New()
	c := codec.New(h, meta.InputsCount, meta.OutputsCount, false)
	c.WriteVersion(nil, meta.Version)
	for _, in := range ins {
		c.WriteInput(nil, codec.Input{PrevHash: in.PrevHash, PrevIndex: in.PrevIndex, ScriptSig: in.ScriptSig, Sequence: in.Sequence})
	}
	for _, out := range outs {
		c.WriteOutput(nil, codec.Output{Amount: out.Amount, ScriptPubKey: out.ScriptPubKey})
	}
	c.WriteLockTime(nil, meta.LockTime)

	first := sha256.Sum256(h.Sum(nil))
	return sha256.Sum256(first[:])
}

func p2pkhScriptForTest(hash160 [20]byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, 0x76, 0xa9, 0x14)
	out = append(out, hash160[:]...)
	out = append(out, 0x88, 0xac)
	return out
}
