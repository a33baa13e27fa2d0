package engine

import (
	"crypto/sha256"
	"fmt"

	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/script"
	"github.com/coldbolt/txsigner/pkg/txerr"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// beginPhase2InputWalkState resets the two running hashes for a fresh
// rescan of every input and output, seeding checksum_hash with the same
// 4-tuple Phase 1 used. Called once before idx1's REQ_4_INPUT sub-walk
// begins, whether that is the very first signing input or the next one
// after a prior input's signed fragment was emitted.
func (s *Session) beginPhase2InputWalkState() {
	s.signTxHash = newChecksumHasher()
	s.signCodec = codec.New(s.signTxHash, s.inputsCount, s.outputsCount, true)
	s.signCodec.WriteVersion(nil, txVersion)

	s.checksumHash = newChecksumHasher()
	seedChecksum(s.checksumHash, s.inputsCount, s.outputsCount)

	s.stage = StageReq4Input
	s.idx2 = 0
}

func (s *Session) handleReq4Input(ack wire.TxAck) (wire.TxRequest, error) {
	in := ack.Input
	if in == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	writeChecksumInput(s.checksumHash, in)

	var scriptSigForDigest []byte
	if s.idx2 == s.idx1 {
		held := cloneInput(in)
		s.heldInput = held

		privkey, err := s.root.DerivePath(held.AddressN)
		if err != nil {
			return wire.TxRequest{}, txerr.ErrDerivePrivateKeyFailed(err)
		}
		s.activePrivkey = privkey
		s.activePubkey = privkey.PublicKey()

		if held.ScriptType == wire.ScriptTypePayToMultisig {
			if held.Multisig == nil {
				return wire.TxRequest{}, txerr.ErrMultisigInfoNotProvided
			}
			s.activeIsMulti = true
			sub, err := script.CompileMultisigScriptPubKey(s.coin, held.Multisig)
			if err != nil {
				return wire.TxRequest{}, txerr.ErrSerializeMultisigScript(err)
			}
			scriptSigForDigest = sub
		} else {
			s.activeIsMulti = false
			scriptSigForDigest = script.CompileP2PKHScriptPubKeyForKey(s.activePubkey)
		}
	}

	s.signCodec.WriteInput(nil, codec.Input{
		PrevHash:  in.PrevHash,
		PrevIndex: in.PrevIndex,
		ScriptSig: scriptSigForDigest,
		Sequence:  in.Sequence,
	})

	s.idx2++
	if s.idx2 < s.inputsCount {
		return reqInput(s.idx2), nil
	}
	return s.enterPhase2OutputWalk()
}

func (s *Session) enterPhase2OutputWalk() (wire.TxRequest, error) {
	if s.outputsCount == 0 {
		return s.finishPhase2SigningInput()
	}
	s.idx2 = 0
	s.stage = StageReq4Output
	return reqOutput(0), nil
}

func (s *Session) handleReq4Output(ack wire.TxAck) (wire.TxRequest, error) {
	out := ack.Output
	if out == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	scriptPubKey, err := script.CompileOutputScriptPubKey(s.coin, out)
	if err != nil {
		return wire.TxRequest{}, txerr.ErrCompileOutputFailed
	}
	writeChecksumOutput(s.checksumHash, out.Amount, scriptPubKey)
	s.signCodec.WriteOutput(nil, codec.Output{Amount: out.Amount, ScriptPubKey: scriptPubKey})

	s.idx2++
	if s.idx2 < s.outputsCount {
		return reqOutput(s.idx2), nil
	}
	return s.finishPhase2SigningInput()
}

// finishPhase2SigningInput rebuilds hash from checksum_hash and requires
// it to equal hash_check (property 1), finalizes sign_tx_hash into the
// signing digest, produces the ECDSA signature and unlocking scriptSig
// for the current input, and emits the combined message that both
// carries the signed fragment and asks for the next thing the host must
// supply — the next input's REQ_4_INPUT walk, or the first REQ_5_OUTPUT
// once every input has been signed.
func (s *Session) finishPhase2SigningInput() (wire.TxRequest, error) {
	s.signCodec.WriteLockTime(nil, txLockTime)

	var recomputed [32]byte
	copy(recomputed[:], s.checksumHash.Sum(nil))
	if !s.hashCheckSet || recomputed != s.hashCheck {
		return wire.TxRequest{}, txerr.ErrTransactionChanged
	}

	first := sha256.Sum256(s.signTxHash.Sum(nil))
	digest := sha256.Sum256(first[:])

	sig := s.activePrivkey.Sign(digest)

	var scriptSig []byte
	if s.activeIsMulti {
		ms := s.heldInput.Multisig
		pos := indexOfPubkey(ms.Pubkeys, s.activePubkey)
		if pos < 0 {
			return wire.TxRequest{}, txerr.ErrPubkeyNotInMultisig
		}
		if ms.Signatures == nil {
			ms.Signatures = make([][]byte, len(ms.Pubkeys))
		}
		if ms.SignaturesOK == nil {
			ms.SignaturesOK = make([]bool, len(ms.Pubkeys))
		}
		ms.Signatures[pos] = sig
		ms.SignaturesOK[pos] = true

		built, err := script.CompileMultisigScriptSig(ms)
		if err != nil {
			return wire.TxRequest{}, txerr.ErrSerializeMultisigScript(err)
		}
		scriptSig = built
	} else {
		scriptSig = script.CompileP2PKHScriptSig(sig, s.activePubkey)
	}

	serialized, err := serializeRawInput(s.heldInput, scriptSig)
	if err != nil {
		s.zeroKeyMaterial()
		return wire.TxRequest{}, txerr.ErrSerializeInput(err)
	}

	signedIdx := s.idx1
	fragment := &wire.SerializedTxFragment{
		SignatureIndex: &signedIdx,
		Signature:      sig,
		SerializedTx:   serialized,
	}
	s.zeroKeyMaterial()

	s.idx1++
	if s.idx1 < s.inputsCount {
		s.beginPhase2InputWalkState()
		req := reqInput(0)
		req.Serialized = fragment
		return req, nil
	}

	s.idx1 = 0
	s.stage = StageReq5Output
	req := reqOutput(0)
	req.Serialized = fragment
	return req, nil
}

func (s *Session) handleReq5Output(ack wire.TxAck) (wire.TxRequest, error) {
	out := ack.Output
	if out == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	scriptPubKey, err := script.CompileOutputScriptPubKey(s.coin, out)
	if err != nil {
		return wire.TxRequest{}, txerr.ErrCompileOutputFailed
	}

	serialized, err := serializeRawOutput(out.Amount, scriptPubKey)
	if err != nil {
		return wire.TxRequest{}, txerr.ErrSerializeOutput(err)
	}
	fragment := &wire.SerializedTxFragment{SerializedTx: serialized}

	s.idx1++
	if s.idx1 < s.outputsCount {
		req := reqOutput(s.idx1)
		req.Serialized = fragment
		return req, nil
	}

	return wire.TxRequest{RequestType: wire.RequestTypeFinished, Serialized: fragment}, nil
}

// serializeRawInput builds the final signed-input fragment. A scriptSig
// beyond script.MaxScriptSize signals a malformed or adversarial
// multisig/redeem record rather than a legitimate spend, reported as the
// protocol's "Failed to serialize input" fault.
func serializeRawInput(in *wire.TxInput, scriptSig []byte) ([]byte, error) {
	if len(scriptSig) > script.MaxScriptSize {
		return nil, fmt.Errorf("engine: scriptSig of %d bytes exceeds max script size", len(scriptSig))
	}
	out := make([]byte, 0, 32+4+5+len(scriptSig)+4)
	out = append(out, in.PrevHash[:]...)
	out = append(out, codec.PutUint32LE(in.PrevIndex)...)
	out = append(out, codec.PutVarBytes(scriptSig)...)
	out = append(out, codec.PutUint32LE(in.Sequence)...)
	return out, nil
}

// serializeRawOutput builds the final output fragment, subject to the
// same script-size bound as serializeRawInput.
func serializeRawOutput(amount uint64, scriptPubKey []byte) ([]byte, error) {
	if len(scriptPubKey) > script.MaxScriptSize {
		return nil, fmt.Errorf("engine: scriptPubKey of %d bytes exceeds max script size", len(scriptPubKey))
	}
	out := make([]byte, 0, 8+5+len(scriptPubKey))
	out = append(out, codec.PutUint64LE(amount)...)
	out = append(out, codec.PutVarBytes(scriptPubKey)...)
	return out, nil
}

func indexOfPubkey(pubkeys [][33]byte, target [33]byte) int {
	for i, pk := range pubkeys {
		if pk == target {
			return i
		}
	}
	return -1
}

func cloneInput(in *wire.TxInput) *wire.TxInput {
	clone := *in
	if in.AddressN != nil {
		clone.AddressN = append([]uint32(nil), in.AddressN...)
	}
	if in.Multisig != nil {
		ms := *in.Multisig
		ms.Pubkeys = append([][33]byte(nil), in.Multisig.Pubkeys...)
		if in.Multisig.Signatures != nil {
			ms.Signatures = append([][]byte(nil), in.Multisig.Signatures...)
		}
		if in.Multisig.SignaturesOK != nil {
			ms.SignaturesOK = append([]bool(nil), in.Multisig.SignaturesOK...)
		}
		clone.Multisig = &ms
	}
	return &clone
}
