package engine

import (
	"crypto/sha256"
	"hash"

	"go.uber.org/zap"

	"github.com/coldbolt/txsigner/pkg/coin"
	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/confirm"
	"github.com/coldbolt/txsigner/pkg/keys"
	"github.com/coldbolt/txsigner/pkg/multisig"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// Stage is the tagged variant driving the message handler: each value has
// a distinct expected TxAck payload shape.
type Stage int

const (
	StageReq1Input Stage = iota
	StageReq2PrevMeta
	StageReq2PrevInput
	StageReq2PrevOutput
	StageReq3Output
	StageReq4Input
	StageReq4Output
	StageReq5Output
)

func (s Stage) String() string {
	switch s {
	case StageReq1Input:
		return "REQ_1_INPUT"
	case StageReq2PrevMeta:
		return "REQ_2_PREV_META"
	case StageReq2PrevInput:
		return "REQ_2_PREV_INPUT"
	case StageReq2PrevOutput:
		return "REQ_2_PREV_OUTPUT"
	case StageReq3Output:
		return "REQ_3_OUTPUT"
	case StageReq4Input:
		return "REQ_4_INPUT"
	case StageReq4Output:
		return "REQ_4_OUTPUT"
	case StageReq5Output:
		return "REQ_5_OUTPUT"
	default:
		return "UNKNOWN"
	}
}

// The engine's two hardcoded transaction fields. The design notes are
// explicit that newer transaction versions are out of scope: every
// checksum and signing digest is seeded with these constants regardless
// of anything the host sends.
const (
	txVersion  uint32 = 1
	txLockTime uint32 = 0
)

// Session is the owned state of one signing run. A nil *Session (held by
// Engine) is the "no session active" state; every field here exists only
// while a signing is in progress, matching invariant 1.
type Session struct {
	inputsCount  uint32
	outputsCount uint32
	coin         coin.Params
	root         *keys.HDNode
	prompter     confirm.Prompter
	log          *zap.Logger

	stage Stage
	idx1  uint32
	idx2  uint32

	toSpend     uint64
	spending    uint64
	changeSpend uint64
	changeSeen  bool

	heldInput *wire.TxInput

	checksumHash hash.Hash
	hashCheck    [32]byte
	hashCheckSet bool

	prevTxHash       hash.Hash
	prevCodec        *codec.Codec
	prevInputsCount  uint32
	prevOutputsCount uint32
	prevLockTime     uint32

	signTxHash hash.Hash
	signCodec  *codec.Codec

	multisigFP         multisig.Fingerprint
	multisigFPSet      bool
	multisigFPMismatch bool

	activePrivkey *keys.PrivateKey
	activePubkey  [keys.PublicKeySize]byte
	activeIsMulti bool
}

// zeroKeyMaterial wipes every trace of the currently-derived signing key.
// Called on every session exit path: completion, abort, cancellation, and
// protocol failure, per invariant 4 and testable property 7.
func (s *Session) zeroKeyMaterial() {
	if s.activePrivkey != nil {
		s.activePrivkey.Zero()
		s.activePrivkey = nil
	}
	for i := range s.activePubkey {
		s.activePubkey[i] = 0
	}
}

func newChecksumHasher() hash.Hash { return sha256.New() }
