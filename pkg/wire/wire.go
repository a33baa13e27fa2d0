// Package wire defines the payload shapes carried by the host protocol
// that drives the signing engine. The framing that puts these on the USB
// transport is out of scope for this module — these are pure data types,
// the same way a hardware wallet's firmware treats its protobuf message
// definitions as fixed wire contracts the signing core consumes and
// produces without knowing how they were transported.
package wire

// RequestType is the outbound TxRequest's request_type field.
type RequestType int

const (
	RequestTypeInput RequestType = iota
	RequestTypeOutput
	RequestTypeMeta
	RequestTypeFinished
)

// TxRequest is the engine's outbound message. Exactly one is emitted per
// call to Engine.OnAck (or Engine.Start).
type TxRequest struct {
	RequestType RequestType

	// RequestIndex names the input or output being asked for on
	// RequestTypeInput and RequestTypeOutput requests; TxHash is set
	// instead on RequestTypeMeta requests.
	RequestIndex *uint32
	TxHash       []byte // set only for RequestTypeMeta: which prev-tx to unpack

	// Serialized carries a signed fragment ready to append to the final
	// transaction. Set only on REQ_4_INPUT and REQ_5_OUTPUT responses.
	Serialized *SerializedTxFragment
}

// SerializedTxFragment is the signed/serialized payload attached to a
// Phase-2 TxRequest.
type SerializedTxFragment struct {
	// SignatureIndex identifies which input this fragment signs; present
	// only when Signature is present.
	SignatureIndex *uint32
	Signature      []byte // DER-encoded, present only for input fragments
	SerializedTx   []byte // raw input or output bytes
}

// AddressType distinguishes a spend output from a change output when the
// host provides the field explicitly.
type AddressType int

const (
	AddressTypeSpend AddressType = iota
	AddressTypeChange
)

// ScriptType names the two input/output script variants the engine
// dispatches on. Polymorphic input/output variants per the design notes:
// the script compiler and signature serializer switch on this, not a bool.
type ScriptType int

const (
	ScriptTypePayToAddress ScriptType = iota
	ScriptTypePayToMultisig
)

// MultisigRedeem is the multisig record carried by an input or a
// PAYTOMULTISIG output.
type MultisigRedeem struct {
	M            int          // signatures required
	Pubkeys      [][33]byte   // pubkeys in canonical script order
	Signatures   [][]byte     // DER signatures, aligned to Pubkeys by index; nil until signed
	SignaturesOK []bool       // parallel to Signatures: whether that slot is populated
}

// TxInput is the host-supplied record for one transaction input (used
// identically in Phase 1's REQ_1_INPUT and Phase 2's REQ_4_INPUT — the
// host is expected to answer with the same bytes both times).
type TxInput struct {
	PrevHash  [32]byte
	PrevIndex uint32
	ScriptType ScriptType
	AddressN  []uint32 // BIP-32 path to the signing key; nil for multisig-only spends without single-key ownership
	Multisig  *MultisigRedeem
	Sequence  uint32
}

// TxOutput is the host-supplied record for one transaction output (used
// identically in Phase 1's REQ_3_OUTPUT and Phase 2's REQ_4_OUTPUT/
// REQ_5_OUTPUT).
type TxOutput struct {
	Amount     uint64
	ScriptType ScriptType

	// Address is set for ScriptTypePayToAddress outputs.
	Address string

	// Multisig is set for ScriptTypePayToMultisig outputs.
	Multisig *MultisigRedeem

	// HasAddressType reports whether the host included the AddressType
	// field at all — the legacy classifier path (spec §4.3 rule 3)
	// applies only when it did not.
	HasAddressType bool
	AddressType    AddressType

	// AddressN is populated (len > 0) when this output pays back to the
	// signer's own wallet at this derivation path; required for legacy
	// change detection and for CHANGE/PAYTOADDRESS detection.
	AddressN []uint32
}

// PrevTxMeta is the previous transaction's header, requested via
// REQ_2_PREV_META and answered with inputs_cnt/outputs_cnt/version/
// lock_time.
type PrevTxMeta struct {
	InputsCount  uint32
	OutputsCount uint32
	Version      uint32
	LockTime     uint32
}

// PrevTxInput is one input of the previous transaction, streamed during
// REQ_2_PREV_INPUT purely to be re-hashed into the reconstructed txid.
type PrevTxInput struct {
	PrevHash  [32]byte
	PrevIndex uint32
	ScriptSig []byte
	Sequence  uint32
}

// PrevTxOutput is one output of the previous transaction, streamed during
// REQ_2_PREV_OUTPUT; its amount is added to to_spend when its index
// matches the spending input's PrevIndex.
type PrevTxOutput struct {
	Amount       uint64
	ScriptPubKey []byte
}

// TxAck is the host's inbound response, carrying one payload pointer
// that matches the current stage's expected shape. The engine reads only
// that pointer: if it is nil, the ack is rejected with a
// txerr.KindOther failure; the other pointers are ignored.
type TxAck struct {
	Input        *TxInput
	Output       *TxOutput
	PrevMeta     *PrevTxMeta
	PrevInput    *PrevTxInput
	PrevOutput   *PrevTxOutput
}

// Metadata is the fixed 4-tuple seeded into checksum_hash at the start of
// both Phase 1 and every Phase-2 rescan: (inputs_count, outputs_count,
// version, lock_time). Version and LockTime are carried as fields (rather
// than baked-in constants) so the codec is not hardcoded to them, but the
// engine itself only ever seeds Version=1, LockTime=0, per spec.
type Metadata struct {
	InputsCount  uint32
	OutputsCount uint32
	Version      uint32
	LockTime     uint32
}
