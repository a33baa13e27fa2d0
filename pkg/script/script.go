// Package script compiles scriptPubKey bytes for outputs and scriptSig
// bytes for signed inputs. It dispatches on wire.ScriptType rather than a
// boolean flag, per the polymorphic-input-variant design: PayToAddress
// and PayToMultisig are true variants, not a flag on a single shape.
package script

import (
	"fmt"

	"github.com/coldbolt/txsigner/pkg/coin"
	"github.com/coldbolt/txsigner/pkg/keys"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// MaxScriptSize is the maximum size, in bytes, of a scriptPubKey or
// scriptSig this engine will emit, matching Bitcoin's own standardness
// limit (MAX_SCRIPT_SIZE). A well-formed transaction never approaches
// this; a script that exceeds it indicates a malformed or adversarial
// multisig/address record rather than a legitimate spend.
const MaxScriptSize = 10000

// Bitcoin script opcodes used by the two script variants this engine
// supports.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opEqual       = 0x87
	opCheckMultisig = 0xae
	op1Base       = 0x50 // OP_1 through OP_16 = op1Base + n
)

// CompileOutputScriptPubKey produces the locking script for a
// wire.TxOutput, dispatching on ScriptType. This is the "compile output"
// step common to both the Phase-1 display walk and the Phase-2 rewalk.
func CompileOutputScriptPubKey(c coin.Params, out *wire.TxOutput) ([]byte, error) {
	switch out.ScriptType {
	case wire.ScriptTypePayToAddress:
		return compileP2PKHOrP2SHScriptPubKey(c, out.Address)
	case wire.ScriptTypePayToMultisig:
		if out.Multisig == nil {
			return nil, fmt.Errorf("script: multisig output missing redeem record")
		}
		return CompileMultisigScriptPubKey(c, out.Multisig)
	default:
		return nil, fmt.Errorf("script: unknown output script type %d", out.ScriptType)
	}
}

// compileP2PKHOrP2SHScriptPubKey decodes the address and builds either a
// P2PKH or P2SH locking script depending on which version byte the
// address carries.
func compileP2PKHOrP2SHScriptPubKey(c coin.Params, address string) ([]byte, error) {
	version, hash160, err := keys.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("script: decoding address: %w", err)
	}

	switch version {
	case c.AddressType:
		return p2pkhScriptPubKey(hash160), nil
	case c.P2SHAddressType:
		return p2shScriptPubKey(hash160), nil
	default:
		return nil, fmt.Errorf("script: address version 0x%02x does not match coin", version)
	}
}

// p2pkhScriptPubKey builds OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG.
func p2pkhScriptPubKey(hash160 [20]byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, opDup, opHash160, 0x14)
	out = append(out, hash160[:]...)
	out = append(out, opEqualVerify, opCheckSig)
	return out
}

// p2shScriptPubKey builds OP_HASH160 <20 bytes> OP_EQUAL.
func p2shScriptPubKey(hash160 [20]byte) []byte {
	out := make([]byte, 0, 23)
	out = append(out, opHash160, 0x14)
	out = append(out, hash160[:]...)
	out = append(out, opEqual)
	return out
}

// CompileP2PKHScriptPubKeyForKey builds a P2PKH locking script directly
// from a signer's own compressed pubkey, used when the input being spent
// is the engine's own key rather than a decoded address string.
func CompileP2PKHScriptPubKeyForKey(pubkey [keys.PublicKeySize]byte) []byte {
	return p2pkhScriptPubKey(keys.Hash160(pubkey[:]))
}

// CompileP2PKHScriptSig builds <sig> <pubkey>, the standard P2PKH
// unlocking script.
func CompileP2PKHScriptSig(sig []byte, pubkey [keys.PublicKeySize]byte) []byte {
	out := make([]byte, 0, 1+len(sig)+1+len(pubkey))
	out = append(out, pushData(sig)...)
	out = append(out, pushData(pubkey[:])...)
	return out
}

// CompileMultisigScriptPubKey builds the bare multisig redeem script:
// OP_m <pubkey1>...<pubkeyN> OP_n OP_CHECKMULTISIG. This is treated as
// the scriptPubKey directly (bare multisig), matching the simplicity
// budget of this engine (no P2SH wrapping of multisig is modeled).
func CompileMultisigScriptPubKey(c coin.Params, ms *wire.MultisigRedeem) ([]byte, error) {
	_ = c
	if ms.M <= 0 || ms.M > 16 || len(ms.Pubkeys) == 0 || len(ms.Pubkeys) > 16 {
		return nil, fmt.Errorf("script: multisig m/n out of range (m=%d n=%d)", ms.M, len(ms.Pubkeys))
	}

	out := make([]byte, 0, 3+len(ms.Pubkeys)*34)
	out = append(out, byte(op1Base+ms.M))
	for _, pk := range ms.Pubkeys {
		out = append(out, pushData(pk[:])...)
	}
	out = append(out, byte(op1Base+len(ms.Pubkeys)))
	out = append(out, opCheckMultisig)
	return out, nil
}

// CompileMultisigScriptSig builds OP_0 <sig1>...<sigK>, the standard
// CHECKMULTISIG unlocking script (the leading OP_0 works around
// CHECKMULTISIG's historical off-by-one bug), where K is however many
// signatures are currently present. A single signing session legitimately
// contributes only one signature toward an m-of-n cosigner set — the rest
// arrive from other sessions on other devices — so this serializes
// whatever is collected so far rather than requiring K == ms.M.
// Signatures must already be ordered to match ms.Pubkeys; the caller (the
// signing engine) is responsible for that ordering.
func CompileMultisigScriptSig(ms *wire.MultisigRedeem) ([]byte, error) {
	collected := make([][]byte, 0, len(ms.Pubkeys))
	for i, ok := range ms.SignaturesOK {
		if ok {
			collected = append(collected, ms.Signatures[i])
		}
	}
	if len(collected) == 0 {
		return nil, fmt.Errorf("script: multisig has no collected signatures")
	}

	out := make([]byte, 0, 1+len(collected)*74)
	out = append(out, 0x00) // OP_0
	for _, sig := range collected {
		out = append(out, pushData(sig)...)
	}
	return out, nil
}

// pushData prepends the minimal push opcode for data of this length.
// Only lengths up to OP_PUSHDATA2's range are needed here: signatures and
// pubkeys never approach 0xffff bytes.
func pushData(data []byte) []byte {
	switch {
	case len(data) <= 75:
		return append([]byte{byte(len(data))}, data...)
	case len(data) <= 0xff:
		return append([]byte{0x4c, byte(len(data))}, data...)
	default:
		return append([]byte{0x4d, byte(len(data)), byte(len(data) >> 8)}, data...)
	}
}
