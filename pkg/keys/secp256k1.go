// Package keys wraps the secp256k1 ECDSA and HD-node primitives the signing
// engine treats as external, fixed-contract libraries: it never implements
// elliptic-curve arithmetic itself, only key handling around it.
package keys

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // HASH160 requires RIPEMD160 by protocol, not by choice
)

// PrivateKeySize is the length of a raw secp256k1 private key in bytes.
const PrivateKeySize = 32

// PublicKeySize is the length of a compressed secp256k1 public key.
const PublicKeySize = 33

// PrivateKey is a secp256k1 signing key. The zero value is not usable;
// construct with PrivateKeyFromBytes.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PrivateKeyFromBytes wraps 32 raw private key bytes.
func PrivateKeyFromBytes(raw [PrivateKeySize]byte) *PrivateKey {
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(raw[:])}
}

// Sign produces a DER-encoded ECDSA signature over a 32-byte digest. The
// caller is responsible for appending any sighash-type byte; this layer
// never does, per the engine's signature-encoding contract.
func (pk *PrivateKey) Sign(digest [32]byte) []byte {
	sig := ecdsa.Sign(pk.key, digest[:])
	return sig.Serialize()
}

// PublicKey derives the compressed public key for this private key.
func (pk *PrivateKey) PublicKey() [PublicKeySize]byte {
	var out [PublicKeySize]byte
	copy(out[:], pk.key.PubKey().SerializeCompressed())
	return out
}

// Zero overwrites the private key's scalar bytes with zero. Called on every
// session exit path (success, abort, cancel, protocol failure).
func (pk *PrivateKey) Zero() {
	if pk == nil || pk.key == nil {
		return
	}
	pk.key.Zero()
}

// VerifySignature checks a DER-encoded ECDSA signature against a compressed
// public key and digest. Used only by tests; the engine itself never
// verifies its own signatures before emitting them.
func VerifySignature(pubkey [PublicKeySize]byte, digest [32]byte, derSig []byte) bool {
	pk, err := secp256k1.ParsePubKey(pubkey[:])
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false
	}
	return sig.Verify(digest[:], pk)
}

// Hash160 computes RIPEMD160(SHA256(data)), the pubkey-hash function used
// throughout P2PKH and P2SH script compilation.
func Hash160(data []byte) [20]byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DoubleSHA256 computes SHA256(SHA256(data)), used for txids and the
// signing digest.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}
