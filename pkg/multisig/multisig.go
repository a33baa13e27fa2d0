// Package multisig computes the fingerprint used to recognise change
// outputs that return value to the same multisig signer group.
//
// The exact bytes covered by a multisig fingerprint are, in general,
// defined by whatever crypto library binds the redeem-script format; this
// implementation fixes that contract as SHA-256 over the canonical
// concatenation of (m, sorted pubkeys), so any two calls describing the
// same signer group — regardless of pubkey order in the wire message —
// produce the same fingerprint. See DESIGN.md's Open Question 3 note.
package multisig

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/coldbolt/txsigner/pkg/wire"
)

// Fingerprint identifies a multisig signer group independent of pubkey
// ordering in the wire record.
type Fingerprint [32]byte

// Compute derives the fingerprint of a multisig redeem record.
//
// Returns an error (txerr.ErrMultisigFingerprint's cause) if the record is
// malformed — e.g. M is non-positive or exceeds the pubkey count.
func Compute(ms *wire.MultisigRedeem) (Fingerprint, error) {
	var fp Fingerprint
	if ms == nil {
		return fp, fmt.Errorf("multisig: nil redeem record")
	}
	if ms.M <= 0 || ms.M > len(ms.Pubkeys) {
		return fp, fmt.Errorf("multisig: invalid threshold %d for %d pubkeys", ms.M, len(ms.Pubkeys))
	}

	sorted := make([][33]byte, len(ms.Pubkeys))
	copy(sorted, ms.Pubkeys)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	h := sha256.New()
	h.Write([]byte{byte(ms.M)})
	for _, pk := range sorted {
		h.Write(pk[:])
	}
	copy(fp[:], h.Sum(nil))
	return fp, nil
}
