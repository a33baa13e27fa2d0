package engine

import (
	"github.com/coldbolt/txsigner/pkg/multisig"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// classifyChange applies §4.3's three ordered rules. It only reads the
// session's multisig fingerprint bookkeeping for rule 1; that state is
// set from the inputs by noteInputForMultisigFingerprint.
//
// Open Question 1 is resolved here: has_address_type && address_type ==
// SPEND is strictly a spend, even when address_n_count > 0 — the legacy
// path (rule 3) only ever applies when the host omitted the field
// entirely.
func (s *Session) classifyChange(out *wire.TxOutput) (bool, error) {
	if out.ScriptType == wire.ScriptTypePayToMultisig && s.multisigFPSet && !s.multisigFPMismatch {
		if out.Multisig == nil {
			return false, nil
		}
		fp, err := multisig.Compute(out.Multisig)
		if err != nil {
			return false, err
		}
		if fp == s.multisigFP {
			return true, nil
		}
	}

	if out.HasAddressType {
		return out.AddressType == wire.AddressTypeChange &&
			len(out.AddressN) > 0 &&
			out.ScriptType == wire.ScriptTypePayToAddress, nil
	}

	return out.ScriptType == wire.ScriptTypePayToAddress && len(out.AddressN) > 0, nil
}

// noteInputForMultisigFingerprint updates multisig_fp/multisig_fp_set/
// multisig_fp_mismatch from input idx1's shape, per §4.3: the fingerprint
// is established from input 0 if it is SPENDMULTISIG; any later input
// that is not multisig, or whose fingerprint differs, permanently
// disables multisig-change detection for the rest of the session.
func (s *Session) noteInputForMultisigFingerprint(idx1 uint32, in *wire.TxInput) error {
	if s.multisigFPMismatch {
		return nil
	}

	if in.ScriptType != wire.ScriptTypePayToMultisig || in.Multisig == nil {
		if idx1 == 0 {
			s.multisigFPMismatch = true
		} else if s.multisigFPSet {
			s.multisigFPMismatch = true
		}
		return nil
	}

	fp, err := multisig.Compute(in.Multisig)
	if err != nil {
		return err
	}

	if idx1 == 0 {
		s.multisigFP = fp
		s.multisigFPSet = true
		return nil
	}

	if !s.multisigFPSet || fp != s.multisigFP {
		s.multisigFPMismatch = true
	}
	return nil
}
