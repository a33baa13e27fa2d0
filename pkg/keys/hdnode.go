package keys

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// HDNode is the BIP-32 extended key the signing session derives every
// per-input signing key from. The engine only ever calls DerivePath on it; it
// never inspects or persists chain code or key material beyond one
// derived child at a time.
type HDNode struct {
	key     *hdkeychain.ExtendedKey
	network *chaincfg.Params
}

// NewHDNodeFromSeed derives a master extended key from a BIP-39 seed. This
// is the `root` referenced by `start(inputs_count, outputs_count, coin,
// root)` in the session data model.
func NewHDNodeFromSeed(seed []byte, network *chaincfg.Params) (*HDNode, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, fmt.Errorf("keys: seed must be 16-64 bytes, got %d", len(seed))
	}
	if network == nil {
		network = &chaincfg.MainNetParams
	}
	master, err := hdkeychain.NewMaster(seed, network)
	if err != nil {
		return nil, fmt.Errorf("keys: deriving master key: %w", err)
	}
	return &HDNode{key: master, network: network}, nil
}

// DerivePath walks a BIP-32 path (each element already encoded as a
// hardened or non-hardened index, i.e. address_n as delivered by the
// host) and returns the private key at that path.
//
// This is the "derive active node from root via input.address_n path"
// step of Phase 2. A derivation failure is always reported to the host as
// txerr.ErrDerivePrivateKeyFailed, never as a raw library error.
func (n *HDNode) DerivePath(addressN []uint32) (*PrivateKey, error) {
	current := n.key
	for _, index := range addressN {
		child, err := current.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("keys: deriving index %d: %w", index, err)
		}
		current = child
	}

	ecKey, err := current.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("keys: extracting private key: %w", err)
	}

	var raw [PrivateKeySize]byte
	copy(raw[:], ecKey.Serialize())
	pk := PrivateKeyFromBytes(raw)

	// The intermediate scalar bytes are no longer needed once copied into
	// pk; overwrite them so a single derivation doesn't leave two live
	// copies of the same private scalar in memory.
	for i := range raw {
		raw[i] = 0
	}

	return pk, nil
}

// Hardened marks a BIP-32 path element as hardened (index' in m/44'/0'/0').
func Hardened(index uint32) uint32 {
	return index + hdkeychain.HardenedKeyStart
}
