package keys

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// EncodeAddress base58check-encodes a pubkey or script hash under the
// given version byte, e.g. coin.Params.AddressType for P2PKH or
// coin.Params.P2SHAddressType for P2SH. This is the address string shown
// to the user by confirm.Prompter.ConfirmOutput.
func EncodeAddress(version byte, hash160 [20]byte) string {
	payload := make([]byte, 0, 25)
	payload = append(payload, version)
	payload = append(payload, hash160[:]...)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	payload = append(payload, second[:4]...)

	return base58.Encode(payload)
}

// DecodeAddress reverses EncodeAddress: it validates the base58check
// payload and returns the version byte and 20-byte hash. Used by the
// script compiler to turn a host-supplied address string back into the
// bytes a scriptPubKey locks against.
func DecodeAddress(address string) (version byte, hash160 [20]byte, err error) {
	decoded := base58.Decode(address)
	if len(decoded) != 25 {
		return 0, hash160, fmt.Errorf("keys: invalid address length %d", len(decoded))
	}

	payload := decoded[:21]
	checksum := decoded[21:]

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if second[0] != checksum[0] || second[1] != checksum[1] || second[2] != checksum[2] || second[3] != checksum[3] {
		return 0, hash160, fmt.Errorf("keys: address checksum mismatch")
	}

	version = payload[0]
	copy(hash160[:], payload[1:])
	return version, hash160, nil
}
