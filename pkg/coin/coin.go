// Package coin holds the fixed per-network parameter bundle the signing
// engine treats as an opaque, externally-supplied contract: the address
// version byte, the fee policy threshold, and display formatting. The
// engine never derives these values itself.
package coin

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
)

// Params is the coin parameter bundle referenced as `coin` in the signing
// session's data model. It is immutable for the lifetime of a session.
type Params struct {
	Name string `mapstructure:"name" yaml:"name"`

	// AddressType is the version byte prefixed to a HASH160 pubkey hash
	// before base58check encoding (P2PKH). Bitcoin mainnet is 0x00.
	AddressType byte `mapstructure:"address_type" yaml:"address_type"`

	// P2SHAddressType is the version byte for pay-to-script-hash
	// addresses. Bitcoin mainnet is 0x05.
	P2SHAddressType byte `mapstructure:"p2sh_address_type" yaml:"p2sh_address_type"`

	// MaxFeeKB is the maximum fee, in base units, the engine will accept
	// per kilobyte of estimated transaction size before requiring an
	// explicit high-fee confirmation.
	MaxFeeKB uint64 `mapstructure:"max_fee_kb" yaml:"max_fee_kb"`

	// CoinShortcut is used only for the confirmation prompt text
	// ("send 0.00120000 BTC to ...").
	CoinShortcut string `mapstructure:"coin_shortcut" yaml:"coin_shortcut"`

	// Decimals is the number of fractional digits base units are divided
	// by for display (8 for Bitcoin: 1 BTC = 1e8 satoshi).
	Decimals uint32 `mapstructure:"decimals" yaml:"decimals"`
}

// FormatAmount renders a base-unit amount for a confirmation prompt, e.g.
// FormatAmount(123456789) with Decimals=8 yields "1.23456789 BTC".
func (p Params) FormatAmount(amount uint64) string {
	if p.Decimals == 0 {
		return fmt.Sprintf("%d %s", amount, p.CoinShortcut)
	}
	scale := uint64(1)
	for i := uint32(0); i < p.Decimals; i++ {
		scale *= 10
	}
	whole := amount / scale
	frac := amount % scale
	return fmt.Sprintf("%d.%0*d %s", whole, p.Decimals, frac, p.CoinShortcut)
}

// Bitcoin is the built-in mainnet parameter set, used when a caller does
// not load a table via LoadTable.
var Bitcoin = Params{
	Name:            "Bitcoin",
	AddressType:     0x00,
	P2SHAddressType: 0x05,
	MaxFeeKB:        100_000, // 100k sat/kB ceiling before prompting
	CoinShortcut:    "BTC",
	Decimals:        8,
}

// Testnet is the built-in testnet parameter set.
var Testnet = Params{
	Name:            "Testnet",
	AddressType:     0x6F,
	P2SHAddressType: 0xC4,
	MaxFeeKB:        1_000_000,
	CoinShortcut:    "TEST",
	Decimals:        8,
}

// LoadTable loads a coin parameter table from a YAML document (typically
// the device firmware's baked-in coin list). The document must be a
// mapping of coin name to Params fields, e.g.:
//
//	bitcoin:
//	  name: Bitcoin
//	  address_type: 0
//	  p2sh_address_type: 5
//	  max_fee_kb: 100000
//	  coin_shortcut: BTC
//	  decimals: 8
func LoadTable(yamlDoc []byte) (map[string]Params, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(yamlDoc)); err != nil {
		return nil, fmt.Errorf("coin: reading table: %w", err)
	}

	table := make(map[string]Params)
	if err := v.Unmarshal(&table); err != nil {
		return nil, fmt.Errorf("coin: decoding table: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("coin: table is empty")
	}
	return table, nil
}
