package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spf13/cobra"

	"github.com/coldbolt/txsigner/pkg/coin"
	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/confirm"
	"github.com/coldbolt/txsigner/pkg/engine"
	"github.com/coldbolt/txsigner/pkg/keys"
	"github.com/coldbolt/txsigner/pkg/wire"
)

var (
	signSeedHex     string
	signCoinName    string
	signPrevAmount  uint64
	signSpendAmount uint64
	signToAddress   string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Run a one-input, one-output signing session against a synthetic host",
	Long: `sign demonstrates the engine end to end: it derives a signing key from
--seed, fabricates a previous transaction paying --prev-amount to that
key's own address, and drives a full Phase 1 / Phase 2 session sending
--spend-amount to --to. Every confirmation prompt auto-approves.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSign(); err != nil {
			fmt.Fprintf(os.Stderr, "sign: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVar(&signSeedHex, "seed", "", "hex-encoded BIP-39 seed (16-64 bytes)")
	signCmd.Flags().StringVar(&signCoinName, "coin", "bitcoin", "coin parameters: bitcoin|testnet")
	signCmd.Flags().Uint64Var(&signPrevAmount, "prev-amount", 100000, "amount of the fabricated previous output, base units")
	signCmd.Flags().Uint64Var(&signSpendAmount, "spend-amount", 90000, "amount to send to --to, base units")
	signCmd.Flags().StringVar(&signToAddress, "to", "", "destination address")
	_ = signCmd.MarkFlagRequired("seed")
	_ = signCmd.MarkFlagRequired("to")
}

func runSign() error {
	seed, err := hex.DecodeString(signSeedHex)
	if err != nil {
		return fmt.Errorf("decoding --seed: %w", err)
	}

	var params coin.Params
	switch signCoinName {
	case "bitcoin":
		params = coin.Bitcoin
	case "testnet":
		params = coin.Testnet
	default:
		return fmt.Errorf("unknown --coin %q", signCoinName)
	}

	root, err := keys.NewHDNodeFromSeed(seed, nil)
	if err != nil {
		return fmt.Errorf("deriving master key: %w", err)
	}

	addressN := []uint32{keys.Hardened(44), keys.Hardened(0), keys.Hardened(0), 0, 0}
	privkey, err := root.DerivePath(addressN)
	if err != nil {
		return fmt.Errorf("deriving signing key: %w", err)
	}
	pubkey := privkey.PublicKey()
	ownHash160 := keys.Hash160(pubkey[:])
	privkey.Zero()

	prevScriptPubKey := p2pkhScript(ownHash160)
	prevMeta := wire.PrevTxMeta{InputsCount: 1, OutputsCount: 1, Version: 1, LockTime: 0}
	prevInput := wire.PrevTxInput{PrevHash: [32]byte{0x01}, PrevIndex: 0, ScriptSig: []byte{0x00}, Sequence: 0xffffffff}
	prevOutput := wire.PrevTxOutput{Amount: signPrevAmount, ScriptPubKey: prevScriptPubKey}
	prevHash := reconstructTxid(prevMeta, prevInput, prevOutput)
	fmt.Printf("spending previous tx %s:%d\n", chainhash.Hash(prevHash).String(), 0)

	input := &wire.TxInput{
		PrevHash:   prevHash,
		PrevIndex:  0,
		ScriptType: wire.ScriptTypePayToAddress,
		AddressN:   addressN,
		Sequence:   0xffffffff,
	}
	output := &wire.TxOutput{
		Amount:     signSpendAmount,
		ScriptType: wire.ScriptTypePayToAddress,
		Address:    signToAddress,
	}

	eng := engine.New("cli-session", confirm.AutoApprove{})

	req, err := eng.Start(1, 1, params, root)
	if err != nil {
		return err
	}

	acks := []wire.TxAck{
		{Input: input},
		{PrevMeta: &prevMeta},
		{PrevInput: &prevInput},
		{PrevOutput: &prevOutput},
		{Output: output},
		{Input: input},
		{Output: output},
		{Output: output},
	}

	for _, ack := range acks {
		req, err = eng.OnAck(ack)
		if err != nil {
			return err
		}
		describeRequest(req)
	}

	return nil
}

func describeRequest(req wire.TxRequest) {
	switch req.RequestType {
	case wire.RequestTypeFinished:
		fmt.Println("TXFINISHED")
	default:
		idx := uint32(0)
		if req.RequestIndex != nil {
			idx = *req.RequestIndex
		}
		fmt.Printf("request %v index=%d\n", req.RequestType, idx)
	}
	if req.Serialized != nil {
		if req.Serialized.Signature != nil {
			fmt.Printf("  signature: %s\n", hex.EncodeToString(req.Serialized.Signature))
		}
		fmt.Printf("  serialized: %s\n", hex.EncodeToString(req.Serialized.SerializedTx))
	}
}

func p2pkhScript(hash160 [20]byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, 0x76, 0xa9, 0x14)
	out = append(out, hash160[:]...)
	out = append(out, 0x88, 0xac)
	return out
}

// reconstructTxid mirrors the engine's own previous-transaction
// reconstruction so the fabricated prev-tx's declared hash always
// matches what the engine recomputes.
func reconstructTxid(meta wire.PrevTxMeta, in wire.PrevTxInput, out wire.PrevTxOutput) [32]byte {
	h := sha256.New()
	c := codec.New(h, meta.InputsCount, meta.OutputsCount, false)
	c.WriteVersion(nil, meta.Version)
	c.WriteInput(nil, codec.Input{PrevHash: in.PrevHash, PrevIndex: in.PrevIndex, ScriptSig: in.ScriptSig, Sequence: in.Sequence})
	c.WriteOutput(nil, codec.Output{Amount: out.Amount, ScriptPubKey: out.ScriptPubKey})
	c.WriteLockTime(nil, meta.LockTime)

	first := sha256.Sum256(h.Sum(nil))
	return sha256.Sum256(first[:])
}
