// Package cmd implements the txsignerd command-line entry points.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coldbolt/txsigner/internal/telemetry"
)

var env string

var rootCmd = &cobra.Command{
	Use:   "txsignerd",
	Short: "Streamed hardware-wallet transaction signing engine",
	Long: `txsignerd drives the two-phase Bitcoin-style transaction-signing
state machine: it walks a host-supplied transaction one input or output
at a time, verifies previous-transaction amounts, classifies change
outputs, obtains confirmation, and emits signed fragments — all without
ever holding the full transaction in memory.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.Init(env)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "logging environment (development|production)")
}
