// Command txsignerd is the streamed hardware-wallet transaction-signing
// engine, exposed as a CLI for local exercising and demonstration.
package main

import (
	"github.com/coldbolt/txsigner/cmd/txsignerd/cmd"
	"github.com/coldbolt/txsigner/internal/telemetry"
)

func main() {
	defer telemetry.Sync()
	cmd.Execute()
}
