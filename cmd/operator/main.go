// Package main is the operator binary: it consumes transfer and signing
// requests from the agent bus and submits them to a Solana cluster.
//
// Subcommands:
//   - serve:   run the bus consumer with the HTTP health/metrics/status side channel
//   - keygen:  create the operator RSA keypair
//   - encrypt: wrap a wallet key for the operator (client side)
//   - pubkey:  print the Solana address of a wallet key
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
