package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "operator",
		Short: "Solana transfer operator",
		Long: `Signs and submits Solana System Program transfers on behalf of agents.

Requests carry the sender's wallet key encrypted to the operator's RSA public
key. The operator decrypts it only in memory, signs, submits and zeroes it.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newKeygenCmd(),
		newEncryptCmd(),
		newPubkeyCmd(),
	)
	return root
}
