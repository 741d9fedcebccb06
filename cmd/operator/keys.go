package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"solana-transfer-operator/internal/keytransport"
	"solana-transfer-operator/internal/solana"
)

func newKeygenCmd() *cobra.Command {
	var (
		outDir string
		bits   int
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the operator RSA keypair",
		Long: `Generate the operator's RSA keypair as PEM files.

Distribute the public key to agents; they encrypt wallet keys to it with
"operator encrypt". The private key file is written with mode 0600 and an
existing file is never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := keytransport.GenerateOperatorKey(bits)
			if err != nil {
				return err
			}
			privPath, pubPath, err := keytransport.WriteKeyPair(outDir, priv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", privPath, pubPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "keys", "Directory for the PEM files")
	cmd.Flags().IntVar(&bits, "bits", keytransport.DefaultKeyBits, "RSA modulus size")
	return cmd
}

func newEncryptCmd() *cobra.Command {
	var pubPath string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a wallet key for the operator",
		Long: `Read a Base58 wallet key (32-byte seed or 64-byte keypair) from stdin and
print the Base58 envelope to put in a request's encrypted_sender_private_key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pemBytes, err := os.ReadFile(pubPath)
			if err != nil {
				return fmt.Errorf("read operator public key: %w", err)
			}
			pub, err := keytransport.ParsePublicKeyPEM(pemBytes)
			if err != nil {
				return err
			}

			raw, err := readWalletKey(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer keytransport.Zero(raw)

			envelope, err := keytransport.Encrypt(raw, pub)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), keytransport.EncodeEnvelope(envelope))
			return nil
		},
	}
	cmd.Flags().StringVar(&pubPath, "operator-pub", "keys/"+keytransport.PublicKeyFile, "Operator public key (PEM)")
	return cmd
}

func newPubkeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Print the Solana address of a wallet key",
		Long:  `Read a Base58 wallet key from stdin and print its Base58 public key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readWalletKey(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer keytransport.Zero(raw)

			pub, err := solana.DerivePublicKey(raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pub.String())
			return nil
		},
	}
}

// readWalletKey decodes one Base58 key from r. The input buffer is zeroed.
func readWalletKey(r io.Reader) ([]byte, error) {
	in, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	defer keytransport.Zero(in)

	text := bytes.TrimSpace(in)
	if len(text) == 0 {
		return nil, errors.New("no key on stdin")
	}
	raw, err := solana.DecodeBase58(string(text))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) < 32 {
		keytransport.Zero(raw)
		return nil, solana.ErrInvalidKeyLength
	}
	return raw, nil
}
