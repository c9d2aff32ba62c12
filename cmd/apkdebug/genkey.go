package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apkdebug/internal/identity"
)

func newGenkeyCmd() *cobra.Command {
	var (
		certfile string
		keyfile  string
	)

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a fresh self-signed debug signing identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.Generate()
			if err != nil {
				return err
			}

			if err := os.WriteFile(certfile, id.WriteCertPEM(), 0o644); err != nil {
				return err
			}
			keyPEM, err := id.WriteKeyPKCS8PEM()
			if err != nil {
				return err
			}
			if err := os.WriteFile(keyfile, keyPEM, 0o600); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", certfile, keyfile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&certfile, "cert", "c", "debug.x509.pem", "output certificate PEM path")
	cmd.Flags().StringVarP(&keyfile, "key", "k", "debug.pk8", "output private key PEM path")

	return cmd
}
