package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apkdebug/internal/identity"
	"apkdebug/internal/pipeline"
)

func newPatchCmd() *cobra.Command {
	var (
		infile      string
		outfile     string
		certfile    string
		keyfile     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Make an .apk or .apks bundle debuggable and re-sign it",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(infile)
			if err != nil {
				return err
			}

			id, err := loadOrGenerateIdentity(certfile, keyfile)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(context.Background(), pipeline.Input{
				Data:        data,
				Identity:    id,
				Concurrency: concurrency,
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(outfile, result.Output, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "patched %s -> %s (package=%s debuggable-strategy=%s bundle=%v)\n",
				infile, outfile, result.Facts.Package, result.PatchResult.Strategy, result.WasBundle)
			return nil
		},
	}

	cmd.Flags().StringVarP(&infile, "input", "i", "", "input .apk or .apks archive (required)")
	cmd.Flags().StringVarP(&outfile, "output", "o", "debuggable.apk", "output signed .apk")
	cmd.Flags().StringVarP(&certfile, "cert", "c", "", "signing certificate PEM (generates an ephemeral identity if unset)")
	cmd.Flags().StringVarP(&keyfile, "key", "k", "", "signing private key PKCS#8 PEM (generates an ephemeral identity if unset)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "worker bound for per-entry digest computation")
	cmd.MarkFlagRequired("input")

	return cmd
}

// loadOrGenerateIdentity loads a caller-supplied signing identity from
// PEM files, or generates a fresh throwaway one if neither is given.
func loadOrGenerateIdentity(certfile, keyfile string) (*identity.Identity, error) {
	if certfile == "" && keyfile == "" {
		return identity.Generate()
	}
	if certfile == "" || keyfile == "" {
		return nil, fmt.Errorf("both --cert and --key must be given, or neither")
	}
	return identity.Load(certfile, keyfile)
}
