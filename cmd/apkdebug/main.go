// Command apkdebug patches an Android application archive (or an
// .apks bundle) to be debuggable and re-signs it with a throwaway
// debug identity, or generates that identity on its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "apkdebug",
		Short:         "Patch an .apk/.apks to be debuggable and re-sign it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPatchCmd())
	root.AddCommand(newGenkeyCmd())
	return root
}
