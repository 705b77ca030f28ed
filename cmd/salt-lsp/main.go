package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "salt-lsp",
		Short: "A language server for Salt state files",
	}

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newSymbolsCmd())
	rootCmd.AddCommand(newIncludesCmd())
	rootCmd.AddCommand(newLSPCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
