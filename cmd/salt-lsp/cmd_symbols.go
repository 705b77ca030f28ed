package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/salt-lsp/sls"
	"github.com/dhamidi/salt-lsp/sls/parser"
)

func newSymbolsCmd() *cobra.Command {
	var statesFile string

	cmd := &cobra.Command{
		Use:   "symbols <file>",
		Short: "Print the document symbols of an .sls file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read sls file: %w", err)
			}

			var completions sls.CompletionsDict
			if statesFile != "" {
				completions, err = sls.LoadCompletions(statesFile)
				if err != nil {
					return fmt.Errorf("load state completions: %w", err)
				}
			}

			symbols := sls.DocumentSymbols(parser.Parse(string(data)), completions)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(symbols); err != nil {
				return fmt.Errorf("encode symbols: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statesFile, "states", "", "path to a YAML file with state module completions")

	return cmd
}
