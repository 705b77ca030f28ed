package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/salt-lsp/sls/parser"
)

func newParseCmd() *cobra.Command {
	var includePositions bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an .sls file and dump the resulting tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read sls file: %w", err)
			}

			tree := parser.Parse(string(data))
			if includePositions {
				fmt.Println(tree.StringWithPositions())
			} else {
				fmt.Println(tree.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includePositions, "positions", true, "include node positions in the output")

	return cmd
}
