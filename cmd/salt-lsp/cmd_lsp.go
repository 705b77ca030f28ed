package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/salt-lsp/sls"
	"github.com/dhamidi/salt-lsp/sls/workspace"
)

func newLSPCmd() *cobra.Command {
	var statesFile string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var completions sls.CompletionsDict
			if statesFile != "" {
				var err error
				completions, err = sls.LoadCompletions(statesFile)
				if err != nil {
					return fmt.Errorf("load state completions: %w", err)
				}
			}
			server := workspace.NewLSPServer(completions, "0.1.0")
			return server.RunStdio()
		},
	}

	cmd.Flags().StringVar(&statesFile, "states", "", "path to a YAML file with state module completions")

	return cmd
}
