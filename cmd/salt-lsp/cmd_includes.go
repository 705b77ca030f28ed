package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/salt-lsp/sls"
)

func newIncludesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "includes <file>",
		Short: "List the sls files that <file> could include",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, include := range sls.GetSlsIncludes(args[0]) {
				fmt.Println(include)
			}
			return nil
		},
	}
}
