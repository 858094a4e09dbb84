package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/zoorunner/internal/parser"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <cwl-file>",
		Short: "Check a CWL document before execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read CWL: %w", err)
			}
			graph, err := parser.New(logger).Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			if apiErr := parser.NewValidator(logger).Validate(graph); apiErr != nil {
				for _, d := range apiErr.Details {
					fmt.Fprintf(out, "  %s: %s\n", d.Field, d.Message)
				}
				return apiErr
			}
			fmt.Fprintf(out, "%s: valid (%s, %d elements)\n", args[0], graph.CWLVersion, len(graph.Elements))
			return nil
		},
	}
}
