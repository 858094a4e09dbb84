package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInputsCmd() *cobra.Command {
	var workflowID string
	var mandatory bool

	cmd := &cobra.Command{
		Use:   "inputs <cwl-file>",
		Short: "List the inputs of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0], workflowID)
			if err != nil {
				return err
			}
			for _, name := range doc.Inputs(mandatory) {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workflowID, "id", "", "Workflow id")
	cmd.Flags().BoolVar(&mandatory, "mandatory", false, "Only inputs without a default that are not optional strings")
	cmd.MarkFlagRequired("id")
	return cmd
}
