package cli

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/me/zoorunner/internal/resources"
)

func newResourcesCmd() *cobra.Command {
	var workflowID, inputsPath string

	cmd := &cobra.Command{
		Use:   "resources <cwl-file>",
		Short: "Print the aggregated resource requirements of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(args[0], workflowID)
			if err != nil {
				return err
			}
			inputs, err := loadInputs(inputsPath)
			if err != nil {
				return err
			}
			var params map[string]any
			if len(inputs) > 0 {
				params = inputs.ProcessingParameters()
			}
			m, err := resources.NewEvaluator(logger, params).Evaluate(doc)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(map[string]any{
				"workflow_id": doc.ID,
				"values":      m,
				"sum":         m.Sum(),
				"max":         m.Max(),
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&workflowID, "id", "", "Workflow id")
	cmd.Flags().StringVar(&inputsPath, "inputs", "", "YAML inputs used to evaluate expressions")
	cmd.MarkFlagRequired("id")
	return cmd
}
