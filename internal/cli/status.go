package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/me/zoorunner/internal/store"
)

type runWithEvents struct {
	store.Run
	Events []store.StatusEvent `json:"events"`
}

func newStatusCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status <run_id>",
		Short: "Show the status history of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient(serverURL, logger)
			resp, err := client.Get(cmd.Context(), "/api/v1/runs/"+args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			var run runWithEvents
			if err := json.Unmarshal(resp.Data, &run); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "  Workflow: %s\n", run.WorkflowID)
			if run.JobID != "" {
				fmt.Fprintf(out, "  Job:      %s\n", run.JobID)
			}
			fmt.Fprintf(out, "  State:    %s (%d%%)\n", run.State, run.Progress)
			if run.Error != "" {
				fmt.Fprintf(out, "  Error:    %s\n", run.Error)
			}
			if len(run.Events) == 0 {
				return nil
			}
			fmt.Fprintln(out, "  Events:")
			for _, ev := range run.Events {
				fmt.Fprintf(out, "    %3d%%  %s\n", ev.Progress, ev.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServer(), "Status API URL (or ZOORUNNER_SERVER env)")
	return cmd
}

func newListCmd() *cobra.Command {
	var serverURL, state, workflowID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/runs/?limit=%d", limit)
			if state != "" {
				path += "&state=" + state
			}
			if workflowID != "" {
				path += "&workflow_id=" + workflowID
			}

			client := NewClient(serverURL, logger)
			resp, err := client.Get(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			var runs []store.Run
			if err := json.Unmarshal(resp.Data, &runs); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs found.")
				return nil
			}
			fmt.Fprintf(out, "%-38s  %-24s  %-10s  %-8s  %s\n", "RUN", "WORKFLOW", "STATE", "PROGRESS", "UPDATED")
			for _, r := range runs {
				fmt.Fprintf(out, "%-38s  %-24s  %-10s  %7d%%  %s\n", r.ID, r.WorkflowID, r.State, r.Progress, since(r.UpdatedAt))
			}
			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(runs), resp.Pagination.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", defaultServer(), "Status API URL (or ZOORUNNER_SERVER env)")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().StringVar(&workflowID, "workflow", "", "Filter by workflow id")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")
	return cmd
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
