// Package cli implements the zoorunner command line.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/zoorunner/internal/config"
	"github.com/me/zoorunner/internal/logging"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the zoorunner CLI.
func NewRootCmd() *cobra.Command {
	env := config.FromEnv(os.Getenv)

	root := &cobra.Command{
		Use:   "zoorunner",
		Short: "zoorunner runs CWL workflows for a hosting processing service",
		Long: `zoorunner wraps a CWL workflow with stage-in and stage-out steps,
runs it with cwltool and reports progress and outputs back to the host.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", env.LogLevel, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", env.LogFormat, "Log format (text, json, auto)")

	root.AddCommand(
		newRunCmd(),
		newResourcesCmd(),
		newInputsCmd(),
		newValidateCmd(),
		newServeCmd(),
		newStatusCmd(),
		newListCmd(),
	)

	return root
}
