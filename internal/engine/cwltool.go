package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// CWLTool runs workflows with the cwltool command-line runner.
type CWLTool struct {
	// Command is the path to the cwltool binary (default: "cwltool").
	Command string
	Logger  *slog.Logger
}

// Args builds the cwltool command line for inv.
func (c *CWLTool) Args(inv Invocation) []string {
	var args []string
	if inv.ContainerEngine == Podman {
		args = append(args, "--podman")
	}
	if inv.Parallel {
		args = append(args, "--parallel")
	}
	if inv.Debug {
		args = append(args, "--debug")
	}
	if inv.OutDir != "" {
		args = append(args, "--outdir", inv.OutDir)
	}
	args = append(args, inv.WorkflowFile)
	args = append(args, inv.JobOrderFiles...)
	return args
}

// Run implements Engine.
func (c *CWLTool) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.WorkflowFile == "" {
		return nil, errors.New("no workflow file")
	}
	command := c.Command
	if command == "" {
		command = "cwltool"
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := c.Args(inv)
	logger.Debug("running engine", "cmd", command, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("run %s: %w", command, err)
		}
		exitCode = exitErr.ExitCode()
	}

	logger.Debug("engine finished", "exit_code", exitCode, "stdout_bytes", stdout.Len(), "stderr_bytes", stderr.Len())
	return &Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
