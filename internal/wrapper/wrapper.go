// Package wrapper splices stage-in and stage-out steps around a CWL
// workflow by delegating to the external cwl-wrapper program.
package wrapper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrEmptyOutput is returned when the wrapper produced no workflow.
var ErrEmptyOutput = errors.New("wrapper produced an empty workflow")

// Source is the document handed to a Wrapper.
type Source struct {
	WorkflowID string
	Raw        []byte
}

// Wrapper returns a new workflow document with staging steps added.
type Wrapper interface {
	Wrap(ctx context.Context, src Source) ([]byte, error)
}

// Assets locates the four templates used by the wrapper.
type Assets struct {
	StageIn  string // stage-in step template
	StageOut string // stage-out step template
	Main     string // main workflow template
	Rules    string // wrapping rules
}

// DefaultAssets returns the built-in template locations.
func DefaultAssets() Assets {
	return Assets{
		StageIn:  "/assets/stagein.yaml",
		StageOut: "/assets/stageout.yaml",
		Main:     "/assets/maincwl.yaml",
		Rules:    "/assets/rules.yaml",
	}
}

// CommandWrapper runs cwl-wrapper and returns its standard output.
type CommandWrapper struct {
	// Command is the path to the cwl-wrapper binary (default: "cwl-wrapper").
	Command string
	Assets  Assets
	// TempDir holds the input document while the wrapper runs (default: os.TempDir()).
	TempDir string
	Logger  *slog.Logger
}

// Wrap implements Wrapper.
func (w *CommandWrapper) Wrap(ctx context.Context, src Source) ([]byte, error) {
	command := w.Command
	if command == "" {
		command = "cwl-wrapper"
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	in, err := os.CreateTemp(w.TempDir, "wrap-*.cwl")
	if err != nil {
		return nil, fmt.Errorf("create wrapper input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(src.Raw); err != nil {
		in.Close()
		return nil, fmt.Errorf("write wrapper input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close wrapper input: %w", err)
	}

	args := w.args(src.WorkflowID, in.Name())
	logger.Debug("running wrapper", "cmd", command, "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", filepath.Base(command), err, strings.TrimSpace(stderr.String()))
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, ErrEmptyOutput
	}
	return stdout.Bytes(), nil
}

func (w *CommandWrapper) args(workflowID, path string) []string {
	a := w.Assets
	defaults := DefaultAssets()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return []string{
		"--stagein", pick(a.StageIn, defaults.StageIn),
		"--stageout", pick(a.StageOut, defaults.StageOut),
		"--maincwl", pick(a.Main, defaults.Main),
		"--rulez", pick(a.Rules, defaults.Rules),
		"--workflow-id", workflowID,
		path,
	}
}

// Func adapts a function to the Wrapper interface.
type Func func(ctx context.Context, src Source) ([]byte, error)

// Wrap implements Wrapper.
func (f Func) Wrap(ctx context.Context, src Source) ([]byte, error) {
	return f(ctx, src)
}
