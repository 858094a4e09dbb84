// Package engine invokes the external CWL engine that runs a wrapped
// workflow's steps as containers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoContainerEngine is returned when neither podman nor docker is installed.
var ErrNoContainerEngine = errors.New("no container engine: neither podman nor docker found in PATH")

// ContainerEngine names a supported container runtime.
type ContainerEngine string

const (
	Podman ContainerEngine = "podman"
	Docker ContainerEngine = "docker"
)

// Engine runs a workflow to completion.
type Engine interface {
	// Run blocks until the engine exits. A non-zero exit code is reported
	// in Result, not as an error; err is reserved for failures to start.
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// Invocation is the fixed engine configuration for one job.
type Invocation struct {
	ContainerEngine ContainerEngine
	Parallel        bool
	Debug           bool
	OutDir          string
	WorkflowFile    string
	JobOrderFiles   []string
}

// Result holds the engine's exit code and captured streams.
// Stdout is expected to hold a single JSON object of outputs;
// Stderr is the execution log.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// LookPathFunc matches exec.LookPath.
type LookPathFunc func(file string) (string, error)

// DetectContainerEngine returns podman when available, docker otherwise.
func DetectContainerEngine(lookPath LookPathFunc) (ContainerEngine, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, ce := range []ContainerEngine{Podman, Docker} {
		if _, err := lookPath(string(ce)); err == nil {
			return ce, nil
		}
	}
	return "", ErrNoContainerEngine
}

// ParseContainerEngine validates an explicit engine name.
func ParseContainerEngine(s string) (ContainerEngine, error) {
	switch ContainerEngine(s) {
	case Podman, Docker:
		return ContainerEngine(s), nil
	}
	return "", fmt.Errorf("unsupported container engine %q (want podman or docker)", s)
}
