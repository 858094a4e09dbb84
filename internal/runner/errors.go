package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	ErrMissingParameters = errors.New("missing mandatory parameters")
	ErrNonZeroExit       = errors.New("engine exited with non-zero status")
	ErrInvalidOutput     = errors.New("engine output is not a JSON object")
	ErrNoHandler         = errors.New("no execution handler")
)

// ValidationError reports mandatory workflow inputs absent from the
// supplied parameters.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return ErrMissingParameters.Error() + ": " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrMissingParameters
}

// EngineError wraps failures of the wrapping, submission, engine and
// collection phases.
type EngineError struct {
	Phase    string // "wrap", "submit", "run", "collect"
	Err      error
	ExitCode int
}

func (e *EngineError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: %v (exit code %d)", e.Phase, e.Err, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// HandlerError wraps an error returned by Handler.HandleOutputs or
// Handler.AdditionalParameters.
type HandlerError struct {
	Op  string
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %v", e.Op, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
