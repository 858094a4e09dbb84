// Package runner orchestrates one CWL job: it validates the caller's
// parameters, wraps the workflow with staging steps, submits it to the
// CWL engine and hands the results to a deployment-specific Handler.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/me/zoorunner/internal/engine"
	"github.com/me/zoorunner/internal/host"
	"github.com/me/zoorunner/internal/resources"
	"github.com/me/zoorunner/internal/workflow"
	"github.com/me/zoorunner/internal/wrapper"
)

// Progress checkpoints reported to the host.
const (
	progressStarted   = 2
	progressWrapped   = 5
	progressSubmitted = 18
	progressCollect   = 90
	progressCleanup   = 97
	progressDone      = 100
)

// ErrAlreadyExecuted is returned when Execute is called twice on a Runner.
var ErrAlreadyExecuted = errors.New("runner already executed")

// Config configures a Runner.
type Config struct {
	Document *workflow.Document
	Inputs   Inputs
	// Outputs receives the engine's output object under OutputKey.
	Outputs  Outputs
	Handler  Handler
	Reporter host.Reporter
	Wrapper  wrapper.Wrapper
	// Engine defaults to cwltool.
	Engine engine.Engine

	// ContainerEngine skips detection when set.
	ContainerEngine engine.ContainerEngine
	LookPath        engine.LookPathFunc

	WorkDir  string // job files (default ".")
	OutDir   string // engine output root; each job gets <OutDir>/<jobid>
	Parallel bool
	Debug    bool

	Logger   *slog.Logger
	Now      func() time.Time
	NewToken func() string
}

// Runner executes a single job. It is not safe for concurrent use.
type Runner struct {
	doc      *workflow.Document
	inputs   Inputs
	outputs  Outputs
	handler  Handler
	reporter host.Reporter
	wrapper  wrapper.Wrapper
	engine   engine.Engine
	ce       engine.ContainerEngine
	workDir  string
	outDir   string
	parallel bool
	debug    bool
	logger   *slog.Logger
	now      func() time.Time
	newToken func() string

	jobID   string
	state   State
	history []State
	output  map[string]any
}

// New creates a Runner. It fails with engine.ErrNoContainerEngine when no
// container engine is configured or installed.
func New(cfg Config) (*Runner, error) {
	if cfg.Document == nil {
		return nil, fmt.Errorf("runner: no workflow document")
	}
	if cfg.Handler == nil {
		return nil, ErrNoHandler
	}
	if cfg.Reporter == nil {
		return nil, fmt.Errorf("runner: no reporter")
	}
	if cfg.Wrapper == nil {
		return nil, fmt.Errorf("runner: no wrapper")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "runner", "workflow_id", cfg.Document.ID)

	ce := cfg.ContainerEngine
	if ce == "" {
		var err error
		if ce, err = engine.DetectContainerEngine(cfg.LookPath); err != nil {
			return nil, err
		}
	}

	r := &Runner{
		doc:      cfg.Document,
		inputs:   cfg.Inputs,
		outputs:  cfg.Outputs,
		handler:  cfg.Handler,
		reporter: cfg.Reporter,
		wrapper:  cfg.Wrapper,
		engine:   cfg.Engine,
		ce:       ce,
		workDir:  cfg.WorkDir,
		outDir:   cfg.OutDir,
		parallel: cfg.Parallel,
		debug:    cfg.Debug,
		logger:   logger,
		now:      cfg.Now,
		newToken: cfg.NewToken,
		state:    Pending,
	}
	if r.inputs == nil {
		r.inputs = Inputs{}
	}
	if r.outputs == nil {
		r.outputs = Outputs{}
	}
	if r.engine == nil {
		r.engine = &engine.CWLTool{Logger: logger}
	}
	if r.workDir == "" {
		r.workDir = "."
	}
	if r.outDir == "" {
		r.outDir = "runs"
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newToken == nil {
		r.newToken = newToken
	}
	return r, nil
}

// State returns the last state reached.
func (r *Runner) State() State { return r.state }

// History returns every state reached, in order.
func (r *Runner) History() []State {
	return append([]State(nil), r.history...)
}

// JobID returns the job id, empty until submission.
func (r *Runner) JobID() string { return r.jobID }

// ContainerEngine returns the container runtime passed to the engine.
func (r *Runner) ContainerEngine() engine.ContainerEngine { return r.ce }

// Output returns the parsed engine output, nil until collection.
func (r *Runner) Output() map[string]any { return r.output }

// Outputs returns the host output slots.
func (r *Runner) Outputs() Outputs { return r.outputs }

// ProcessingParameters returns the caller's parameters as name -> value.
func (r *Runner) ProcessingParameters() map[string]any {
	return r.inputs.ProcessingParameters()
}

// WorkflowInputs returns the top-level workflow's input ids; with mandatory
// set, only those without a default and not of nullable string type.
func (r *Runner) WorkflowInputs(mandatory bool) []string {
	return r.doc.Inputs(mandatory)
}

// MissingParameters returns the mandatory inputs the caller did not supply.
func (r *Runner) MissingParameters() []string {
	var missing []string
	for _, name := range r.doc.Inputs(true) {
		if _, ok := r.inputs[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// AssertParameters reports whether every mandatory input is supplied.
// Extra parameters are allowed.
func (r *Runner) AssertParameters() bool {
	return len(r.MissingParameters()) == 0
}

// Resources aggregates the resource requirements of the original,
// unwrapped workflow and logs the totals.
func (r *Runner) Resources() (*resources.Model, error) {
	m, err := resources.NewEvaluator(r.logger, r.ProcessingParameters()).Evaluate(r.doc)
	if err != nil {
		return nil, err
	}
	r.logger.Info("resource requirements", m.Sum().LogAttrs()...)
	return m, nil
}

// jobFiles are the per-job temporary files handed to the engine.
type jobFiles struct {
	workflow string
	params   string
}

// Execute runs the job to a terminal state. The returned code is what the
// host expects; err describes the failure when the code is
// host.ServiceFailed. Job files are removed in every state reached after
// submission.
func (r *Runner) Execute(ctx context.Context) (host.Code, error) {
	if r.state != Pending {
		return host.ServiceFailed, ErrAlreadyExecuted
	}

	r.transition(Validating)
	if missing := r.MissingParameters(); len(missing) > 0 {
		return r.finish(&ValidationError{Missing: missing})
	}
	if _, err := r.Resources(); err != nil {
		r.logger.Warn("resource evaluation failed", "error", err)
	}
	r.report(progressStarted, "starting execution")

	r.transition(Wrapping)
	wrapped, err := r.wrapper.Wrap(ctx, wrapper.Source{WorkflowID: r.doc.ID, Raw: r.doc.Raw})
	if err != nil {
		return r.finish(&EngineError{Phase: "wrap", Err: err})
	}
	r.report(progressWrapped, "workflow wrapped")

	r.transition(Submitting)
	files, err := r.submit(ctx, wrapped)
	if err != nil {
		r.cleanup(files)
		return r.finish(err)
	}
	r.report(progressSubmitted, "execution submitted")

	runErr := r.run(ctx, files)

	r.transition(CleaningUp)
	r.report(progressCleanup, "clean-up resources")
	r.cleanup(files)

	return r.finish(runErr)
}

// submit assigns the job id, merges parameters and writes the job files.
// Files already written are returned even on error.
func (r *Runner) submit(ctx context.Context, wrapped []byte) (jobFiles, error) {
	r.jobID = NewJobID(r.doc.ID, r.now(), r.newToken())
	r.logger = r.logger.With("job_id", r.jobID)
	r.handler.SetJobID(r.jobID)
	if s, ok := r.reporter.(host.JobIDSetter); ok {
		s.SetJobID(r.jobID)
	}

	var files jobFiles
	extra, err := r.handler.AdditionalParameters(ctx)
	if err != nil {
		return files, &HandlerError{Op: "additional parameters", Err: err}
	}
	params := mergeParameters(r.ProcessingParameters(), extra)
	paramsYAML, err := yaml.Marshal(params)
	if err != nil {
		return files, &EngineError{Phase: "submit", Err: fmt.Errorf("encode parameters: %w", err)}
	}

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return files, &EngineError{Phase: "submit", Err: err}
	}
	path := filepath.Join(r.workDir, r.jobID+"-app-package.cwl")
	if err := os.WriteFile(path, wrapped, 0o644); err != nil {
		return files, &EngineError{Phase: "submit", Err: fmt.Errorf("write workflow: %w", err)}
	}
	files.workflow = path

	path = filepath.Join(r.workDir, r.jobID+"-params.yaml")
	if err := os.WriteFile(path, paramsYAML, 0o644); err != nil {
		return files, &EngineError{Phase: "submit", Err: fmt.Errorf("write parameters: %w", err)}
	}
	files.params = path

	r.logger.Info("job submitted", "workflow_file", files.workflow, "params_file", files.params)
	return files, nil
}

// run invokes the engine and delivers its results to the handler.
func (r *Runner) run(ctx context.Context, files jobFiles) error {
	r.transition(Running)
	inv := engine.Invocation{
		ContainerEngine: r.ce,
		Parallel:        r.parallel,
		Debug:           r.debug,
		OutDir:          filepath.Join(r.outDir, r.jobID),
		WorkflowFile:    files.workflow,
		JobOrderFiles:   []string{files.params},
	}
	res, err := r.engine.Run(ctx, inv)
	if err != nil {
		return &EngineError{Phase: "run", Err: err}
	}
	r.logger.Info("engine finished", "exit_code", res.ExitCode)

	r.transition(Collecting)
	r.report(progressCollect, "delivering outputs, logs and usage report")

	output, err := parseOutput(res)
	if err != nil {
		if res.ExitCode == 0 {
			return &EngineError{Phase: "collect", Err: err}
		}
		// The log of a failed run is still delivered.
		r.logger.Warn("discarding output of failed run", "error", err)
		output = map[string]any{}
	}
	r.output = output
	r.outputs.SetOutput(output)

	if err := r.handler.HandleOutputs(ctx, res.Stderr, output, nil, nil); err != nil {
		return &HandlerError{Op: "handle outputs", Err: err}
	}

	if res.ExitCode != 0 {
		return &EngineError{Phase: "run", Err: ErrNonZeroExit, ExitCode: res.ExitCode}
	}
	return nil
}

func (r *Runner) cleanup(files jobFiles) {
	for _, path := range []string{files.workflow, files.params} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("remove job file", "path", path, "error", err)
		}
	}
}

func (r *Runner) finish(err error) (host.Code, error) {
	if err == nil {
		r.transition(Succeeded)
		r.report(progressDone, "execution successful")
		return host.ServiceSucceeded, nil
	}
	r.transition(Failed)
	r.logger.Error("execution failed", "error", err)
	r.report(progressDone, "execution failed")
	r.reporter.SetMessage("Execution failed: " + err.Error())
	return host.ServiceFailed, err
}

func (r *Runner) transition(s State) {
	r.logger.Debug("state", "from", r.state, "to", s)
	r.state = s
	r.history = append(r.history, s)
}

func (r *Runner) report(progress int, message string) {
	r.reporter.UpdateStatus(progress, message)
}

// mergeParameters overlays extra onto a copy of params. Keys are replaced
// whole: a handler value wins over the caller's, nested maps included.
func mergeParameters(params, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(params)+len(extra))
	maps.Copy(merged, params)
	maps.Copy(merged, extra)
	return merged
}

// parseOutput decodes the engine's standard output as a JSON object. A
// failed run with no output yields an empty object.
func parseOutput(res *engine.Result) (map[string]any, error) {
	stdout := strings.TrimSpace(res.Stdout)
	if stdout == "" {
		if res.ExitCode != 0 {
			return map[string]any{}, nil
		}
		return nil, ErrInvalidOutput
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if out == nil {
		return nil, ErrInvalidOutput
	}
	return out, nil
}
