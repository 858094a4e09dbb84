package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/zoorunner/internal/engine"
	"github.com/me/zoorunner/internal/host"
	"github.com/me/zoorunner/internal/parser"
	"github.com/me/zoorunner/internal/workflow"
	"github.com/me/zoorunner/internal/wrapper"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadWaterBodies(t *testing.T) *workflow.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "water-bodies", "app-package.cwl"))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	doc, err := workflow.New(data, "water_bodies", parser.New(testLogger()))
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return doc
}

func waterBodiesInputs() Inputs {
	return Inputs{
		"aoi":        {"value": "-121.399,39.834,-120.74,40.472"},
		"epsg":       {"value": "EPSG:4326"},
		"bands":      {"value": []any{"green", "nir"}},
		"stac_items": {"value": []any{"https://example.com/items/S2B_10TFK_20210713"}},
	}
}

type fakeEngine struct {
	result *engine.Result
	err    error

	calls    []engine.Invocation
	params   map[string]any
	workflow []byte
}

func (f *fakeEngine) Run(_ context.Context, inv engine.Invocation) (*engine.Result, error) {
	f.calls = append(f.calls, inv)
	if data, err := os.ReadFile(inv.JobOrderFiles[0]); err == nil {
		_ = yaml.Unmarshal(data, &f.params)
	}
	f.workflow, _ = os.ReadFile(inv.WorkflowFile)
	return f.result, f.err
}

type fakeHandler struct {
	JobIDHolder
	extra     map[string]any
	extraErr  error
	handleErr error

	calls      int
	jobIDAtRun string
	log        string
	output     map[string]any
}

func (h *fakeHandler) AdditionalParameters(context.Context) (map[string]any, error) {
	h.jobIDAtRun = h.JobID()
	return h.extra, h.extraErr
}

func (h *fakeHandler) HandleOutputs(_ context.Context, log string, output map[string]any, _ map[string]any, _ []string) error {
	h.calls++
	h.log = log
	h.output = output
	return h.handleErr
}

type fixture struct {
	runner   *Runner
	engine   *fakeEngine
	handler  *fakeHandler
	reporter *host.Recorder
	wraps    int
	workDir  string
}

func newFixture(t *testing.T, inputs Inputs, res *engine.Result) *fixture {
	t.Helper()
	f := &fixture{
		engine:   &fakeEngine{result: res},
		handler:  &fakeHandler{extra: map[string]any{"process": "water_bodies"}},
		reporter: &host.Recorder{},
		workDir:  t.TempDir(),
	}
	wrap := wrapper.Func(func(_ context.Context, src wrapper.Source) ([]byte, error) {
		f.wraps++
		return append([]byte("# wrapped\n"), src.Raw...), nil
	})
	r, err := New(Config{
		Document:        loadWaterBodies(t),
		Inputs:          inputs,
		Handler:         f.handler,
		Reporter:        f.reporter,
		Wrapper:         wrap,
		Engine:          f.engine,
		ContainerEngine: engine.Podman,
		WorkDir:         f.workDir,
		OutDir:          filepath.Join(f.workDir, "runs"),
		Parallel:        true,
		Logger:          testLogger(),
		Now:             func() time.Time { return time.Unix(1718000000, 123456000) },
		NewToken:        func() string { return "0b9a4f3e-2f7c-4a51-9d3c-7f0e6c1a2b3c" },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.runner = r
	return f
}

func (f *fixture) remainingFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestExecute_Success(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{
		Stdout: `{"result": "ok"}`,
		Stderr: "INFO [workflow] completed success",
	})

	code, err := f.runner.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if code != host.ServiceSucceeded {
		t.Errorf("code = %v, want %v", code, host.ServiceSucceeded)
	}

	wantStates := []State{Validating, Wrapping, Submitting, Running, Collecting, CleaningUp, Succeeded}
	if got := f.runner.History(); !reflect.DeepEqual(got, wantStates) {
		t.Errorf("history = %v, want %v", got, wantStates)
	}
	if got := f.reporter.Progress(); !reflect.DeepEqual(got, []int{2, 5, 18, 90, 97, 100}) {
		t.Errorf("progress = %v, want [2 5 18 90 97 100]", got)
	}
	if got := f.reporter.Message(); got != "execution successful" {
		t.Errorf("message = %q, want execution successful", got)
	}

	wantOutputs := map[string]any{"stac": map[string]any{"result": "ok"}}
	if got := f.runner.Outputs().Parameters(); !reflect.DeepEqual(got, wantOutputs) {
		t.Errorf("outputs = %v, want %v", got, wantOutputs)
	}

	if f.handler.calls != 1 {
		t.Errorf("HandleOutputs calls = %d, want 1", f.handler.calls)
	}
	if f.handler.log != "INFO [workflow] completed success" {
		t.Errorf("handler log = %q", f.handler.log)
	}
	if f.handler.jobIDAtRun != f.runner.JobID() || f.runner.JobID() == "" {
		t.Errorf("job id at AdditionalParameters = %q, runner job id = %q", f.handler.jobIDAtRun, f.runner.JobID())
	}
	if f.reporter.JobID() != f.runner.JobID() {
		t.Errorf("reporter job id = %q, want %q", f.reporter.JobID(), f.runner.JobID())
	}

	if len(f.engine.calls) != 1 {
		t.Fatalf("engine calls = %d, want 1", len(f.engine.calls))
	}
	inv := f.engine.calls[0]
	if inv.ContainerEngine != engine.Podman || !inv.Parallel {
		t.Errorf("invocation = %+v", inv)
	}
	if want := filepath.Join(f.workDir, f.runner.JobID()+"-app-package.cwl"); inv.WorkflowFile != want {
		t.Errorf("workflow file = %q, want %q", inv.WorkflowFile, want)
	}
	if !strings.HasPrefix(string(f.engine.workflow), "# wrapped\n") {
		t.Error("engine did not receive the wrapped workflow")
	}
	if f.engine.params["epsg"] != "EPSG:4326" || f.engine.params["process"] != "water_bodies" {
		t.Errorf("engine params = %v", f.engine.params)
	}

	if left := f.remainingFiles(t); len(left) != 0 {
		t.Errorf("job files left behind: %v", left)
	}
}

func TestExecute_EngineFailure(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{
		ExitCode: 1,
		Stderr:   "ERROR [step node_stac] permanentFail",
	})

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed {
		t.Errorf("code = %v, want %v", code, host.ServiceFailed)
	}
	var ee *EngineError
	if !errors.As(err, &ee) || ee.ExitCode != 1 || !errors.Is(err, ErrNonZeroExit) {
		t.Fatalf("error = %v, want EngineError with exit code 1", err)
	}
	if f.runner.State() != Failed {
		t.Errorf("state = %v, want FAILED", f.runner.State())
	}
	if got := f.reporter.Message(); !strings.HasPrefix(got, "Execution failed") {
		t.Errorf("message = %q, want failure message", got)
	}
	// The log is still delivered.
	if f.handler.calls != 1 || f.handler.log == "" {
		t.Errorf("handler calls = %d, log = %q", f.handler.calls, f.handler.log)
	}
	if left := f.remainingFiles(t); len(left) != 0 {
		t.Errorf("job files left behind: %v", left)
	}
}

func TestExecute_MissingParameters(t *testing.T) {
	inputs := waterBodiesInputs()
	delete(inputs, "epsg")
	delete(inputs, "aoi")
	f := newFixture(t, inputs, &engine.Result{Stdout: "{}"})

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed {
		t.Errorf("code = %v, want %v", code, host.ServiceFailed)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrMissingParameters) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if !reflect.DeepEqual(ve.Missing, []string{"aoi", "epsg"}) {
		t.Errorf("missing = %v, want [aoi epsg]", ve.Missing)
	}
	if f.wraps != 0 || len(f.engine.calls) != 0 || f.handler.calls != 0 {
		t.Errorf("side effects after validation failure: wraps=%d engine=%d handler=%d",
			f.wraps, len(f.engine.calls), f.handler.calls)
	}
	if got := f.runner.History(); !reflect.DeepEqual(got, []State{Validating, Failed}) {
		t.Errorf("history = %v", got)
	}
}

func TestAssertParameters(t *testing.T) {
	doc := []byte(`
class: Workflow
id: wf
inputs:
  a: string
  b: int
  c:
    type: string
    default: x
  d: string?
outputs: []
steps: []
`)
	d, err := workflow.New(doc, "wf", parser.New(testLogger()))
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}

	tests := []struct {
		name   string
		inputs Inputs
		want   bool
	}{
		{"missing b", Inputs{"a": {"value": "1"}}, false},
		{"exact", Inputs{"a": {"value": "1"}, "b": {"value": 2}}, true},
		{"extra allowed", Inputs{"a": {"value": "1"}, "b": {"value": 2}, "z": {"value": 3}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(Config{
				Document:        d,
				Inputs:          tt.inputs,
				Handler:         &fakeHandler{},
				Reporter:        &host.Recorder{},
				Wrapper:         wrapper.Func(func(context.Context, wrapper.Source) ([]byte, error) { return nil, nil }),
				ContainerEngine: engine.Docker,
				Logger:          testLogger(),
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := r.AssertParameters(); got != tt.want {
				t.Errorf("AssertParameters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecute_WrapFailure(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{Stdout: "{}"})
	f.runner.wrapper = wrapper.Func(func(context.Context, wrapper.Source) ([]byte, error) {
		return nil, wrapper.ErrEmptyOutput
	})

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed || !errors.Is(err, wrapper.ErrEmptyOutput) {
		t.Fatalf("Execute = (%v, %v), want failure wrapping ErrEmptyOutput", code, err)
	}
	var ee *EngineError
	if !errors.As(err, &ee) || ee.Phase != "wrap" {
		t.Errorf("error = %v, want wrap phase", err)
	}
	if len(f.engine.calls) != 0 {
		t.Error("engine ran after wrap failure")
	}
	if got := f.reporter.Progress(); !reflect.DeepEqual(got, []int{2, 100}) {
		t.Errorf("progress = %v, want [2 100]", got)
	}
}

func TestExecute_HandlerErrorPropagates(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{Stdout: `{"result": "ok"}`})
	boom := errors.New("upload refused")
	f.handler.handleErr = boom

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed {
		t.Errorf("code = %v, want %v", code, host.ServiceFailed)
	}
	var he *HandlerError
	if !errors.As(err, &he) || !errors.Is(err, boom) {
		t.Fatalf("error = %v, want HandlerError wrapping %v", err, boom)
	}
	if left := f.remainingFiles(t); len(left) != 0 {
		t.Errorf("job files left behind: %v", left)
	}
}

func TestExecute_InvalidOutput(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{Stdout: "not json"})

	_, err := f.runner.Execute(context.Background())
	if !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("error = %v, want ErrInvalidOutput", err)
	}
	if errors.Is(err, ErrNonZeroExit) {
		t.Error("invalid output reported as non-zero exit")
	}
	if f.handler.calls != 0 {
		t.Errorf("handler calls = %d, want 0", f.handler.calls)
	}
}

func TestExecute_FailedRunWithInvalidOutput(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{
		ExitCode: 1,
		Stdout:   "Traceback (most recent call last):",
		Stderr:   "ERROR Workflow error",
	})

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed {
		t.Errorf("code = %v, want %v", code, host.ServiceFailed)
	}
	var ee *EngineError
	if !errors.As(err, &ee) || ee.ExitCode != 1 || !errors.Is(err, ErrNonZeroExit) {
		t.Fatalf("error = %v, want EngineError with exit code 1", err)
	}
	if f.handler.calls != 1 || f.handler.log != "ERROR Workflow error" {
		t.Errorf("handler calls = %d, log = %q", f.handler.calls, f.handler.log)
	}
	if len(f.handler.output) != 0 {
		t.Errorf("output = %v, want empty object", f.handler.output)
	}
}

func TestExecute_EngineStartFailure(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), nil)
	f.engine.err = errors.New("exec: cwltool: not found")

	code, err := f.runner.Execute(context.Background())
	if code != host.ServiceFailed {
		t.Errorf("code = %v, want %v", code, host.ServiceFailed)
	}
	var ee *EngineError
	if !errors.As(err, &ee) || ee.Phase != "run" {
		t.Errorf("error = %v, want run phase EngineError", err)
	}
	if left := f.remainingFiles(t); len(left) != 0 {
		t.Errorf("job files left behind: %v", left)
	}
}

func TestExecute_Twice(t *testing.T) {
	f := newFixture(t, waterBodiesInputs(), &engine.Result{Stdout: "{}"})
	if _, err := f.runner.Execute(context.Background()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if _, err := f.runner.Execute(context.Background()); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("second Execute error = %v, want ErrAlreadyExecuted", err)
	}
}

func TestExecute_HandlerParametersOverride(t *testing.T) {
	inputs := waterBodiesInputs()
	inputs["process"] = map[string]any{"value": "from-caller"}
	inputs["threshold"] = map[string]any{"value": 0.3}
	f := newFixture(t, inputs, &engine.Result{Stdout: "{}"})
	f.handler.extra = map[string]any{
		"process":             "water_bodies",
		"STAGEOUT_AWS_REGION": "eu-central-1",
	}

	if _, err := f.runner.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	p := f.engine.params
	if p["process"] != "water_bodies" {
		t.Errorf("process = %v, want handler value", p["process"])
	}
	if p["STAGEOUT_AWS_REGION"] != "eu-central-1" {
		t.Errorf("STAGEOUT_AWS_REGION = %v", p["STAGEOUT_AWS_REGION"])
	}
	if p["threshold"] != 0.3 {
		t.Errorf("threshold = %v, want caller value 0.3", p["threshold"])
	}
}

func TestExecute_HandlerMapReplacesCallerMap(t *testing.T) {
	inputs := waterBodiesInputs()
	inputs["opts"] = map[string]any{"value": map[string]any{"a": 1, "b": 2}}
	f := newFixture(t, inputs, &engine.Result{Stdout: "{}"})
	f.handler.extra = map[string]any{"opts": map[string]any{"a": 9}}

	if _, err := f.runner.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := map[string]any{"a": 9}
	if got := f.engine.params["opts"]; !reflect.DeepEqual(got, want) {
		t.Errorf("opts = %v, want handler value %v", got, want)
	}
	caller := map[string]any{"a": 1, "b": 2}
	if got := inputs["opts"]["value"]; !reflect.DeepEqual(got, caller) {
		t.Errorf("caller opts = %v, want unchanged %v", got, caller)
	}
}

func TestMergeParameters(t *testing.T) {
	params := map[string]any{
		"aoi":  "x",
		"opts": map[string]any{"a": 1, "b": 2},
	}
	extra := map[string]any{
		"opts":    map[string]any{"a": 9},
		"process": "water_bodies",
	}

	got := mergeParameters(params, extra)
	want := map[string]any{
		"aoi":     "x",
		"opts":    map[string]any{"a": 9},
		"process": "water_bodies",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mergeParameters() = %v, want %v", got, want)
	}
	if _, ok := params["process"]; ok {
		t.Error("params gained a handler key")
	}
	if len(mergeParameters(nil, nil)) != 0 {
		t.Error("merge of nil maps should be empty")
	}
}

func TestNew_NoContainerEngine(t *testing.T) {
	_, err := New(Config{
		Document: loadWaterBodies(t),
		Handler:  &fakeHandler{},
		Reporter: &host.Recorder{},
		Wrapper:  wrapper.Func(func(context.Context, wrapper.Source) ([]byte, error) { return nil, nil }),
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
		Logger:   testLogger(),
	})
	if !errors.Is(err, engine.ErrNoContainerEngine) {
		t.Errorf("New() error = %v, want ErrNoContainerEngine", err)
	}
}

func TestNewJobID(t *testing.T) {
	now := time.Unix(1718000000, 123456000)
	got := NewJobID("water_bodies", now, "abc")
	if want := "water-bodies-1718000000123456-abc"; got != want {
		t.Errorf("NewJobID() = %q, want %q", got, want)
	}

	whole := NewJobID("water_bodies", time.Unix(1718000000, 0), "abc")
	if want := "water-bodies-17180000000-abc"; whole != want {
		t.Errorf("NewJobID() at a whole second = %q, want %q", whole, want)
	}

	long := NewJobID("a_very_long_workflow_identifier_for_water_bodies", now, "0b9a4f3e-2f7c-4a51-9d3c-7f0e6c1a2b3c")
	if len(long) > MaxJobIDLength {
		t.Errorf("len = %d, want <= %d", len(long), MaxJobIDLength)
	}
	if !strings.HasPrefix(long, "a-very-long-workflow-identifier-for-water-bodies-1718000000") {
		t.Errorf("NewJobID() = %q, prefix not preserved", long)
	}
}

func TestShortenJobID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short unchanged", "wf-1-abc", "wf-1-abc"},
		{"exactly 63", strings.Repeat("a", 63), strings.Repeat("a", 63)},
		{"trimmed", strings.Repeat("a", 70), strings.Repeat("a", 63)},
		{"trailing hyphens stripped", strings.Repeat("a", 62) + "--b", strings.Repeat("a", 62)},
		{"hyphen at cut", strings.Repeat("a", 60) + "-bc-def", strings.Repeat("a", 60) + "-bc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortenJobID(tt.in); got != tt.want {
				t.Errorf("ShortenJobID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShortenJobID_Properties(t *testing.T) {
	ids := []string{"w", "water_bodies", strings.Repeat("x_", 40), strings.Repeat("-", 80) + "z"}
	for _, wfid := range ids {
		for _, token := range []string{"", "t", strings.Repeat("ab-", 30)} {
			id := NewJobID(wfid, time.Unix(1, 0), token)
			if len(id) > MaxJobIDLength {
				t.Errorf("NewJobID(%q, %q) len = %d", wfid, token, len(id))
			}
			if len(id) > 0 && id != ShortenJobID(id) {
				t.Errorf("NewJobID(%q, %q) = %q not stable", wfid, token, id)
			}
			if strings.Contains(id, "_") {
				t.Errorf("NewJobID(%q, %q) = %q contains underscore", wfid, token, id)
			}
		}
	}
}

func TestOutputs_SetOutput(t *testing.T) {
	out := Outputs{}
	out.SetOutput(map[string]any{"a": 1})
	out.SetOutput(map[string]any{"b": 2})
	want := map[string]any{"stac": map[string]any{"b": 2}}
	if got := out.Parameters(); !reflect.DeepEqual(got, want) {
		t.Errorf("Parameters() = %v, want %v", got, want)
	}
}

func TestInputs(t *testing.T) {
	in := Inputs{"aoi": {"value": "x"}, "epsg": {"value": "EPSG:4326", "dataType": "string"}}
	if got := in.ProcessingParameters(); !reflect.DeepEqual(got, map[string]any{"aoi": "x", "epsg": "EPSG:4326"}) {
		t.Errorf("ProcessingParameters() = %v", got)
	}
	if v, ok := in.Value("epsg"); !ok || v != "EPSG:4326" {
		t.Errorf("Value(epsg) = %v, %v", v, ok)
	}
	if _, ok := in.Value("missing"); ok {
		t.Error("Value(missing) ok = true")
	}
	if got := in.Names(); !reflect.DeepEqual(got, []string{"aoi", "epsg"}) {
		t.Errorf("Names() = %v", got)
	}
}
