package resources

import (
	"fmt"
	"log/slog"

	"github.com/me/zoorunner/internal/cwlexpr"
	"github.com/me/zoorunner/internal/workflow"
	"github.com/me/zoorunner/pkg/cwl"
)

// ScatterMultiplier is the factor applied to a scattered step's
// requirement. The number of scatter instances is unknown before the run,
// so a scattered step is costed as two parallel instances.
const ScatterMultiplier = 2

// Evaluator walks the top-level workflow of a document and aggregates the
// resource requirements of the workflow and of its direct steps.
type Evaluator struct {
	logger *slog.Logger
	expr   *cwlexpr.Evaluator
	inputs map[string]any
}

// NewEvaluator creates an Evaluator. inputs, when non-nil, are used to
// evaluate requirement fields written as CWL expressions.
func NewEvaluator(logger *slog.Logger, inputs map[string]any) *Evaluator {
	return &Evaluator{
		logger: logger.With("component", "resources"),
		expr:   cwlexpr.NewEvaluator(nil),
		inputs: inputs,
	}
}

// Evaluate returns a fresh Model for doc. Nested workflows are resolved
// but not recursed into; only direct children of the top-level workflow
// contribute. A step whose target does not resolve is an error.
func (e *Evaluator) Evaluate(doc *workflow.Document) (*Model, error) {
	wf, err := doc.Workflow()
	if err != nil {
		return nil, err
	}

	m := New()
	if req, res := workflow.ResourceRequirement(wf); res == workflow.Found {
		e.add(m, req, 1, wf.ID)
	} else {
		e.logger.Debug("no resource requirement contributed", "element", wf.ID, "resolution", res)
	}

	for _, step := range wf.Steps {
		target, err := doc.ObjectByID(step.RunID())
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.ID, err)
		}
		req, res := workflow.ResourceRequirement(target)
		if res != workflow.Found {
			e.logger.Debug("no resource requirement contributed", "step", step.ID, "element", target.ID, "resolution", res)
			continue
		}
		multiplier := 1.0
		if workflow.IsScattered(step) {
			multiplier = ScatterMultiplier
		}
		e.add(m, req, multiplier, step.ID)
	}
	return m, nil
}

func (e *Evaluator) add(m *Model, req *cwl.ResourceRequirement, multiplier float64, source string) {
	for _, f := range cwl.ResourceFields {
		v, ok := e.value(req.Get(f), f, source)
		if !ok {
			continue
		}
		m.Add(f, v*multiplier)
	}
}

// value resolves a requirement field to a number. Unspecified fields and
// expressions that cannot be evaluated report false.
func (e *Evaluator) value(raw any, f cwl.ResourceField, source string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	if s, ok := raw.(string); ok && cwlexpr.IsExpression(s) {
		if e.inputs == nil {
			e.logger.Debug("skipping expression without inputs", "source", source, "field", f, "expr", s)
			return 0, false
		}
		out, err := e.expr.Evaluate(s, e.inputs)
		if err != nil {
			e.logger.Warn("resource expression failed", "source", source, "field", f, "expr", s, "error", err)
			return 0, false
		}
		raw = out
	}
	v, ok := cwl.Number(raw)
	if !ok {
		e.logger.Warn("non-numeric resource value", "source", source, "field", f, "value", raw)
	}
	return v, ok
}
