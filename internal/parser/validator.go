package parser

import (
	"fmt"
	"log/slog"

	"github.com/me/zoorunner/pkg/cwl"
	"github.com/me/zoorunner/pkg/model"
)

// SupportedVersions lists the cwlVersion values the runner accepts.
var SupportedVersions = []string{"v1.0", "v1.1", "v1.2"}

// Validator performs semantic checks on a parsed cwl.Graph before it is
// handed to the engine.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "validator")}
}

// Validate checks semantic correctness of a graph.
// Returns nil if valid, or an *model.APIError with FieldError details.
func (v *Validator) Validate(graph *cwl.Graph) *model.APIError {
	var errs []model.FieldError

	errs = append(errs, v.validateVersion(graph)...)
	errs = append(errs, v.validateIDs(graph)...)
	errs = append(errs, v.validateWorkflows(graph)...)
	errs = append(errs, v.validateRunRefs(graph)...)
	errs = append(errs, v.validateScatter(graph)...)

	if len(errs) == 0 {
		return nil
	}
	v.logger.Debug("validation failed", "errors", len(errs))
	return model.NewValidationError("CWL validation failed", errs...)
}

func (v *Validator) validateVersion(graph *cwl.Graph) []model.FieldError {
	if graph.CWLVersion == "" {
		return []model.FieldError{{Field: "cwlVersion", Message: "cwlVersion is required"}}
	}
	for _, s := range SupportedVersions {
		if graph.CWLVersion == s {
			return nil
		}
	}
	return []model.FieldError{{
		Field:   "cwlVersion",
		Message: fmt.Sprintf("unsupported cwlVersion %q", graph.CWLVersion),
	}}
}

func (v *Validator) validateIDs(graph *cwl.Graph) []model.FieldError {
	var errs []model.FieldError
	seen := make(map[string]bool, len(graph.Elements))
	for _, e := range graph.Elements {
		id := cwl.ShortID(e.ID)
		if seen[id] {
			errs = append(errs, model.FieldError{
				Field:   "$graph",
				Message: fmt.Sprintf("duplicate id %q", id),
			})
		}
		seen[id] = true
	}
	return errs
}

func (v *Validator) validateWorkflows(graph *cwl.Graph) []model.FieldError {
	wfs := graph.Workflows()
	if len(wfs) == 0 {
		return []model.FieldError{{Field: "$graph", Message: "no Workflow entry found"}}
	}

	var errs []model.FieldError
	for _, wf := range wfs {
		for _, inp := range wf.Inputs {
			if inp.Type == nil {
				errs = append(errs, model.FieldError{
					Field:   fmt.Sprintf("%s.inputs.%s.type", wf.ID, inp.ID),
					Message: fmt.Sprintf("input %q is missing type", inp.ID),
				})
			}
		}
		steps := make(map[string]bool, len(wf.Steps))
		for _, s := range wf.Steps {
			if steps[s.ID] {
				errs = append(errs, model.FieldError{
					Field:   fmt.Sprintf("%s.steps.%s", wf.ID, s.ID),
					Message: fmt.Sprintf("duplicate step %q", s.ID),
				})
			}
			steps[s.ID] = true
		}
	}
	return errs
}

// validateRunRefs requires every step's run reference to name exactly one
// element of the graph.
func (v *Validator) validateRunRefs(graph *cwl.Graph) []model.FieldError {
	var errs []model.FieldError
	for _, wf := range graph.Workflows() {
		for _, s := range wf.Steps {
			field := fmt.Sprintf("%s.steps.%s.run", wf.ID, s.ID)
			switch n := len(graph.Lookup(s.RunID())); {
			case n == 0:
				errs = append(errs, model.FieldError{
					Field:   field,
					Message: fmt.Sprintf("run reference %q not found in $graph", s.Run),
				})
			case n > 1:
				errs = append(errs, model.FieldError{
					Field:   field,
					Message: fmt.Sprintf("run reference %q matches %d elements", s.Run, n),
				})
			}
		}
	}
	return errs
}

func (v *Validator) validateScatter(graph *cwl.Graph) []model.FieldError {
	var errs []model.FieldError
	for _, wf := range graph.Workflows() {
		declared := len(wf.RequirementsOfClass(cwl.ClassScatterFeatureRequirement)) > 0
		for _, s := range wf.Steps {
			if len(s.Scatter) > 0 && !declared {
				errs = append(errs, model.FieldError{
					Field:   fmt.Sprintf("%s.steps.%s.scatter", wf.ID, s.ID),
					Message: "scatter requires ScatterFeatureRequirement",
				})
			}
		}
	}
	return errs
}
