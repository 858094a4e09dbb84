package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/zoorunner/internal/parser"
	"github.com/me/zoorunner/internal/runner"
	"github.com/me/zoorunner/internal/workflow"
)

// loadDocument reads and parses a CWL file.
func loadDocument(path, workflowID string) (*workflow.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CWL: %w", err)
	}
	doc, err := workflow.New(data, workflowID, parser.New(logger))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// loadInputs reads a YAML inputs file. Each entry is either a host slot
// ({value: ...}) or a bare value.
func loadInputs(path string) (runner.Inputs, error) {
	inputs := runner.Inputs{}
	if path == "" {
		return inputs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse inputs %s: %w", path, err)
	}
	for name, v := range raw {
		if slot, ok := v.(map[string]any); ok {
			if _, hasValue := slot["value"]; hasValue {
				inputs[name] = slot
				continue
			}
		}
		inputs[name] = map[string]any{"value": v}
	}
	return inputs, nil
}
