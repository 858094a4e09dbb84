// Package parser turns CWL YAML into the element graph of pkg/cwl.
// It reads only what workflow orchestration needs (inputs, steps,
// requirements and hints); it is not a full CWL loader.
package parser

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/me/zoorunner/pkg/cwl"
	"gopkg.in/yaml.v3"
)

// Parser converts raw CWL YAML into a cwl.Graph.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger.With("component", "parser")}
}

// Parse parses CWL YAML (packed $graph or a bare process document).
func (p *Parser) Parse(data []byte) (*cwl.Graph, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty CWL document")
	}
	return p.ParseRaw(raw)
}

// ParseRaw parses an already-unmarshaled CWL document.
func (p *Parser) ParseRaw(raw map[string]any) (*cwl.Graph, error) {
	graph := &cwl.Graph{
		CWLVersion: stringField(raw, "cwlVersion"),
		Namespaces: stringMap(raw["$namespaces"]),
	}

	graphRaw, hasGraph := raw["$graph"]
	if !hasGraph {
		// Bare document: a single process object.
		elems, err := p.parseElement(raw)
		if err != nil {
			return nil, err
		}
		if elems[0].ID == "" {
			elems[0].ID = "main"
		}
		graph.Elements = elems
		return graph, nil
	}

	entries, ok := graphRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("$graph must be an array")
	}
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("$graph[%d]: expected map, got %T", i, entry)
		}
		elems, err := p.parseElement(m)
		if err != nil {
			return nil, fmt.Errorf("$graph[%d]: %w", i, err)
		}
		if elems[0].ID == "" {
			return nil, fmt.Errorf("$graph[%d] (%s): missing id", i, elems[0].Class)
		}
		graph.Elements = append(graph.Elements, elems...)
	}
	if len(graph.Elements) == 0 {
		return nil, fmt.Errorf("$graph contains no entries")
	}

	p.logger.Debug("parsed CWL graph", "version", graph.CWLVersion, "elements", len(graph.Elements))
	return graph, nil
}

// parseElement parses one process object. Inline step tools are returned
// after the element itself.
func (p *Parser) parseElement(raw map[string]any) ([]*cwl.Element, error) {
	class := stringField(raw, "class")
	switch class {
	case cwl.ClassWorkflow, cwl.ClassCommandLineTool, cwl.ClassExpressionTool:
	case "":
		return nil, fmt.Errorf("missing class")
	default:
		return nil, fmt.Errorf("unknown class %q", class)
	}

	elem := &cwl.Element{
		ID:           stringField(raw, "id"),
		Class:        class,
		Label:        stringField(raw, "label"),
		Doc:          stringField(raw, "doc"),
		Requirements: normalizeEntries(raw["requirements"]),
		Hints:        normalizeEntries(raw["hints"]),
	}

	for _, item := range normalizeToList(raw["inputs"]) {
		inp, err := parseInput(item)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", class, elem.ID, err)
		}
		elem.Inputs = append(elem.Inputs, inp)
	}

	elems := []*cwl.Element{elem}
	if class != cwl.ClassWorkflow {
		return elems, nil
	}

	for _, item := range normalizeToList(raw["steps"]) {
		m, ok := item.value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("step %q: expected map, got %T", item.id, item.value)
		}
		step := cwl.Step{
			ID:            cwl.ShortID(item.id),
			Scatter:       stringSlice(m, "scatter"),
			ScatterMethod: stringField(m, "scatterMethod"),
		}

		// run is either a "#id" reference or an inline process.
		switch run := m["run"].(type) {
		case string:
			step.Run = run
		case map[string]any:
			inline, err := p.parseElement(run)
			if err != nil {
				return nil, fmt.Errorf("step %q: parse inline process: %w", step.ID, err)
			}
			if inline[0].ID == "" {
				inline[0].ID = step.ID + "_inline"
			}
			step.Run = "#" + cwl.ShortID(inline[0].ID)
			elems = append(elems, inline...)
		case nil:
			return nil, fmt.Errorf("step %q: missing run", step.ID)
		default:
			return nil, fmt.Errorf("step %q: unexpected run type %T", step.ID, run)
		}
		elem.Steps = append(elem.Steps, step)
	}
	return elems, nil
}

func parseInput(item listItem) (cwl.InputParam, error) {
	inp := cwl.InputParam{ID: cwl.ShortID(item.id)}
	switch val := item.value.(type) {
	case string, []any:
		// Shorthand: "aoi: string" or "bands: [null, string]".
		inp.Type = val
	case map[string]any:
		inp.Type = val["type"]
		inp.Default = val["default"]
		inp.Doc = stringField(val, "doc")
	default:
		return inp, fmt.Errorf("input %q: unexpected type %T", item.id, item.value)
	}
	return inp, nil
}

// listItem is one id-keyed entry of an inputs/steps section.
type listItem struct {
	id    string
	value any
}

// normalizeToList converts map-style and array-style CWL sections to an
// ordered list. CWL supports both: inputs: [{id: x, type: File}] and
// inputs: {x: {type: File}}. Map-style sections are ordered by key.
func normalizeToList(v any) []listItem {
	var items []listItem
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, listItem{id: k, value: val[k]})
		}
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				if id, ok := m["id"].(string); ok {
					items = append(items, listItem{id: id, value: m})
				}
			}
		}
	}
	return items
}

// normalizeEntries converts requirements/hints to a list of class-tagged
// entries. Array-style keeps order and duplicates; map-style
// ({ResourceRequirement: {...}}) is ordered by class.
func normalizeEntries(v any) []cwl.Entry {
	var entries []cwl.Entry
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, cwl.Entry(m))
			}
		}
	case map[string]any:
		classes := make([]string, 0, len(val))
		for k := range val {
			classes = append(classes, k)
		}
		sort.Strings(classes)
		for _, class := range classes {
			entry := cwl.Entry{"class": class}
			if m, ok := val[class].(map[string]any); ok {
				for k, fv := range m {
					entry[k] = fv
				}
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// stringField safely extracts a string from a map.
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	// Handle YAML type coercion (e.g., id: 42 parsed as int).
	return fmt.Sprintf("%v", v)
}

// stringSlice extracts a string or list of strings as []string.
// YAML decoder produces []any, not []string.
func stringSlice(m map[string]any, key string) []string {
	switch s := m[key].(type) {
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	case []any:
		var result []string
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return nil
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
