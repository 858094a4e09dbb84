package cwl

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// normalizeOutput rewrites float64 values as json.Number so large values
// are written as decimals rather than scientific notation, and turns NaN
// and Inf (not valid JSON) into null.
func normalizeOutput(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeOutput(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeOutput(item)
		}
		return out
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return json.Number(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return v
	}
}

// MarshalOutput renders a CWL output object as indented JSON
// (four spaces, the layout of output.json artifacts).
func MarshalOutput(v any) ([]byte, error) {
	return json.MarshalIndent(normalizeOutput(v), "", "    ")
}
