package cwl

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// ResourceField names one bound of a ResourceRequirement.
type ResourceField string

const (
	CoresMin  ResourceField = "coresMin"
	CoresMax  ResourceField = "coresMax"
	RamMin    ResourceField = "ramMin"
	RamMax    ResourceField = "ramMax"
	TmpdirMin ResourceField = "tmpdirMin"
	TmpdirMax ResourceField = "tmpdirMax"
	OutdirMin ResourceField = "outdirMin"
	OutdirMax ResourceField = "outdirMax"
)

// ResourceFields lists every ResourceRequirement field in canonical order.
var ResourceFields = []ResourceField{
	CoresMin, CoresMax,
	RamMin, RamMax,
	TmpdirMin, TmpdirMax,
	OutdirMin, OutdirMax,
}

// ResourceRequirement specifies compute resource requirements.
// A nil field is unspecified, which is distinct from zero.
// See https://www.commonwl.org/v1.2/CommandLineTool.html#ResourceRequirement
type ResourceRequirement struct {
	Class string `json:"class,omitempty"` // "ResourceRequirement"

	CoresMin any `json:"coresMin,omitempty"` // int, float, or expression
	CoresMax any `json:"coresMax,omitempty"`

	// RAM, tmpdir and outdir values are in mebibytes (MiB).
	RamMin    any `json:"ramMin,omitempty"`
	RamMax    any `json:"ramMax,omitempty"`
	TmpdirMin any `json:"tmpdirMin,omitempty"`
	TmpdirMax any `json:"tmpdirMax,omitempty"`
	OutdirMin any `json:"outdirMin,omitempty"`
	OutdirMax any `json:"outdirMax,omitempty"`
}

// ResourceRequirementFromEntry reconstructs a ResourceRequirement field by
// field from a requirement or hint mapping. Unknown keys are ignored.
func ResourceRequirementFromEntry(e Entry) *ResourceRequirement {
	return &ResourceRequirement{
		Class:     ClassResourceRequirement,
		CoresMin:  e[string(CoresMin)],
		CoresMax:  e[string(CoresMax)],
		RamMin:    e[string(RamMin)],
		RamMax:    e[string(RamMax)],
		TmpdirMin: e[string(TmpdirMin)],
		TmpdirMax: e[string(TmpdirMax)],
		OutdirMin: e[string(OutdirMin)],
		OutdirMax: e[string(OutdirMax)],
	}
}

// Get returns the raw value of field f, or nil when unspecified.
func (r *ResourceRequirement) Get(f ResourceField) any {
	switch f {
	case CoresMin:
		return r.CoresMin
	case CoresMax:
		return r.CoresMax
	case RamMin:
		return r.RamMin
	case RamMax:
		return r.RamMax
	case TmpdirMin:
		return r.TmpdirMin
	case TmpdirMax:
		return r.TmpdirMax
	case OutdirMin:
		return r.OutdirMin
	case OutdirMax:
		return r.OutdirMax
	}
	return nil
}

// Number converts a numeric YAML/JSON value to float64.
// Expressions and other strings report false.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
