// Package resources aggregates the resource requirements declared by a
// workflow and its steps into a single footprint for the whole run.
package resources

import (
	"github.com/dustin/go-humanize"
	"github.com/me/zoorunner/pkg/cwl"
)

// Model accumulates every observed value per resource field. Reduction
// (sum, max) is left to the consumer; an empty list means unspecified.
type Model struct {
	CoresMin  []float64 `json:"coresMin"`
	CoresMax  []float64 `json:"coresMax"`
	RamMin    []float64 `json:"ramMin"`
	RamMax    []float64 `json:"ramMax"`
	TmpdirMin []float64 `json:"tmpdirMin"`
	TmpdirMax []float64 `json:"tmpdirMax"`
	OutdirMin []float64 `json:"outdirMin"`
	OutdirMax []float64 `json:"outdirMax"`
}

// New returns an empty model whose lists encode as [] rather than null.
func New() *Model {
	return &Model{
		CoresMin: []float64{}, CoresMax: []float64{},
		RamMin: []float64{}, RamMax: []float64{},
		TmpdirMin: []float64{}, TmpdirMax: []float64{},
		OutdirMin: []float64{}, OutdirMax: []float64{},
	}
}

func (m *Model) field(f cwl.ResourceField) *[]float64 {
	switch f {
	case cwl.CoresMin:
		return &m.CoresMin
	case cwl.CoresMax:
		return &m.CoresMax
	case cwl.RamMin:
		return &m.RamMin
	case cwl.RamMax:
		return &m.RamMax
	case cwl.TmpdirMin:
		return &m.TmpdirMin
	case cwl.TmpdirMax:
		return &m.TmpdirMax
	case cwl.OutdirMin:
		return &m.OutdirMin
	case cwl.OutdirMax:
		return &m.OutdirMax
	}
	return nil
}

// Add appends v to field f.
func (m *Model) Add(f cwl.ResourceField, v float64) {
	if p := m.field(f); p != nil {
		*p = append(*p, v)
	}
}

// Values returns the accumulated values of field f.
func (m *Model) Values(f cwl.ResourceField) []float64 {
	if p := m.field(f); p != nil {
		return *p
	}
	return nil
}

// Merge appends every value of other, field by field.
func (m *Model) Merge(other *Model) {
	for _, f := range cwl.ResourceFields {
		for _, v := range other.Values(f) {
			m.Add(f, v)
		}
	}
}

// Totals is one reduced value per field. Nil means no value was observed.
type Totals map[cwl.ResourceField]*float64

// Sum reduces every field to the sum of its values.
func (m *Model) Sum() Totals {
	return m.reduce(func(acc, v float64) float64 { return acc + v })
}

// Max reduces every field to its largest value.
func (m *Model) Max() Totals {
	return m.reduce(func(acc, v float64) float64 {
		if v > acc {
			return v
		}
		return acc
	})
}

func (m *Model) reduce(fn func(acc, v float64) float64) Totals {
	t := make(Totals, len(cwl.ResourceFields))
	for _, f := range cwl.ResourceFields {
		vals := m.Values(f)
		if len(vals) == 0 {
			t[f] = nil
			continue
		}
		acc := vals[0]
		for _, v := range vals[1:] {
			acc = fn(acc, v)
		}
		t[f] = &acc
	}
	return t
}

// LogAttrs renders totals as slog key/value pairs. Cores are plain
// numbers; RAM and disk (MiB) are humanized.
func (t Totals) LogAttrs() []any {
	var attrs []any
	for _, f := range cwl.ResourceFields {
		v := t[f]
		if v == nil {
			continue
		}
		switch f {
		case cwl.CoresMin, cwl.CoresMax:
			attrs = append(attrs, string(f), *v)
		default:
			attrs = append(attrs, string(f), humanize.IBytes(uint64(*v*1024*1024)))
		}
	}
	return attrs
}
