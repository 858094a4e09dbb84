package runner

import "sort"

// valueKey is the key holding a slot's value in host input/output maps.
const valueKey = "value"

// OutputKey is the reserved output slot observed by the host.
const OutputKey = "stac"

// Inputs are the host's input slots: name -> {"value": v}.
type Inputs map[string]map[string]any

// ProcessingParameters flattens the slots into name -> value.
func (in Inputs) ProcessingParameters() map[string]any {
	params := make(map[string]any, len(in))
	for k, slot := range in {
		params[k] = slot[valueKey]
	}
	return params
}

// Value returns the value of input key.
func (in Inputs) Value(key string) (any, bool) {
	slot, ok := in[key]
	if !ok {
		return nil, false
	}
	v, ok := slot[valueKey]
	return v, ok
}

// Names returns the input names in sorted order.
func (in Inputs) Names() []string {
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Outputs are the host's output slots: name -> {"value": v}.
type Outputs map[string]map[string]any

// SetOutput stores v under the reserved "stac" slot, replacing any
// previous value.
func (out Outputs) SetOutput(v any) {
	if slot, ok := out[OutputKey]; ok && slot != nil {
		slot[valueKey] = v
		return
	}
	out[OutputKey] = map[string]any{valueKey: v}
}

// Parameters flattens the slots into name -> value.
func (out Outputs) Parameters() map[string]any {
	params := make(map[string]any, len(out))
	for k, slot := range out {
		params[k] = slot[valueKey]
	}
	return params
}
