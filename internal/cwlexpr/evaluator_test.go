package cwlexpr

import (
	"errors"
	"testing"
)

func TestIsExpression(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"$(inputs.threads)", true},
		{"${ return 1; }", true},
		{"plain", false},
		{`\$(escaped)`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsExpression(tt.in); got != tt.want {
			t.Errorf("IsExpression(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	inputs := map[string]any{
		"threads": 4,
		"name":    "ndwi",
		"bands":   []any{"green", "nir"},
	}
	e := NewEvaluator(nil)

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"literal", "1024", "1024"},
		{"parameter reference", "$(inputs.threads)", int64(4)},
		{"arithmetic", "$(inputs.threads * 2)", int64(8)},
		{"array length", "$(inputs.bands.length)", int64(2)},
		{"code block", "${ return inputs.threads + 1; }", int64(5)},
		{"interpolated", "out_$(inputs.name).tif", "out_ndwi.tif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expr, inputs)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v (%T), want %v (%T)", tt.expr, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestEvaluate_Undefined(t *testing.T) {
	e := NewEvaluator(nil)
	_, err := e.Evaluate("$(inputs.missing)", map[string]any{})
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("error = %v, want ErrUndefined", err)
	}
}

func TestEvaluate_ExpressionLib(t *testing.T) {
	e := NewEvaluator([]string{"function double(x) { return x * 2; }"})
	got, err := e.Evaluate("$(double(inputs.n))", map[string]any{"n": 21})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != int64(42) {
		t.Errorf("got %v, want 42", got)
	}
}

func TestEvaluate_SyntaxError(t *testing.T) {
	e := NewEvaluator(nil)
	if _, err := e.Evaluate("$(inputs.)", nil); err == nil {
		t.Error("expected syntax error")
	}
}
