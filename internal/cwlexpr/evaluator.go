// Package cwlexpr evaluates CWL expressions with goja. It covers the
// forms that appear in resource requirements: parameter references
// $(inputs.threads), simple expressions $(inputs.threads * 2) and code
// blocks ${ return inputs.n + 1; }.
package cwlexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// ErrUndefined is returned when an expression evaluates to undefined,
// usually an access to an input that was not supplied.
var ErrUndefined = errors.New("expression returned undefined")

// Evaluator evaluates CWL expressions against job inputs.
type Evaluator struct {
	expressionLib []string
}

// NewEvaluator creates an evaluator. expressionLib holds JavaScript code
// run before every expression (InlineJavascriptRequirement.expressionLib).
func NewEvaluator(expressionLib []string) *Evaluator {
	return &Evaluator{expressionLib: expressionLib}
}

// IsExpression reports whether s contains an unescaped $( or ${.
func IsExpression(s string) bool {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '$' && (s[i+1] == '(' || s[i+1] == '{') && (i == 0 || s[i-1] != '\\') {
			return true
		}
	}
	return false
}

// Evaluate evaluates expr with inputs bound to the "inputs" variable.
// Literals are returned unchanged. A string made of a single expression
// returns the typed value; an interpolated string returns a string.
func (e *Evaluator) Evaluate(expr string, inputs map[string]any) (any, error) {
	if !IsExpression(expr) {
		return expr, nil
	}

	vm := goja.New()
	for i, lib := range e.expressionLib {
		if _, err := vm.RunString(lib); err != nil {
			return nil, fmt.Errorf("expressionLib[%d]: %w", i, err)
		}
	}
	if inputs == nil {
		inputs = map[string]any{}
	}
	if err := vm.Set("inputs", inputs); err != nil {
		return nil, fmt.Errorf("set inputs: %w", err)
	}
	if err := vm.Set("self", nil); err != nil {
		return nil, fmt.Errorf("set self: %w", err)
	}

	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		code := strings.TrimSuffix(strings.TrimPrefix(trimmed, "${"), "}")
		return run(vm, fmt.Sprintf("(function() { %s })()", code), trimmed)
	}

	matches := findExpressions(expr)
	if len(matches) == 1 && matches[0].start == 0 && matches[0].end == len(expr) {
		return run(vm, matches[0].expr, expr)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(expr[last:m.start])
		v, err := run(vm, m.expr, expr[m.start:m.end])
		if err != nil {
			return nil, err
		}
		fmt.Fprint(&b, v)
		last = m.end
	}
	b.WriteString(expr[last:])
	return b.String(), nil
}

func run(vm *goja.Runtime, code, source string) (any, error) {
	val, err := vm.RunString(code)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", source, err)
	}
	if val == nil || goja.IsUndefined(val) {
		return nil, fmt.Errorf("%s: %w", source, ErrUndefined)
	}
	return val.Export(), nil
}

type exprMatch struct {
	start int    // index of "$("
	end   int    // index after the closing ")"
	expr  string // content between the parentheses
}

// findExpressions finds all $(...) patterns, handling nested parentheses.
func findExpressions(s string) []exprMatch {
	var matches []exprMatch
	for i := 0; i < len(s)-1; i++ {
		if s[i] != '$' || s[i+1] != '(' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		depth := 1
		j := i + 2
		for j < len(s) && depth > 0 {
			switch s[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			j++
		}
		if depth == 0 {
			matches = append(matches, exprMatch{start: i, end: j, expr: s[i+2 : j-1]})
			i = j - 1
		}
	}
	return matches
}
