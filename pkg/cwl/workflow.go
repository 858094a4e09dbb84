package cwl

// Element is one process object of a CWL document: a Workflow,
// CommandLineTool or ExpressionTool. Requirements and hints keep their
// document order and multiplicity.
type Element struct {
	ID           string
	Class        string
	Label        string
	Doc          string
	Inputs       []InputParam
	Steps        []Step // Workflow only
	Requirements []Entry
	Hints        []Entry
}

// IsWorkflow reports whether the element is a CWL Workflow.
func (e *Element) IsWorkflow() bool {
	return e.Class == ClassWorkflow
}

// RequirementsOfClass returns the requirement entries with the given class.
func (e *Element) RequirementsOfClass(class string) []Entry {
	return entriesOfClass(e.Requirements, class)
}

// HintsOfClass returns the hint entries with the given class.
func (e *Element) HintsOfClass(class string) []Entry {
	return entriesOfClass(e.Hints, class)
}

func entriesOfClass(entries []Entry, class string) []Entry {
	var out []Entry
	for _, entry := range entries {
		if entry.Class() == class {
			out = append(out, entry)
		}
	}
	return out
}

// InputParam is a declared input of a workflow or tool.
// Type keeps the raw CWL type (string, union list or schema map).
type InputParam struct {
	ID      string
	Type    any
	Default any
	Doc     string
}

// Nullable string is the only optional type treated as non-mandatory.
var nullableString = []string{"null", "string"}

// IsNullableString reports whether the declared type is ["null", "string"]
// (also written "string?").
func (p InputParam) IsNullableString() bool {
	switch t := p.Type.(type) {
	case string:
		return t == "string?"
	case []any:
		if len(t) != len(nullableString) {
			return false
		}
		for i, member := range t {
			if s, ok := member.(string); !ok || s != nullableString[i] {
				return false
			}
		}
		return true
	case []string:
		if len(t) != len(nullableString) {
			return false
		}
		for i := range t {
			if t[i] != nullableString[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Step is a node of a workflow DAG.
type Step struct {
	ID            string
	Run           string   // "#id" reference to another element
	Scatter       []string // scattered input ids; empty when not scattered
	ScatterMethod string
}

// RunID returns the short id of the element the step runs.
func (s Step) RunID() string {
	return ShortID(s.Run)
}
