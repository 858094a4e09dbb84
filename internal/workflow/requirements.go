package workflow

import "github.com/me/zoorunner/pkg/cwl"

// Resolution is the outcome of a resource requirement lookup.
type Resolution int

const (
	// None means no requirement or hint was declared.
	None Resolution = iota
	// Found means exactly one candidate was declared.
	Found
	// Ambiguous means more than one candidate was declared; callers
	// treat it like None.
	Ambiguous
)

func (r Resolution) String() string {
	switch r {
	case Found:
		return "found"
	case Ambiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// ResourceRequirement resolves the resource requirement of a workflow or
// tool. Explicit requirements take precedence; hints of class
// ResourceRequirement are consulted only when no explicit requirement is
// declared. A requirement is returned only for the Found resolution.
func ResourceRequirement(elem *cwl.Element) (*cwl.ResourceRequirement, Resolution) {
	candidates := elem.RequirementsOfClass(cwl.ClassResourceRequirement)
	if len(candidates) == 0 {
		candidates = elem.HintsOfClass(cwl.ClassResourceRequirement)
	}
	switch len(candidates) {
	case 0:
		return nil, None
	case 1:
		return cwl.ResourceRequirementFromEntry(candidates[0]), Found
	default:
		return nil, Ambiguous
	}
}

// HasResourceRequirement reports whether elem declares exactly one
// resource requirement (explicit or hint).
func HasResourceRequirement(elem *cwl.Element) bool {
	_, res := ResourceRequirement(elem)
	return res == Found
}

// IsScattered reports whether the step fans out into parallel instances.
func IsScattered(step cwl.Step) bool {
	return len(step.Scatter) > 0
}

// HasScatterRequirement reports whether elem declares ScatterFeatureRequirement.
func HasScatterRequirement(elem *cwl.Element) bool {
	return len(elem.RequirementsOfClass(cwl.ClassScatterFeatureRequirement)) > 0
}
