package runner

// State is a stage of the job lifecycle.
type State int

const (
	Pending State = iota
	Validating
	Wrapping
	Submitting
	Running
	Collecting
	CleaningUp
	Succeeded
	Failed
)

var stateNames = [...]string{
	Pending:    "PENDING",
	Validating: "VALIDATING",
	Wrapping:   "WRAPPING",
	Submitting: "SUBMITTING",
	Running:    "RUNNING",
	Collecting: "COLLECTING",
	CleaningUp: "CLEANING_UP",
	Succeeded:  "SUCCEEDED",
	Failed:     "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed
}
