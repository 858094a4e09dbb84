package runner

import "context"

// Handler is the deployment-specific policy plugged into a Runner.
type Handler interface {
	// SetJobID is called once, before AdditionalParameters.
	SetJobID(jobID string)
	JobID() string

	// AdditionalParameters returns engine or environment parameters merged
	// into the job's parameters. Values here win over caller-supplied
	// parameters with the same key. Missing optional configuration must
	// yield safe defaults, not an error.
	AdditionalParameters(ctx context.Context) (map[string]any, error)

	// HandleOutputs is called exactly once after the engine terminates with
	// the captured log and parsed output. usageReport and toolLogs are
	// currently always nil. Errors are returned to the Runner's caller.
	HandleOutputs(ctx context.Context, log string, output map[string]any, usageReport map[string]any, toolLogs []string) error
}

// JobIDHolder implements the job id slot of Handler. Embed it.
type JobIDHolder struct {
	jobID string
}

// SetJobID implements Handler.
func (h *JobIDHolder) SetJobID(jobID string) {
	h.jobID = jobID
}

// JobID implements Handler.
func (h *JobIDHolder) JobID() string {
	return h.jobID
}
