// Package host defines the contract between the runner and the hosting
// processing service: status codes, progress reporting and the shared
// configuration ("conf") the host hands to each execution.
package host

// Code is the two-valued outcome reported to the host.
type Code int

// Values match the hosting service's SERVICE_SUCCEEDED/SERVICE_FAILED.
const (
	ServiceSucceeded Code = 3
	ServiceFailed    Code = 4
)

func (c Code) String() string {
	switch c {
	case ServiceSucceeded:
		return "succeeded"
	case ServiceFailed:
		return "failed"
	default:
		return "unknown"
	}
}
