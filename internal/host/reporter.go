package host

import (
	"context"
	"log/slog"
	"sync"
)

// Reporter receives progress telemetry from the runner. Reports are
// advisory and fire-and-forget.
type Reporter interface {
	// UpdateStatus reports progress (0-100) with an optional message.
	UpdateStatus(progress int, message string)
	// SetMessage sets the shared "last message" slot.
	SetMessage(message string)
	// Message returns the current "last message".
	Message() string
}

// JobIDSetter is implemented by reporters that want to know the job id
// once the runner generates it.
type JobIDSetter interface {
	SetJobID(jobID string)
}

// StatusSink records status updates for later inspection.
type StatusSink interface {
	AppendStatus(ctx context.Context, runID string, progress int, message string) error
	SetRunJob(ctx context.Context, runID, jobID string) error
}

// ConfReporter is the production Reporter: it writes messages into
// conf.lenv.message, logs progress and records each update in an optional
// StatusSink.
type ConfReporter struct {
	conf   Conf
	logger *slog.Logger
	sink   StatusSink
}

// NewConfReporter creates a ConfReporter. sink may be nil.
func NewConfReporter(conf Conf, logger *slog.Logger, sink StatusSink) *ConfReporter {
	return &ConfReporter{
		conf:   conf,
		logger: logger.With("component", "host", "run_id", conf.RunID()),
		sink:   sink,
	}
}

// UpdateStatus implements Reporter.
func (r *ConfReporter) UpdateStatus(progress int, message string) {
	if message != "" {
		r.SetMessage(message)
	}
	r.logger.Info("status", "progress", progress, "message", message)
	if r.sink == nil {
		return
	}
	if err := r.sink.AppendStatus(context.Background(), r.conf.RunID(), progress, message); err != nil {
		r.logger.Warn("record status failed", "error", err)
	}
}

// SetMessage implements Reporter.
func (r *ConfReporter) SetMessage(message string) {
	r.conf.Set(SectionLenv, KeyMessage, message)
}

// Message implements Reporter.
func (r *ConfReporter) Message() string {
	return r.conf.Get(SectionLenv, KeyMessage)
}

// SetJobID implements JobIDSetter.
func (r *ConfReporter) SetJobID(jobID string) {
	r.conf.Set(SectionLenv, KeyJobID, jobID)
	if r.sink == nil {
		return
	}
	if err := r.sink.SetRunJob(context.Background(), r.conf.RunID(), jobID); err != nil {
		r.logger.Warn("record job id failed", "error", err)
	}
}

// Update is one recorded status report.
type Update struct {
	Progress int
	Message  string
}

// Recorder is an in-memory Reporter for tests.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
	message string
	jobID   string
}

// UpdateStatus implements Reporter.
func (r *Recorder) UpdateStatus(progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, Update{Progress: progress, Message: message})
	if message != "" {
		r.message = message
	}
}

// SetMessage implements Reporter.
func (r *Recorder) SetMessage(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.message = message
}

// Message implements Reporter.
func (r *Recorder) Message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}

// SetJobID implements JobIDSetter.
func (r *Recorder) SetJobID(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobID = jobID
}

// JobID returns the job id passed to SetJobID.
func (r *Recorder) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

// Updates returns a copy of the recorded reports.
func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

// Progress returns the recorded progress values in order.
func (r *Recorder) Progress() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Progress
	}
	return out
}
