package render

import (
	"fmt"
)

// Status is the lifecycle state reported by the rendering service.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusFetching  Status = "fetching"
	StatusRendering Status = "rendering"
	StatusSaving    Status = "saving"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Job is the acknowledgement returned when a render is accepted.
type Job struct {
	ID     string
	Status Status
}

// State is a point-in-time view of a render job.
type State struct {
	ID       string
	Status   Status
	URL      string
	Error    string
	Progress float64
}

// SubmissionError reports a render payload the service rejected or could not receive.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit render: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError reports a failed status lookup. Callers should treat it as transient.
type PollError struct {
	ID  string
	Err error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll render %s: %v", e.ID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
