package wizard

import (
	"errors"
	"fmt"
	"time"
)

const genericFailure = "Something went wrong. Please try again."

var (
	// ErrBusy is returned, with no effect, when an action is triggered while
	// another is still outstanding.
	ErrBusy = errors.New("wizard: action already in progress")
	// ErrWrongStep is returned when an action is not offered at the current step.
	ErrWrongStep = errors.New("wizard: action not available at this step")
	// ErrClosed is returned by every action once Close has been called.
	ErrClosed = errors.New("wizard: session closed")
)

// StepError is a failed action. Message is safe to show to the user; Err
// carries the technical cause.
type StepError struct {
	Step    Step
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// PollTimeoutError ends a poll cycle that ran past the configured ceiling.
type PollTimeoutError struct {
	RenderID string
	After    time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("render %s not finished after %s", e.RenderID, e.After)
}

// RenderFailedError carries the provider's diagnostic for a failed render.
type RenderFailedError struct {
	RenderID string
	Reason   string
}

func (e *RenderFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("render %s failed", e.RenderID)
	}
	return fmt.Sprintf("render %s failed: %s", e.RenderID, e.Reason)
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Message
	}
	if err == nil {
		return ""
	}
	return genericFailure
}
