package wizard

import (
	"context"
	"time"

	"orion/internal/fault"
	"orion/internal/render"
	"orion/internal/studio"
)

// pollCycle is one run of the render poll. done closes once its goroutine
// has returned.
type pollCycle struct {
	renderID string
	cancel   context.CancelFunc
	done     chan struct{}
}

// startPollLocked arms a fresh cycle for the current render. The caller holds
// the lock and has just entered the rendering step.
func (s *Session) startPollLocked() {
	s.stopPollLocked()

	id := s.data.RenderID
	if id == "" {
		s.logger.Warn("Rendering step entered without a render id")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	cycle := &pollCycle{renderID: id, cancel: cancel, done: make(chan struct{})}
	s.poll = cycle

	s.logger.Debug("Polling render", "id", id, "interval", s.pollInterval)
	go s.runPoll(ctx, cycle)
}

// stopPollLocked cancels the active cycle, if any. The caller holds the lock.
func (s *Session) stopPollLocked() {
	if s.poll == nil {
		return
	}
	s.poll.cancel()
	s.poll = nil
}

func (s *Session) runPoll(ctx context.Context, cycle *pollCycle) {
	defer close(cycle.done)
	defer cycle.cancel()

	// A ticker drops ticks while a poll is outstanding, so polls never overlap.
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.pollTimeout > 0 {
		timer := time.NewTimer(s.pollTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			s.failPoll(cycle, &PollTimeoutError{RenderID: cycle.renderID, After: s.pollTimeout},
				"Rendering is taking too long. Please try again.")
			return
		case <-ticker.C:
		}

		status, err := s.backend.RenderStatus(ctx, cycle.renderID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// A rejected lookup will be rejected again; only transport failures are retried.
			if fault.IsValidation(err) {
				s.failPoll(cycle, err, "Rendering failed. Please try again.")
				return
			}
			s.logger.Warn("Render status check failed", "id", cycle.renderID, "error", err)
			continue
		}

		switch status.Status {
		case render.StatusDone:
			s.completePoll(ctx, cycle, status)
			return
		case render.StatusFailed:
			s.failPoll(cycle, &RenderFailedError{RenderID: cycle.renderID, Reason: status.Error},
				"Rendering failed. Please try again.")
			return
		default:
			s.observe(cycle, status.Status)
		}
	}
}

// observe records an intermediate status. Reports from a cycle that is no
// longer current are dropped.
func (s *Session) observe(cycle *pollCycle, status render.Status) {
	s.mu.Lock()
	if s.poll != cycle {
		s.mu.Unlock()
		return
	}
	s.data.RenderStatus = status
	ev := Event{Step: s.step, RenderStatus: status}
	s.mu.Unlock()

	s.logger.Debug("Render status", "id", cycle.renderID, "status", status)
	s.emit(ev)
}

func (s *Session) completePoll(ctx context.Context, cycle *pollCycle, status *studio.RenderStatus) {
	s.mu.Lock()
	if s.poll != cycle {
		s.mu.Unlock()
		return
	}
	s.data.RenderStatus = render.StatusDone
	s.data.ImageURL = status.URL
	s.data.VideoURL = status.URL
	ev := Event{Step: s.step, RenderStatus: render.StatusDone}
	s.mu.Unlock()

	s.logger.Info("Render finished", "id", cycle.renderID, "url", status.URL)
	s.emit(ev)

	if s.settleDelay > 0 {
		settle := time.NewTimer(s.settleDelay)
		defer settle.Stop()
		select {
		case <-ctx.Done():
			return
		case <-settle.C:
		}
	}

	s.mu.Lock()
	if s.poll != cycle {
		s.mu.Unlock()
		return
	}
	s.poll = nil
	s.step = StepPreview
	ev = Event{Step: StepPreview, RenderStatus: render.StatusDone}
	s.mu.Unlock()

	s.emit(ev)
}

func (s *Session) failPoll(cycle *pollCycle, cause error, message string) {
	s.mu.Lock()
	if s.poll != cycle {
		s.mu.Unlock()
		return
	}
	s.poll = nil
	if _, failed := cause.(*RenderFailedError); failed || fault.IsValidation(cause) {
		s.data.RenderStatus = render.StatusFailed
	}
	stepErr := &StepError{Step: StepRendering, Message: message, Err: cause}
	s.err = stepErr
	ev := Event{Step: s.step, RenderStatus: s.data.RenderStatus, Err: stepErr}
	s.mu.Unlock()

	s.logger.Error("Render did not finish", "id", cycle.renderID, "error", cause)
	s.emit(ev)
}
