// Package wizard drives one user through building a social media post: brand
// details, generated copy, an optional voiceover, render submission and the
// wait for the finished asset.
//
// A Session owns its campaign record and mutates it only from its own action
// methods. Backend calls run without the session lock held; while one is
// outstanding every other action returns ErrBusy. The render poll in the
// rendering step runs on its own goroutine and is cancelled on every way out
// of that step.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orion/internal/campaign"
	"orion/internal/fault"
	"orion/internal/render"
	"orion/internal/speech"
	"orion/internal/studio"
)

const (
	DefaultPollInterval = 4 * time.Second
	DefaultSettleDelay  = time.Second
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Event reports a change in session state. It is delivered without the
// session lock held and may arrive from the poll goroutine.
type Event struct {
	Step         Step
	RenderStatus render.Status
	Err          error
}

type Options struct {
	Logger       *slog.Logger
	PollInterval time.Duration
	// SettleDelay is how long a finished render is shown before the preview.
	// Negative skips the pause.
	SettleDelay time.Duration
	// PollTimeout bounds one poll cycle. Zero polls until a terminal status.
	PollTimeout time.Duration
	OnChange    func(Event)
}

type Session struct {
	id           string
	backend      studio.Backend
	logger       *slog.Logger
	pollInterval time.Duration
	settleDelay  time.Duration
	pollTimeout  time.Duration
	onChange     func(Event)

	mu     sync.Mutex
	step   Step
	data   *campaign.Data
	busy   bool
	err    error
	closed bool
	poll   *pollCycle
}

func New(backend studio.Backend, opts Options) *Session {
	id := uuid.NewString()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	settle := opts.SettleDelay
	switch {
	case settle == 0:
		settle = DefaultSettleDelay
	case settle < 0:
		settle = 0
	}

	return &Session{
		id:           id,
		backend:      backend,
		logger:       logger.With("session", id),
		pollInterval: interval,
		settleDelay:  settle,
		pollTimeout:  opts.PollTimeout,
		onChange:     opts.OnChange,
		step:         StepBrand,
		data:         campaign.New(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Data returns a copy of the campaign record.
func (s *Session) Data() campaign.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Err returns the error surfaced by the last action or poll cycle, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Polling reports whether a render poll cycle is active.
func (s *Session) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poll != nil
}

type Brand struct {
	BrandName   string
	Website     string
	Description string
	LogoURL     string
}

// SetBrand records the first step's answers.
func (s *Session) SetBrand(b Brand) error {
	return s.edit(StepBrand, func(d *campaign.Data) error {
		d.BrandName = strings.TrimSpace(b.BrandName)
		d.Website = strings.TrimSpace(b.Website)
		d.Description = strings.TrimSpace(b.Description)
		d.LogoURL = strings.TrimSpace(b.LogoURL)
		return nil
	})
}

type Targeting struct {
	Industry         string
	Goal             string
	Tone             string
	Platform         string
	Audience         string
	PaletteColor     string
	IncludeVoiceover bool
	Voice            speech.Voice
}

// SetTargeting records the second step's answers. Every field is checked
// against its option set before anything is stored.
func (s *Session) SetTargeting(t Targeting) error {
	checks := []struct {
		field   string
		options []string
		value   string
	}{
		{"industry", campaign.Industries, t.Industry},
		{"goal", campaign.Goals, t.Goal},
		{"tone", campaign.Tones, t.Tone},
		{"platform", campaign.Platforms, t.Platform},
		{"audience", campaign.Audiences, t.Audience},
	}
	for _, c := range checks {
		if !campaign.Contains(c.options, c.value) {
			return fault.Invalid(c.field, "Unknown "+c.field+" "+c.value)
		}
	}

	palette := strings.TrimSpace(t.PaletteColor)
	if palette == "" {
		palette = campaign.DefaultPaletteColor
	}
	if !hexColor.MatchString(palette) {
		return fault.Invalid("paletteColor", "Palette color must look like #00d9ff")
	}

	voice := t.Voice
	if voice == "" {
		voice = speech.DefaultVoice
	}
	if !voice.Valid() {
		return fault.Invalid("voice", "Unknown voice "+string(voice))
	}

	return s.edit(StepTargeting, func(d *campaign.Data) error {
		d.Industry = t.Industry
		d.Goal = t.Goal
		d.Tone = t.Tone
		d.Platform = t.Platform
		d.Audience = t.Audience
		d.PaletteColor = palette
		d.IncludeVoiceover = t.IncludeVoiceover
		d.Voice = voice
		return nil
	})
}

// SetScript replaces the generated voiceover script before synthesis.
func (s *Session) SetScript(script string) error {
	return s.edit(StepCopy, func(d *campaign.Data) error {
		d.Script = script
		return nil
	})
}

func (s *Session) edit(step Step, fn func(d *campaign.Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if s.step != step {
		return ErrWrongStep
	}
	return fn(s.data)
}

// usable must be called with the lock held.
func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	return nil
}

// Continue completes one of the first three steps.
func (s *Session) Continue(ctx context.Context) error {
	return s.perform(ctx, actionContinue)
}

// Generate submits the image render, then the video render.
func (s *Session) Generate(ctx context.Context) error {
	return s.perform(ctx, actionGenerate)
}

// Finalize accepts the preview.
func (s *Session) Finalize(ctx context.Context) error {
	return s.perform(ctx, actionFinalize)
}

func (s *Session) perform(ctx context.Context, want action) error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	step := s.step
	h, ok := handlers[step]
	if !ok || h.action != want {
		s.mu.Unlock()
		return ErrWrongStep
	}
	snapshot := s.data.Clone()
	s.busy = true
	s.err = nil
	s.mu.Unlock()

	s.logger.Debug("Running step", "step", step)
	result, err := h.run(ctx, s.backend, snapshot)

	s.mu.Lock()
	s.busy = false
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		stepErr := stepError(step, h, err)
		s.err = stepErr
		s.mu.Unlock()

		switch {
		case fault.IsValidation(err):
			s.logger.Debug("Step rejected", "step", step, "error", err)
		case fault.IsUpstream(err):
			s.logger.Warn("Upstream service failed", "step", step, "error", err)
		default:
			s.logger.Error("Step failed", "step", step, "error", err)
		}
		s.emit(Event{Step: step, Err: stepErr})
		return stepErr
	}

	if result.apply != nil {
		result.apply(s.data)
	}
	s.step = result.next
	if result.next == StepRendering {
		s.startPollLocked()
	}
	ev := Event{Step: s.step, RenderStatus: s.data.RenderStatus}
	s.mu.Unlock()

	s.logger.Info("Step completed", "from", step, "to", result.next)
	s.emit(ev)
	return nil
}

// Back returns to the previous step without touching the campaign record.
func (s *Session) Back() error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.step.CanGoBack() {
		s.mu.Unlock()
		return ErrWrongStep
	}
	if s.step == StepRendering {
		s.stopPollLocked()
	}
	s.step--
	s.err = nil
	if s.step == StepRendering {
		s.startPollLocked()
	}
	ev := Event{Step: s.step, RenderStatus: s.data.RenderStatus}
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// Restart clears the campaign and starts over. Only offered once done.
func (s *Session) Restart() error {
	s.mu.Lock()
	if err := s.usable(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.step != StepDone {
		s.mu.Unlock()
		return ErrWrongStep
	}
	s.data.Reset()
	s.step = StepBrand
	s.err = nil
	s.mu.Unlock()

	s.logger.Info("Session restarted")
	s.emit(Event{Step: StepBrand})
	return nil
}

// AwaitRender blocks until the active poll cycle ends or ctx is done. It
// returns the error the cycle surfaced, if any.
func (s *Session) AwaitRender(ctx context.Context) error {
	s.mu.Lock()
	cycle := s.poll
	s.mu.Unlock()

	if cycle != nil {
		select {
		case <-cycle.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.err
}

// Close ends the session and waits for any poll goroutine to exit. No poll is
// issued after Close returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cycle := s.poll
	s.stopPollLocked()
	s.mu.Unlock()

	if cycle != nil {
		<-cycle.done
	}
	s.logger.Debug("Session closed")
	return nil
}

func (s *Session) emit(ev Event) {
	if s.onChange != nil {
		s.onChange(ev)
	}
}

// IsRenderFailure reports whether err ended a poll cycle without an asset.
func IsRenderFailure(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Step == StepRendering
}
