package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"orion/internal/fault"
	"orion/internal/llm"
	"orion/internal/notify"
	"orion/internal/render"
	"orion/internal/speech"
	"orion/internal/storage"
	"orion/internal/templates"
)

var _ Backend = (*Service)(nil)

// Renderer submits and polls render jobs.
type Renderer interface {
	Submit(ctx context.Context, payload any) (*render.Job, error)
	Poll(ctx context.Context, id string) (*render.State, error)
}

// Recorder keeps render-complete notifications.
type Recorder interface {
	Record(n notify.Notification) (notify.Notification, error)
}

type Service struct {
	generator   llm.Generator
	speaker     speech.Provider
	publisher   storage.Publisher
	templates   *templates.Set
	renderer    Renderer
	recorder    Recorder
	callbackURL string
	logger      *slog.Logger
}

type Options struct {
	Generator llm.Generator
	Speaker   speech.Provider
	Publisher storage.Publisher
	Templates *templates.Set
	Renderer  Renderer
	Recorder  Recorder
	// CallbackURL, when set, is attached to every render so the provider
	// reports completion to the notification hook.
	CallbackURL string
	Logger      *slog.Logger
}

func NewService(opts Options) *Service {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = storage.DataURIPublisher{}
	}
	set := opts.Templates
	if set == nil {
		set = templates.Embedded()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		generator:   opts.Generator,
		speaker:     opts.Speaker,
		publisher:   publisher,
		templates:   set,
		renderer:    opts.Renderer,
		recorder:    opts.Recorder,
		callbackURL: opts.CallbackURL,
		logger:      logger,
	}
}

func (s *Service) Compose(ctx context.Context, req ComposeRequest) (*llm.Content, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	content, err := s.generator.GenerateContent(ctx, req)
	if err != nil {
		s.logger.Error("Content generation failed", "brand", req.BrandName, "error", err)
		return nil, fmt.Errorf("generate content: %w", err)
	}

	s.logger.Info("Content generated", "brand", req.BrandName, "headline", content.Headline)
	return content, nil
}

func (s *Service) Speak(ctx context.Context, req SpeechRequest) (*Speech, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, fault.Invalid("script", "Script is required")
	}
	voice, err := speech.ParseVoice(req.Voice)
	if err != nil {
		return nil, err
	}

	audio, err := s.speaker.Synthesize(ctx, req.Script, voice)
	if err != nil {
		s.logger.Error("Speech synthesis failed", "voice", voice, "error", err)
		return nil, err
	}

	url, err := s.publisher.Publish(ctx, "voiceover.mp3", audio.Data, audio.ContentType)
	if err != nil {
		s.logger.Error("Publishing voiceover failed", "error", err)
		return nil, fmt.Errorf("publish voiceover: %w", err)
	}

	s.logger.Info("Voiceover generated", "voice", voice, "bytes", len(audio.Data), "seconds", audio.Duration())
	return &Speech{AudioURL: url, Success: true}, nil
}

func (s *Service) RenderImage(ctx context.Context, req RenderRequest) (*RenderJob, error) {
	return s.submit(ctx, templates.KindImage, req, "Render started successfully")
}

func (s *Service) RenderVideo(ctx context.Context, req RenderRequest) (*RenderJob, error) {
	if req.AudioURL != "" && strings.HasPrefix(req.AudioURL, "data:") {
		s.logger.Warn("Video soundtrack is a data URI; the renderer may not be able to fetch it, configure GCS storage")
	}
	return s.submit(ctx, templates.KindVideo, req, "Video render started successfully")
}

func (s *Service) submit(ctx context.Context, kind templates.Kind, req RenderRequest, message string) (*RenderJob, error) {
	if strings.TrimSpace(req.Headline) == "" || strings.TrimSpace(req.LogoURL) == "" {
		return nil, fault.Invalid("headline", "Headline and logo URL are required")
	}

	format := req.Format
	if format == "" {
		format = templates.FormatFor("", kind)
	}

	values := templates.Values{
		Headline:     req.Headline,
		Caption:      req.Caption,
		LogoURL:      req.LogoURL,
		PaletteColor: req.PaletteColor,
	}
	if kind == templates.KindVideo {
		values.AudioURL = req.AudioURL
	}

	payload, err := s.templates.Resolve(kind, format, values)
	if err != nil {
		return nil, err
	}
	if s.callbackURL != "" {
		payload["callback"] = s.callbackURL
	}

	job, err := s.renderer.Submit(ctx, payload)
	if err != nil {
		s.logger.Error("Render submission failed", "kind", kind, "format", format, "error", err)
		return nil, err
	}

	s.logger.Info("Render submitted", "kind", kind, "format", format, "id", job.ID)
	return &RenderJob{ID: job.ID, Status: render.StatusQueued, Message: message}, nil
}

func (s *Service) RenderStatus(ctx context.Context, id string) (*RenderStatus, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fault.Invalid("id", "Render ID is required")
	}

	state, err := s.renderer.Poll(ctx, id)
	if err != nil {
		var pollErr *render.PollError
		if errors.As(err, &pollErr) {
			s.logger.Warn("Render status check failed", "id", id, "error", err)
		}
		return nil, err
	}

	s.logger.Debug("Render status", "id", id, "status", state.Status, "progress", state.Progress)
	return &RenderStatus{
		ID:       state.ID,
		Status:   state.Status,
		URL:      state.URL,
		Error:    state.Error,
		Progress: state.Progress,
	}, nil
}

func (s *Service) Notify(_ context.Context, n notify.Notification) error {
	if s.recorder == nil {
		s.logger.Info("Render notification received", "id", n.ID, "status", n.Status, "url", n.URL)
		return nil
	}
	if _, err := s.recorder.Record(n); err != nil {
		return err
	}
	return nil
}
