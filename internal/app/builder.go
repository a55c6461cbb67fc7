// Package app assembles the content studio from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"orion/internal/llm/groq"
	"orion/internal/notify"
	"orion/internal/render"
	"orion/internal/speech"
	"orion/internal/speech/elevenlabs"
	"orion/internal/speech/openai"
	"orion/internal/storage"
	"orion/internal/studio"
	"orion/internal/templates"
	"orion/pkg/config"
	"orion/pkg/prompts"
)

type BuildResult struct {
	Service       *studio.Service
	Notifications *notify.Store

	closers []func() error
}

// Close releases clients opened by Build.
func (r *BuildResult) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func BuildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}

	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	generator, err := groq.NewClient(groq.Config{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
		Prompts: p,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	speaker, err := newSpeaker(cfg)
	if err != nil {
		return nil, err
	}

	set, err := templates.Load(cfg.Templates.Dir)
	if err != nil {
		return nil, err
	}

	store, err := notify.NewStore(notify.Options{
		Dir:    cfg.Notifications.Dir,
		Max:    cfg.Notifications.Max,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Notifications: store}

	publisher, err := newPublisher(ctx, cfg, result)
	if err != nil {
		return nil, err
	}

	renderer := render.NewClient(render.Options{
		APIKey:  cfg.ShotstackAPIKey,
		Env:     cfg.Shotstack.Env,
		BaseURL: cfg.Shotstack.BaseURL,
	})

	result.Service = studio.NewService(studio.Options{
		Generator:   generator,
		Speaker:     speaker,
		Publisher:   publisher,
		Templates:   set,
		Renderer:    renderer,
		Recorder:    store,
		CallbackURL: cfg.Server.CallbackURL(),
		Logger:      logger,
	})

	logger.Debug("Studio assembled",
		"llm_model", cfg.LLM.Model,
		"tts", cfg.TTS.Provider,
		"storage", cfg.Storage.Provider,
		"shotstack_env", cfg.Shotstack.Env,
	)
	return result, nil
}

func newSpeaker(cfg *config.Config) (speech.Provider, error) {
	switch cfg.TTS.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.TTS.Model,
			Speed:   cfg.TTS.Speed,
			BaseURL: cfg.TTS.BaseURL,
		}), nil
	case "elevenlabs":
		return elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:    []string{cfg.ElevenLabsAPIKey},
			Model:      cfg.ElevenLabs.Model,
			Voices:     cfg.ElevenLabs.Voices,
			Speed:      cfg.TTS.Speed,
			Stability:  cfg.ElevenLabs.Stability,
			Similarity: cfg.ElevenLabs.Similarity,
		}), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTS.Provider)
	}
}

func newPublisher(ctx context.Context, cfg *config.Config, result *BuildResult) (storage.Publisher, error) {
	switch cfg.Storage.Provider {
	case "datauri":
		return storage.DataURIPublisher{}, nil
	case "gcs":
		gcs, err := storage.NewGCSPublisher(ctx, storage.GCSConfig{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.Storage.GCSPrefix,
			CredentialsFile: cfg.Storage.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		result.closers = append(result.closers, gcs.Close)
		return gcs, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
