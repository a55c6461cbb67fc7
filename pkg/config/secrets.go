package config

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretSource resolves a named secret to its latest value.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, error)
	Close() error
}

// newSecretSource is replaced in tests.
var newSecretSource = func(ctx context.Context, project string) (SecretSource, error) {
	return NewGCPSecretSource(ctx, project)
}

// GCPSecretSource reads secrets from Google Secret Manager.
type GCPSecretSource struct {
	client  *secretmanager.Client
	project string
}

func NewGCPSecretSource(ctx context.Context, project string) (*GCPSecretSource, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &GCPSecretSource{client: client, project: project}, nil
}

func (s *GCPSecretSource) Secret(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (s *GCPSecretSource) Close() error {
	return s.client.Close()
}

// loadSecrets fills API keys that the environment left empty. A secret that
// cannot be read is logged and skipped so local runs without access still work.
func loadSecrets(ctx context.Context, cfg *Config) error {
	targets := []struct {
		name string
		dest *string
	}{
		{"LLM_API_KEY", &cfg.LLMAPIKey},
		{"OPENAI_API_KEY", &cfg.OpenAIAPIKey},
		{"ELEVENLABS_API_KEY", &cfg.ElevenLabsAPIKey},
		{"SHOTSTACK_API_KEY", &cfg.ShotstackAPIKey},
	}

	needed := false
	for _, t := range targets {
		if *t.dest == "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	source, err := newSecretSource(ctx, cfg.GCPProject)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	defer func() { _ = source.Close() }()

	for _, t := range targets {
		if *t.dest != "" {
			continue
		}
		value, err := source.Secret(ctx, t.name)
		if err != nil {
			slog.Warn("Secret unavailable", "secret", t.name, "error", err)
			continue
		}
		*t.dest = value
		if t.name == "LLM_API_KEY" {
			cfg.llmKeySource = t.name
		}
	}
	return nil
}
