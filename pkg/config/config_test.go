package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	orig, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(orig) })
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY",
		"SHOTSTACK_API_KEY", "SHOTSTACK_ENV", "GOOGLE_CLOUD_PROJECT", "GCS_BUCKET",
	} {
		t.Setenv(key, "")
	}
	return tmp
}

func TestLoadFromYAML(t *testing.T) {
	tmp := chdirTemp(t)

	yaml := `
llm:
  model: test-model
tts:
  provider: elevenlabs
elevenlabs:
  voices:
    alloy: "voice-alloy"
    nova: "voice-nova"
shotstack:
  env: v1
wizard:
  poll_interval: 2s
  poll_timeout: 0s
server:
  public_url: "https://orion.example.com/"
`
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte(yaml), 0644)

	cfg, err := LoadFrom(context.Background(), DefaultPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.LLM.Model != "test-model" {
		t.Errorf("LLM.Model = %q, want test-model", cfg.LLM.Model)
	}
	if cfg.TTS.Provider != "elevenlabs" {
		t.Errorf("TTS.Provider = %q, want elevenlabs", cfg.TTS.Provider)
	}
	if cfg.ElevenLabs.Voices["nova"] != "voice-nova" {
		t.Errorf("ElevenLabs.Voices[nova] = %q, want voice-nova", cfg.ElevenLabs.Voices["nova"])
	}
	if cfg.Shotstack.Env != "v1" {
		t.Errorf("Shotstack.Env = %q, want v1", cfg.Shotstack.Env)
	}
	if cfg.Wizard.PollInterval != 2*time.Second {
		t.Errorf("Wizard.PollInterval = %v, want 2s", cfg.Wizard.PollInterval)
	}
	if cfg.Wizard.Timeout() != 0 {
		t.Errorf("Wizard.Timeout() = %v, want 0 (disabled)", cfg.Wizard.Timeout())
	}
	if got := cfg.Server.CallbackURL(); got != "https://orion.example.com/api/shotstackWebhook" {
		t.Errorf("Server.CallbackURL() = %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadFrom(context.Background(), DefaultPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.LLM.Model != defaultGroqModel {
		t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, defaultGroqModel)
	}
	if cfg.TTS.Provider != "openai" || cfg.TTS.Model != "tts-1" || cfg.TTS.Speed != 1.0 {
		t.Errorf("TTS = %+v, want openai/tts-1/1.0", cfg.TTS)
	}
	if cfg.Shotstack.Env != "stage" {
		t.Errorf("Shotstack.Env = %q, want stage", cfg.Shotstack.Env)
	}
	if cfg.Wizard.PollInterval != 4*time.Second {
		t.Errorf("Wizard.PollInterval = %v, want 4s", cfg.Wizard.PollInterval)
	}
	if cfg.Wizard.SettleDelay != time.Second {
		t.Errorf("Wizard.SettleDelay = %v, want 1s", cfg.Wizard.SettleDelay)
	}
	if cfg.Wizard.Timeout() != 10*time.Minute {
		t.Errorf("Wizard.Timeout() = %v, want 10m", cfg.Wizard.Timeout())
	}
	if cfg.Storage.Provider != "datauri" {
		t.Errorf("Storage.Provider = %q, want datauri", cfg.Storage.Provider)
	}
	if cfg.Server.CallbackURL() != "" {
		t.Errorf("Server.CallbackURL() = %q, want empty", cfg.Server.CallbackURL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantKey     string
		wantBaseURL string
		wantModel   string
	}{
		{
			name:      "explicitLLMKey",
			env:       map[string]string{"LLM_API_KEY": "llm", "GROQ_API_KEY": "groq"},
			wantKey:   "llm",
			wantModel: defaultGroqModel,
		},
		{
			name:      "groqKey",
			env:       map[string]string{"GROQ_API_KEY": "groq"},
			wantKey:   "groq",
			wantModel: defaultGroqModel,
		},
		{
			name:        "openAIKeyOnly",
			env:         map[string]string{"OPENAI_API_KEY": "sk-test"},
			wantKey:     "sk-test",
			wantBaseURL: defaultOpenAIBaseURL,
			wantModel:   defaultOpenAIChatModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadFrom(context.Background(), DefaultPath)
			if err != nil {
				t.Fatalf("LoadFrom() error: %v", err)
			}
			if cfg.LLMAPIKey != tt.wantKey {
				t.Errorf("LLMAPIKey = %q, want %q", cfg.LLMAPIKey, tt.wantKey)
			}
			if cfg.LLM.BaseURL != tt.wantBaseURL {
				t.Errorf("LLM.BaseURL = %q, want %q", cfg.LLM.BaseURL, tt.wantBaseURL)
			}
			if cfg.LLM.Model != tt.wantModel {
				t.Errorf("LLM.Model = %q, want %q", cfg.LLM.Model, tt.wantModel)
			}
		})
	}
}

func TestLoadShotstackEnvOverride(t *testing.T) {
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("shotstack:\n  env: stage"), 0644)
	t.Setenv("SHOTSTACK_ENV", "v1")

	cfg, err := LoadFrom(context.Background(), DefaultPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Shotstack.Env != "v1" {
		t.Errorf("Shotstack.Env = %q, want v1", cfg.Shotstack.Env)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := chdirTemp(t)
	_ = os.WriteFile(filepath.Join(tmp, "config.yaml"), []byte("wizard: [broken"), 0644)

	if _, err := LoadFrom(context.Background(), DefaultPath); err == nil {
		t.Error("LoadFrom() should fail on invalid config.yaml")
	}
}

type fakeSecrets struct {
	values map[string]string
	asked  []string
	closed bool
}

func (f *fakeSecrets) Secret(_ context.Context, name string) (string, error) {
	f.asked = append(f.asked, name)
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (f *fakeSecrets) Close() error {
	f.closed = true
	return nil
}

func TestLoadSecretsFillsMissingKeys(t *testing.T) {
	chdirTemp(t)
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("OPENAI_API_KEY", "from-env")

	fake := &fakeSecrets{values: map[string]string{
		"LLM_API_KEY":       "secret-llm",
		"SHOTSTACK_API_KEY": "secret-shotstack",
	}}
	orig := newSecretSource
	newSecretSource = func(_ context.Context, project string) (SecretSource, error) {
		if project != "test-project" {
			t.Errorf("project = %q, want test-project", project)
		}
		return fake, nil
	}
	t.Cleanup(func() { newSecretSource = orig })

	cfg, err := LoadFrom(context.Background(), DefaultPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if cfg.ShotstackAPIKey != "secret-shotstack" {
		t.Errorf("ShotstackAPIKey = %q, want secret-shotstack", cfg.ShotstackAPIKey)
	}
	if cfg.OpenAIAPIKey != "from-env" {
		t.Errorf("OpenAIAPIKey = %q, want from-env", cfg.OpenAIAPIKey)
	}
	if cfg.ElevenLabsAPIKey != "" {
		t.Errorf("ElevenLabsAPIKey = %q, want empty", cfg.ElevenLabsAPIKey)
	}
	for _, name := range fake.asked {
		if name == "OPENAI_API_KEY" {
			t.Error("asked Secret Manager for a key already set in the environment")
		}
	}
	if !fake.closed {
		t.Error("secret source not closed")
	}
}

func TestRequireBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "openAIComplete",
			cfg:  Config{LLMAPIKey: "l", ShotstackAPIKey: "s", OpenAIAPIKey: "o", TTS: TTSConfig{Provider: "openai"}},
		},
		{
			name:    "elevenLabsMissingKey",
			cfg:     Config{LLMAPIKey: "l", ShotstackAPIKey: "s", OpenAIAPIKey: "o", TTS: TTSConfig{Provider: "elevenlabs"}},
			wantErr: true,
		},
		{
			name:    "missingShotstack",
			cfg:     Config{LLMAPIKey: "l", OpenAIAPIKey: "o"},
			wantErr: true,
		},
		{
			name:    "gcsWithoutBucket",
			cfg:     Config{LLMAPIKey: "l", ShotstackAPIKey: "s", OpenAIAPIKey: "o", Storage: StorageConfig{Provider: "gcs"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireBackend()
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
