package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no other is given.
const DefaultPath = "config.yaml"

const (
	defaultGroqModel        = "llama-3.3-70b-versatile"
	defaultOpenAIChatModel  = "gpt-4"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultTTSProvider      = "openai"
	defaultTTSModel         = "tts-1"
	defaultTTSSpeed         = 1.0
	defaultElevenLabsModel  = "eleven_multilingual_v2"
	defaultStability        = 0.5
	defaultSimilarity       = 0.75
	defaultShotstackEnv     = "stage"
	defaultShotstackBaseURL = "https://api.shotstack.io"
	defaultStorageProvider  = "datauri"
	defaultOutputDir        = "./output"
	defaultGCSPrefix        = "voiceovers"
	defaultServerAddr       = ":3000"
	defaultPollInterval     = 4 * time.Second
	defaultSettleDelay      = time.Second
	defaultPollTimeout      = 10 * time.Minute
	defaultNotificationsDir = "./data"
	defaultNotificationsMax = 200
)

type Config struct {
	LLMAPIKey        string
	OpenAIAPIKey     string
	ElevenLabsAPIKey string
	ShotstackAPIKey  string
	GCPProject       string
	GCSBucket        string

	LLM           LLMConfig           `yaml:"llm"`
	TTS           TTSConfig           `yaml:"tts"`
	ElevenLabs    ElevenLabsConfig    `yaml:"elevenlabs"`
	Shotstack     ShotstackConfig     `yaml:"shotstack"`
	Templates     TemplatesConfig     `yaml:"templates"`
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Wizard        WizardConfig        `yaml:"wizard"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Backend       BackendConfig       `yaml:"backend"`

	llmKeySource string
}

type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type TTSConfig struct {
	Provider string  `yaml:"provider"` // "openai" or "elevenlabs"
	Model    string  `yaml:"model"`
	Speed    float64 `yaml:"speed"`
	BaseURL  string  `yaml:"base_url"`
}

type ElevenLabsConfig struct {
	Model      string            `yaml:"model"`
	Voices     map[string]string `yaml:"voices"`
	Stability  float64           `yaml:"stability"`
	Similarity float64           `yaml:"similarity"`
}

type ShotstackConfig struct {
	Env     string `yaml:"env"`
	BaseURL string `yaml:"base_url"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type StorageConfig struct {
	Provider        string `yaml:"provider"` // "datauri" or "gcs"
	OutputDir       string `yaml:"output_dir"`
	GCSPrefix       string `yaml:"gcs_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	PublicURL string `yaml:"public_url"`
}

type WizardConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// SettleDelay below zero skips the pause after a finished render.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// PollTimeout bounds one poll cycle. Zero disables the bound.
	PollTimeout *time.Duration `yaml:"poll_timeout"`
}

type NotificationsConfig struct {
	Dir string `yaml:"dir"`
	Max int    `yaml:"max"`
}

type BackendConfig struct {
	URL string `yaml:"url"`
}

// Timeout returns the configured poll ceiling.
func (w WizardConfig) Timeout() time.Duration {
	if w.PollTimeout == nil {
		return defaultPollTimeout
	}
	return *w.PollTimeout
}

// CallbackURL is where the rendering provider should post completion notices,
// or empty when the server has no public address.
func (s ServerConfig) CallbackURL() string {
	if s.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(s.PublicURL, "/") + "/api/shotstackWebhook"
}

func LoadFrom(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		ShotstackAPIKey:  os.Getenv("SHOTSTACK_API_KEY"),
		GCPProject:       os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GCSBucket:        os.Getenv("GCS_BUCKET"),
	}
	cfg.LLMAPIKey, cfg.llmKeySource = firstEnv("LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")

	if err := loadYAMLConfig(cfg, path); err != nil {
		return nil, err
	}
	if env := os.Getenv("SHOTSTACK_ENV"); env != "" {
		cfg.Shotstack.Env = env
	}

	if cfg.GCPProject != "" {
		if err := loadSecrets(ctx, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// RequireBackend reports which credentials an in-process backend is missing.
func (c *Config) RequireBackend() error {
	var missing []string
	if c.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.ShotstackAPIKey == "" {
		missing = append(missing, "SHOTSTACK_API_KEY")
	}
	switch c.TTS.Provider {
	case "elevenlabs":
		if c.ElevenLabsAPIKey == "" {
			missing = append(missing, "ELEVENLABS_API_KEY")
		}
	default:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}
	if c.Storage.Provider == "gcs" && c.GCSBucket == "" {
		missing = append(missing, "GCS_BUCKET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applyTTSDefaults(cfg)
	applyElevenLabsDefaults(cfg)
	applyShotstackDefaults(cfg)
	applyStorageDefaults(cfg)
	applyServerDefaults(cfg)
	applyWizardDefaults(cfg)
	applyNotificationsDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	openAIKey := cfg.llmKeySource == "OPENAI_API_KEY"
	if cfg.LLM.BaseURL == "" && openAIKey {
		cfg.LLM.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.BaseURL == defaultOpenAIBaseURL {
			cfg.LLM.Model = defaultOpenAIChatModel
		} else {
			cfg.LLM.Model = defaultGroqModel
		}
	}
}

func applyTTSDefaults(cfg *Config) {
	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = defaultTTSProvider
	}
	if cfg.TTS.Model == "" {
		cfg.TTS.Model = defaultTTSModel
	}
	if cfg.TTS.Speed == 0 {
		cfg.TTS.Speed = defaultTTSSpeed
	}
}

func applyElevenLabsDefaults(cfg *Config) {
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.Stability == 0 {
		cfg.ElevenLabs.Stability = defaultStability
	}
	if cfg.ElevenLabs.Similarity == 0 {
		cfg.ElevenLabs.Similarity = defaultSimilarity
	}
}

func applyShotstackDefaults(cfg *Config) {
	if cfg.Shotstack.Env == "" {
		cfg.Shotstack.Env = defaultShotstackEnv
	}
	if cfg.Shotstack.BaseURL == "" {
		cfg.Shotstack.BaseURL = defaultShotstackBaseURL
	}
}

func applyStorageDefaults(cfg *Config) {
	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = defaultStorageProvider
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = defaultOutputDir
	}
	if cfg.Storage.GCSPrefix == "" {
		cfg.Storage.GCSPrefix = defaultGCSPrefix
	}
}

func applyServerDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
}

func applyWizardDefaults(cfg *Config) {
	if cfg.Wizard.PollInterval <= 0 {
		cfg.Wizard.PollInterval = defaultPollInterval
	}
	if cfg.Wizard.SettleDelay == 0 {
		cfg.Wizard.SettleDelay = defaultSettleDelay
	}
	if cfg.Wizard.PollTimeout == nil {
		timeout := defaultPollTimeout
		cfg.Wizard.PollTimeout = &timeout
	}
}

func applyNotificationsDefaults(cfg *Config) {
	if cfg.Notifications.Dir == "" {
		cfg.Notifications.Dir = defaultNotificationsDir
	}
	if cfg.Notifications.Max == 0 {
		cfg.Notifications.Max = defaultNotificationsMax
	}
}

func firstEnv(keys ...string) (value, key string) {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v, k
		}
	}
	return "", ""
}
