package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"orion/internal/fault"
	"orion/internal/speech"
)

const (
	baseURL      = "https://api.elevenlabs.io/v1"
	timeout      = 120 * time.Second
	defaultModel = "eleven_multilingual_v2"
	providerName = "elevenlabs"
)

// DefaultVoices maps each narrator voice to a premade ElevenLabs voice.
// Config.Voices entries replace these; an empty ID disables a voice.
var DefaultVoices = map[speech.Voice]string{
	speech.VoiceAlloy:   "21m00Tcm4TlvDq8ikWAM", // Rachel
	speech.VoiceEcho:    "pNInz6obpgDQGcFmaJgB", // Adam
	speech.VoiceFable:   "onwK4e9ZLuTAKqWW03F9", // Daniel
	speech.VoiceOnyx:    "VR6AewLTigWG4xSOukaG", // Arnold
	speech.VoiceNova:    "EXAVITQu4vr4xnSDxMaL", // Bella
	speech.VoiceShimmer: "MF3mGyEYCl7XYWbV9V6O", // Elli
}

// Client synthesizes speech with ElevenLabs, mapping each narrator voice to a
// configured voice ID. Multiple API keys are rotated, and a key that hits its
// quota is skipped for the next one.
type Client struct {
	apiKeys    []string
	keyIndex   uint64
	httpClient *http.Client
	voices     map[speech.Voice]string
	model      string
	baseURL    string
	speed      float64
	stability  float64
	similarity float64
}

type Config struct {
	APIKeys    []string
	Model      string
	Voices     map[string]string
	Speed      float64
	Stability  float64
	Similarity float64
}

type option func(*Client)

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client *http.Client) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) *Client {
	return newClient(cfg)
}

func newClient(cfg Config, opts ...option) *Client {
	keys := cfg.APIKeys
	if len(keys) == 0 {
		keys = []string{""}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	voices := make(map[speech.Voice]string, len(DefaultVoices))
	for voice, id := range DefaultVoices {
		voices[voice] = id
	}
	for name, id := range cfg.Voices {
		voices[speech.Voice(strings.ToLower(name))] = id
	}

	c := &Client{
		apiKeys:    keys,
		httpClient: &http.Client{Timeout: timeout},
		voices:     voices,
		model:      model,
		baseURL:    baseURL,
		speed:      cfg.Speed,
		stability:  cfg.Stability,
		similarity: cfg.Similarity,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Synthesize(ctx context.Context, text string, voice speech.Voice) (*speech.Audio, error) {
	if err := speech.CheckInput(text, voice); err != nil {
		return nil, err
	}

	voiceID, ok := c.voices[voice]
	if !ok || voiceID == "" {
		return nil, fault.Invalid("voice", fmt.Sprintf("no ElevenLabs voice configured for %q", voice))
	}

	audio, err := c.synthesizeWithFailover(ctx, text, voiceID)
	if err != nil {
		return nil, &speech.SynthesisError{Provider: providerName, Err: err}
	}
	return audio, nil
}

func (c *Client) nextAPIKey() string {
	if len(c.apiKeys) == 1 {
		return c.apiKeys[0]
	}
	idx := atomic.AddUint64(&c.keyIndex, 1)
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

func (c *Client) keyAtOffset(offset int) string {
	idx := atomic.LoadUint64(&c.keyIndex)
	return c.apiKeys[(idx+uint64(offset))%uint64(len(c.apiKeys))]
}

func (c *Client) synthesizeWithFailover(ctx context.Context, text, voiceID string) (*speech.Audio, error) {
	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, voiceID)

	startKey := c.nextAPIKey()
	audio, err := c.doRequest(ctx, url, text, startKey)
	if err == nil || !isQuotaError(err) {
		return audio, err
	}

	for i := 1; i < len(c.apiKeys); i++ {
		key := c.keyAtOffset(i)
		if key == startKey {
			continue
		}
		audio, err = c.doRequest(ctx, url, text, key)
		if err == nil || !isQuotaError(err) {
			return audio, err
		}
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", err)
}

func (c *Client) doRequest(ctx context.Context, url, text, apiKey string) (*speech.Audio, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": c.model,
		"voice_settings": map[string]any{
			"stability":        c.stability,
			"similarity_boost": c.similarity,
			"speed":            c.speed,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Unreachable(providerName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Unreachable(providerName, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &fault.UpstreamError{Service: providerName, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if len(body) == 0 {
		return nil, &fault.DecodeError{Service: providerName, Err: errors.New("empty audio response")}
	}

	return &speech.Audio{Data: body, ContentType: "audio/mpeg"}, nil
}

func isQuotaError(err error) bool {
	var upErr *fault.UpstreamError
	if !errors.As(err, &upErr) {
		return false
	}
	return upErr.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(upErr.Message, "quota_exceeded") ||
		strings.Contains(upErr.Message, "rate_limit")
}
