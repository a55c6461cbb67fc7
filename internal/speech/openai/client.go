package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"orion/internal/fault"
	"orion/internal/speech"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "tts-1"
	timeout        = 120 * time.Second
	providerName   = "openai"
)

// Client synthesizes speech with the OpenAI audio endpoint.
type Client struct {
	apiKey     string
	model      string
	speed      float64
	baseURL    string
	httpClient *http.Client
}

type Config struct {
	APIKey  string
	Model   string
	Speed   float64
	BaseURL string
}

type option func(*Client)

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
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
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = 1.0
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		speed:      speed,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
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

	data, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          string(voice),
		Speed:          c.speed,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &speech.SynthesisError{Provider: providerName, Err: fault.Unreachable(providerName, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &speech.SynthesisError{Provider: providerName, Err: fault.Unreachable(providerName, fmt.Errorf("read response: %w", err))}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		return nil, &speech.SynthesisError{
			Provider: providerName,
			Err:      &fault.UpstreamError{Service: providerName, StatusCode: resp.StatusCode, Message: errResp.Error.Message},
		}
	}

	if len(body) == 0 {
		return nil, &speech.SynthesisError{
			Provider: providerName,
			Err:      &fault.DecodeError{Service: providerName, Err: fmt.Errorf("empty audio response")},
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "audio/") {
		contentType = "audio/mpeg"
	}

	return &speech.Audio{Data: body, ContentType: contentType}, nil
}
