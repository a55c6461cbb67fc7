// Package remote drives a studio backend served by another orion process.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orion/internal/fault"
	"orion/internal/llm"
	"orion/internal/notify"
	"orion/internal/render"
	"orion/internal/studio"
	"orion/pkg/httputil"
)

const (
	serviceName    = "backend"
	defaultTimeout = 2 * time.Minute
)

var _ studio.Backend = (*Client)(nil)

type Client struct {
	baseURL    string
	httpClient *http.Client
	// statusClient retries transient failures; submissions are never retried.
	statusClient *httputil.RetryClient
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.statusClient = httputil.NewRetryClient(c.httpClient, httputil.DefaultRetryConfig())
	return c
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) Compose(ctx context.Context, req studio.ComposeRequest) (*llm.Content, error) {
	var content llm.Content
	if err := c.post(ctx, "/api/compose", req, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

func (c *Client) Speak(ctx context.Context, req studio.SpeechRequest) (*studio.Speech, error) {
	var out studio.Speech
	if err := c.post(ctx, "/api/tts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenderImage(ctx context.Context, req studio.RenderRequest) (*studio.RenderJob, error) {
	return c.submit(ctx, "/api/renderTemplate", req)
}

func (c *Client) RenderVideo(ctx context.Context, req studio.RenderRequest) (*studio.RenderJob, error) {
	return c.submit(ctx, "/api/renderVideo", req)
}

func (c *Client) submit(ctx context.Context, path string, req studio.RenderRequest) (*studio.RenderJob, error) {
	var job studio.RenderJob
	if err := c.post(ctx, path, req, &job); err != nil {
		if fault.IsValidation(err) {
			return nil, err
		}
		return nil, &render.SubmissionError{Err: err}
	}
	return &job, nil
}

func (c *Client) RenderStatus(ctx context.Context, id string) (*studio.RenderStatus, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fault.Invalid("id", "Render ID is required")
	}

	endpoint := c.baseURL + "/api/status?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &render.PollError{ID: id, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	var status studio.RenderStatus
	if err := c.do(c.statusClient, req, &status); err != nil {
		if fault.IsValidation(err) {
			return nil, err
		}
		return nil, &render.PollError{ID: id, Err: err}
	}
	return &status, nil
}

func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
	return c.post(ctx, "/api/shotstackWebhook", n, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(c.httpClient, req, out)
}

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func (c *Client) do(client doer, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fault.Unreachable(serviceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.Unreachable(serviceName, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode == http.StatusBadRequest {
		var e errorBody
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = "bad request"
		}
		return &fault.ValidationError{Message: e.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorBody
		_ = json.Unmarshal(body, &e)
		message := e.Error
		if e.Message != "" {
			message = e.Error + ": " + e.Message
		}
		return &fault.UpstreamError{Service: serviceName, StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &fault.DecodeError{Service: serviceName, Err: err}
	}
	return nil
}
