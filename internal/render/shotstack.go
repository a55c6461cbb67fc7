package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"orion/internal/fault"
	"orion/pkg/httputil"
)

const (
	defaultBaseURL = "https://api.shotstack.io"
	defaultEnv     = "stage"
	defaultTimeout = 30 * time.Second
	serviceName    = "shotstack"
)

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response struct {
		Message string `json:"message"`
		ID      string `json:"id"`
	} `json:"response"`
}

type statusResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response struct {
		ID         string  `json:"id"`
		Status     string  `json:"status"`
		URL        string  `json:"url"`
		Error      string  `json:"error"`
		RenderTime float64 `json:"renderTime"`
		Data       struct {
			RenderTime float64 `json:"renderTime"`
		} `json:"data"`
	} `json:"response"`
}

type errorResponse struct {
	Message  string `json:"message"`
	Response struct {
		Error string `json:"error"`
	} `json:"response"`
}

// Client submits and polls render jobs against the Shotstack edit API.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	pollClient *httputil.RetryClient
}

// Options configures the render client.
type Options struct {
	APIKey     string
	Env        string
	BaseURL    string
	HTTPClient *http.Client
	Retry      httputil.RetryConfig
}

// NewClient creates a render client. Submissions are sent once; status lookups
// are retried on 429 and 5xx responses.
func NewClient(opts Options) *Client {
	env := opts.Env
	if env == "" {
		env = defaultEnv
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		apiKey:     opts.APIKey,
		endpoint:   fmt.Sprintf("%s/%s/render", baseURL, env),
		httpClient: httpClient,
		pollClient: httputil.NewRetryClient(httpClient, opts.Retry),
	}
}

// Submit sends a fully resolved edit payload and returns the queued job.
func (c *Client) Submit(ctx context.Context, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &SubmissionError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, &SubmissionError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SubmissionError{Err: fault.Unreachable(serviceName, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SubmissionError{Err: fault.Unreachable(serviceName, fmt.Errorf("read response: %w", err))}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmissionError{Err: upstreamError(resp.StatusCode, body)}
	}

	var submitted submitResponse
	if err := json.Unmarshal(body, &submitted); err != nil {
		return nil, &SubmissionError{Err: &fault.DecodeError{Service: serviceName, Err: err}}
	}
	if submitted.Response.ID == "" {
		return nil, &SubmissionError{Err: &fault.DecodeError{Service: serviceName, Err: errors.New("missing render id")}}
	}

	return &Job{ID: submitted.Response.ID, Status: StatusQueued}, nil
}

// Poll fetches the current state of a render job.
func (c *Client) Poll(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, fault.Invalid("id", "render id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, &PollError{ID: id, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, &PollError{ID: id, Err: fault.Unreachable(serviceName, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PollError{ID: id, Err: fault.Unreachable(serviceName, fmt.Errorf("read response: %w", err))}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &PollError{ID: id, Err: upstreamError(resp.StatusCode, body)}
	}

	var status statusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &PollError{ID: id, Err: &fault.DecodeError{Service: serviceName, Err: err}}
	}

	progress := status.Response.RenderTime
	if progress == 0 {
		progress = status.Response.Data.RenderTime
	}

	stateID := status.Response.ID
	if stateID == "" {
		stateID = id
	}

	return &State{
		ID:       stateID,
		Status:   Status(status.Response.Status),
		URL:      status.Response.URL,
		Error:    status.Response.Error,
		Progress: progress,
	}, nil
}

func upstreamError(statusCode int, body []byte) error {
	var errResp errorResponse
	message := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		message = errResp.Message
		if errResp.Response.Error != "" {
			message = errResp.Response.Error
		}
	}
	return &fault.UpstreamError{Service: serviceName, StatusCode: statusCode, Message: message}
}
