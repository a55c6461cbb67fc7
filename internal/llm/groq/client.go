package groq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conneroisu/groq-go"

	"orion/internal/fault"
	"orion/internal/llm"
	"orion/pkg/prompts"
)

const serviceName = "llm"

var _ llm.Generator = (*Client)(nil)

// Client writes post copy through a Groq-compatible chat completion API. A
// base URL override points it at any OpenAI-compatible host.
type Client struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
	logger  *slog.Logger
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Prompts *prompts.Prompts
	Logger  *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	var (
		client *groq.Client
		err    error
	)
	if cfg.BaseURL != "" {
		client, err = groq.NewClient(cfg.APIKey, groq.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	} else {
		client, err = groq.NewClient(cfg.APIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	p := cfg.Prompts
	if p == nil {
		p = prompts.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client:  client,
		model:   groq.ChatModel(cfg.Model),
		prompts: p,
		logger:  logger,
	}, nil
}

// GenerateContent asks the model for headline, caption, hashtags and script.
// Transport and status failures are returned as upstream errors; an answer
// that cannot be decoded degrades to fallback copy.
func (c *Client) GenerateContent(ctx context.Context, brief llm.Brief) (*llm.Content, error) {
	if err := brief.Validate(); err != nil {
		return nil, err
	}
	brief = brief.WithDefaults()

	prompt, err := c.prompts.RenderCompose(prompts.ComposeParams{
		BrandName:   brief.BrandName,
		Website:     brief.Website,
		Description: brief.Description,
		Industry:    brief.Industry,
		Goal:        brief.Goal,
		Tone:        brief.Tone,
		Audience:    brief.Audience,
		Platform:    brief.Platform,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := c.generateJSONContent(ctx, c.prompts.System.Compose, prompt)
	if err != nil {
		return nil, err
	}

	content, ok := llm.ParseContent(raw)
	if !ok {
		c.logger.Warn("LLM response normalized with fallback content", "brand", brief.BrandName, "raw", raw)
	}

	return &content, nil
}

func (c *Client) generateJSONContent(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fault.Unreachable(serviceName, fmt.Errorf("generate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
