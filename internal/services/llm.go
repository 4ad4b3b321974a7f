package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/go-resty/resty/v2"
)

const defaultLLMEndpoint = "https://api.openai.com/v1"

// LLMClient implements [Completer] for OpenAI-compatible chat completion APIs.
type LLMClient struct {
	client *resty.Client
	model  string
	logger *log.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMClient builds a chat client from configuration.
func NewLLMClient(cfg shared.LLMConfig, logger *log.Logger) *LLMClient {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultLLMEndpoint
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(cfg.Timeout()).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &LLMClient{
		client: client,
		model:  cfg.Model,
		logger: shared.WithLogger(logger, "component", "llm"),
	}
}

// Complete sends one system/user exchange and returns the first choice's content.
func (c *LLMClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c.model == "" {
		return "", fmt.Errorf("%w: llm model is not set", shared.ErrMissingConfig)
	}

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature:    0.7,
			ResponseFormat: map[string]any{"type": "json_object"},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", shared.ErrAPIRequest, err)
	}

	if resp.IsError() {
		msg := resp.Status()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		c.logger.Warn("chat completion rejected", "status", resp.StatusCode(), "message", msg)
		return "", fmt.Errorf("%w: chat completion: %s", shared.ErrAPIRequest, msg)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", shared.ErrLLMResponse)
	}

	c.logger.Debug("chat completion received", "bytes", len(result.Choices[0].Message.Content))
	return result.Choices[0].Message.Content, nil
}
