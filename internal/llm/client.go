// Package llm is a client for OpenAI-compatible chat completion APIs (Groq
// by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ettore-crm/internal/circuitbreaker"
	"github.com/ettore-crm/internal/config"
)

// maxErrorMessage bounds provider error text kept in APIError, in bytes
const maxErrorMessage = 300

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("llm: GROQ_API_KEY is not configured")

// ErrEmptyCompletion is returned when the provider answers without text
var ErrEmptyCompletion = errors.New("llm: empty completion")

// APIError is a non-2xx answer from the provider
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm: provider returned %d: %s", e.StatusCode, e.Message)
}

// CompletionRequest is a single-prompt completion
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client calls the chat completions endpoint
type Client struct {
	api        *openai.Client
	configured bool
	model      string
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a client from configuration
func NewClient(cfg config.LLMConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:        openai.NewClientWithConfig(oc),
		configured: cfg.APIKey != "",
		model:      cfg.Model,
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("llm")),
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Complete sends one user message and returns the first choice's text
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	var text string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.do(ctx, req)
		return err
	})
	return text, err
}

func (c *Client) do(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", providerError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// providerError turns go-openai errors carrying an HTTP status into APIError
func providerError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: truncate(apiErr.Message, maxErrorMessage)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := strings.TrimSpace(string(reqErr.Body))
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: truncate(msg, maxErrorMessage)}
	}

	return fmt.Errorf("request failed: %w", err)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
