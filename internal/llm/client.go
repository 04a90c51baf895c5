// Package llm adapts an OpenAI-compatible chat completion endpoint to the
// pipeline's Generator and Judge contracts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/resilience"
)

type Option func(*Client)

// WithBreakerListener observes circuit breaker transitions.
func WithBreakerListener(fn func(name string, from, to resilience.State)) Option {
	return func(c *Client) { c.onStateChange = fn }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client issues chat completions through a resilience.Guard.
type Client struct {
	api           *openai.Client
	cfg           config.LLMConfig
	guard         *resilience.Guard
	httpClient    *http.Client
	onStateChange func(name string, from, to resilience.State)
	logger        *slog.Logger
}

func NewClient(cfg config.LLMConfig, pipe config.PipelineConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		logger: slog.Default().With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if c.httpClient != nil {
		clientConfig.HTTPClient = c.httpClient
	}
	c.api = openai.NewClientWithConfig(clientConfig)
	c.guard = resilience.NewGuard("llm", resilience.GuardConfig{
		Timeout: pipe.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts: pipe.MaxAttempts,
			Retryable:   isRetryable,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: pipe.BreakerThreshold,
			ResetTimeout:     pipe.BreakerReset,
			OnStateChange:    c.onStateChange,
			IsFailure:        isRetryable,
		},
	})
	return c
}

type completion struct {
	model     string
	system    string
	user      string
	n         int
	maxTokens int
}

// complete returns the trimmed content of every choice.
func (c *Client) complete(ctx context.Context, in completion) ([]string, error) {
	req := openai.ChatCompletionRequest{
		Model: in.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.system},
			{Role: openai.ChatMessageRoleUser, Content: in.user},
		},
		MaxTokens:   in.maxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	}
	if in.n > 1 {
		req.N = in.n
	}

	var out []string
	err := c.guard.Do(ctx, func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("model %s returned no choices", in.model)
		}
		out = make([]string, len(resp.Choices))
		for i, choice := range resp.Choices {
			out[i] = strings.TrimSpace(choice.Message.Content)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %w", apperrors.ErrCollaborator, err)
	}
	c.logger.Debug("completion received", "model", in.model, "choices", len(out))
	return out, nil
}

// isRetryable retries rate limits, server errors and transport failures.
// Other API errors such as bad requests or auth failures are final.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || retryableStatus(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// State reports the circuit breaker state guarding the endpoint.
func (c *Client) State() resilience.State { return c.guard.State() }
