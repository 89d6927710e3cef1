// Package llm wraps the language-model endpoint behind a small completer
// interface and an orchestrator that adds bounded retries, escalating
// timeouts and recursive batch splitting.
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Usage is the token accounting of one or more completions.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Completion is one model response.
type Completion struct {
	Text  string
	Usage Usage
}

// Completer issues a single structured request to the model endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// ClientConfig configures the OpenAI-compatible completer.
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	RateLimitRPS    float64
}

const rateLimiterBurst = 5

type openaiCompleter struct {
	cfg         ClientConfig
	client      *openai.Client
	rateLimiter *rate.Limiter
	logger      *zerolog.Logger
}

// NewClient creates a rate-limited completer against an OpenAI-compatible
// endpoint. BaseURL may point at any compatible gateway.
func NewClient(cfg ClientConfig, logger *zerolog.Logger) Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}

	return &openaiCompleter{
		cfg:         cfg,
		client:      openai.NewClientWithConfig(clientCfg),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		logger:      logger,
	}
}

func (c *openaiCompleter) Complete(ctx context.Context, prompt string) (Completion, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion: empty choices")
	}

	return Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
