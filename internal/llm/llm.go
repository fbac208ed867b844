// Package llm wraps Genkit model generation behind the resilience layer
// every curator agent shares: a token-bucket rate limiter applied to each
// attempt, exponential-backoff retries on transient provider errors, and
// a circuit breaker that sheds load while the provider stays down.
//
// The client is prompt-agnostic. Agents compose ai.GenerateOption values
// (system prompt, messages, documents, streaming callbacks) and the
// client contributes the model binding plus resilience.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/cdelab/curator/internal/log"
)

// Config contains all required parameters for the generation client.
type Config struct {
	Genkit *genkit.Genkit

	// ModelName is the fully qualified model to generate with,
	// e.g. "googleai/gemini-2.5-flash".
	ModelName string

	Logger log.Logger

	// Resilience configuration. Zero values use defaults.
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig

	// RateLimiter throttles outgoing requests. Nil uses the default of
	// 10 requests/sec sustained with a burst of 30.
	RateLimiter *rate.Limiter
}

// validate checks that all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client generates model responses for a fixed model with shared
// resilience. All configuration is captured immutably at construction,
// so a single Client is safe for concurrent use.
type Client struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger

	retry   RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter
}

// New creates a generation client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Client{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		logger:    cfg.Logger,
		retry:     retry,
		breaker:   NewCircuitBreaker(cfg.CircuitBreaker),
		limiter:   limiter,
	}, nil
}

// ModelName returns the fully qualified model the client generates with.
func (c *Client) ModelName() string {
	return c.modelName
}

// Generate runs one generation request against the configured model.
// The caller's options are appended after the model binding, so anything
// except the model itself can be customized per call.
func (c *Client) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.Warn("circuit breaker open, rejecting generation",
			"model", c.modelName,
			"state", c.breaker.State().String())
		return nil, fmt.Errorf("model unavailable: %w", err)
	}

	full := make([]ai.GenerateOption, 0, len(opts)+1)
	full = append(full, ai.WithModelName(c.modelName))
	full = append(full, opts...)

	resp, err := c.generateWithRetry(ctx, full)
	if err != nil {
		c.breaker.Failure()
		return nil, err
	}
	c.breaker.Success()
	return resp, nil
}

// GenerateText runs a single-shot prompt and returns the trimmed response
// text. The system prompt may be empty.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	opts := []ai.GenerateOption{ai.WithPrompt(prompt)}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	resp, err := c.Generate(ctx, opts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}
