// Package ai wraps the OpenAI-compatible chat completion endpoint used for
// market commentary. The provider is interchangeable through the base URL;
// DeepSeek is the default.
package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = time.Minute

	requestInterval  = 2 * time.Second
	rateLimiterBurst = 1

	temperature = 0.3
	maxWords    = 80

	systemPrompt = "You are a concise crypto market analyst. Reply in at most 80 words, plain text, " +
		"with a sentiment read and a 24h directional bias."
)

// Client produces short market commentary from a snapshot summary prompt.
type Client interface {
	Commentary(ctx context.Context, prompt string) (string, error)
}

// Options configures the commentary provider.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New returns the real client, or the deterministic mock when the key is
// empty or the literal "mock".
func New(opts Options, logger *zerolog.Logger) Client {
	if opts.APIKey == "" || opts.APIKey == "mock" {
		return NewMock()
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &client{
		api:         openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Every(requestInterval), rateLimiterBurst),
	}
}

type client struct {
	api         *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

func (c *client) Commentary(ctx context.Context, prompt string) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})

	observability.CommentaryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.recordFailure()
		observability.CommentaryRequests.WithLabelValues("error").Inc()

		return "", fmt.Errorf("chat completion: %w", err)
	}

	c.recordSuccess()
	observability.CommentaryRequests.WithLabelValues("ok").Inc()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: %w", coreerrors.ErrUpstreamUnavailable)
	}

	return TruncateWords(strings.TrimSpace(resp.Choices[0].Message.Content), maxWords), nil
}

func (c *client) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", coreerrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *client) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

// TruncateWords cuts text after n words, appending an ellipsis when trimmed.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}

	return strings.Join(words[:n], " ") + "…"
}
