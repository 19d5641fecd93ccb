package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openrouter "github.com/revrost/go-openrouter"
	"golang.org/x/time/rate"
)

// Request is a single prompt sent to the model.
// System is optional (can be empty string).
type Request struct {
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
}

// Completer turns a prompt into model text. Client, the response cache and
// the workflow's journaling wrapper all implement it.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config configures Client.
type Config struct {
	APIKey            string
	Model             string
	RequestsPerMinute int // 0 disables rate limiting
	MaxAttempts       int // attempts per request for retryable errors
}

// Client wraps OpenRouter client for LLM interactions
type Client struct {
	client      *openrouter.Client
	model       string
	limiter     *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new LLM client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}

	model := cfg.Model
	if model == "" {
		model = "openai/gpt-4" // Default model
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = MaxRetries
	}

	c := &Client{
		client:      openrouter.NewClient(cfg.APIKey),
		model:       model,
		maxAttempts: attempts,
		backoff:     Backoff,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Model returns the model name requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the request, retrying transient failures with backoff.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		text, err := c.call(ctx, req)
		if err == nil {
			return text, nil
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) call(ctx context.Context, req Request) (string, error) {
	messages := []openrouter.ChatCompletionMessage{}

	// Add system message if provided
	if req.System != "" {
		messages = append(messages, openrouter.ChatCompletionMessage{
			Role:    openrouter.ChatMessageRoleSystem,
			Content: openrouter.Content{Text: req.System},
		})
	}
	messages = append(messages, openrouter.UserMessage(req.Prompt))

	resp, err := c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &RetryableError{Message: fmt.Sprintf("OpenRouter API error: %v", err)}
	}

	// Extract response text
	if len(resp.Choices) == 0 {
		return "", &RetryableError{Message: "no response choices returned from LLM"}
	}
	return resp.Choices[0].Message.Content.Text, nil
}
