package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/metrics"
)

const (
	defaultMaxRetries = 2
	baseRetryDelay    = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	client     *http.Client
	limiter    *RateLimiter
	maxRetries int
	retryDelay time.Duration
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRateLimiter throttles outbound requests.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMaxRetries sets how many times a retryable failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the initial backoff between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMetrics records every completed call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new LLM client.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		client:     http.DefaultClient,
		limiter:    NewRateLimiter(0, 1),
		maxRetries: defaultMaxRetries,
		retryDelay: baseRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// Chat sends a single user message with default parameters.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.ChatWithMessages(ctx, []Message{{Role: "user", Content: message}}, ChatParams{})
}

// Generate sends prompt as the system instruction followed by the user input.
// An empty input sends the prompt alone as the user message.
func (c *Client) Generate(ctx context.Context, prompt, input string, params ChatParams) (string, error) {
	messages := []Message{{Role: "user", Content: prompt}}
	if input != "" {
		messages = []Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: input},
		}
	}
	return c.ChatWithMessages(ctx, messages, params)
}

// ChatWithMessages sends a chat completion request, retrying rate-limited,
// server-side and transport failures with exponential backoff.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	model := params.Model
	if model == "" {
		model = c.Model
	}

	payload := ChatRequest{
		Model:       model,
		Messages:    make([]ChatMessage, len(messages)),
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	}
	for i, m := range messages {
		payload.Messages[i] = ChatMessage(m)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logger := contextutil.LoggerFromContext(ctx)
	delay := c.retryDelay

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logger.WarnContext(ctx, "retrying chat completion", "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
			delay = min(delay*2, maxRetryDelay)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		reply, err := c.do(ctx, body)
		if err == nil {
			c.metrics.RecordExternalCall("llm", nil)
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !retryable(err) {
			break
		}
	}

	c.metrics.RecordExternalCall("llm", lastErr)
	return "", lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			c.limiter.Backoff(retryAfter(resp.Header.Get("Retry-After")))
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	content := chatResp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// retryable reports whether err is worth another attempt: transport failures
// and 429/5xx answers are, malformed or rejected requests are not.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}

type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("failed to send request: %v", e.err)
}

func (e *transportError) Unwrap() error {
	return e.err
}

// retryAfter parses a Retry-After header given in seconds. Without one the
// regular exponential delay applies.
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
