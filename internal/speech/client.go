package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"breslov-ai/internal/llm"
	"breslov-ai/internal/metrics"
)

const defaultContentType = "audio/mpeg"

// Client calls an OpenAI-compatible /v1/audio/speech endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	client  *http.Client
	limiter *llm.RateLimiter
	metrics *metrics.Metrics
}

// NewClient creates a speech client. limiter and m may be nil.
func NewClient(baseURL, apiKey, model string, limiter *llm.RateLimiter, m *metrics.Metrics) *Client {
	if limiter == nil {
		limiter = llm.NewRateLimiter(0, 1)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
		limiter: limiter,
		metrics: m,
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize returns MP3 audio for text spoken with voice.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	audio, contentType, err := c.synthesize(ctx, text, voice)
	c.metrics.RecordExternalCall("tts", err)
	return audio, contentType, err
}

func (c *Client) synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.Model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "mp3",
		Speed:          0.9,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/audio/speech", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", &llm.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, "", errors.New("no audio content received")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = defaultContentType
	}
	return audio, contentType, nil
}
