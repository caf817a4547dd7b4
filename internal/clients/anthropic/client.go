// Package anthropic provides a client for an Anthropic-compatible messages
// API. The pipeline uses it for search query refinement, per-signal semantic
// analysis, batch signal validation, and theme impact summaries.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Model identifiers used by the pipeline. Sonnet leads the summary cascade,
// Haiku handles high-volume per-signal analysis, Opus handles batch
// validation where the cross-referencing reasoning matters most.
const (
	ModelSonnet = "claude-sonnet-4-5-20250929"
	ModelOpus   = "claude-opus-4-20250514"
	ModelHaiku  = "claude-3-haiku-20240307"
)

// SummaryCascade is the model order for generated summaries. Models the
// configured endpoint does not serve are skipped.
var SummaryCascade = []string{ModelSonnet, ModelHaiku}

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("anthropic api key not configured")

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the messages API request body.
type Request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

// UserMessage builds a single-turn request body for the given model.
func UserMessage(model string, maxTokens int, temperature float64, content string) Request {
	return Request{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []Message{{Role: "user", Content: content}},
	}
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx response from the messages endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error: status %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsModelNotFound reports whether err means the requested model does not
// exist on the endpoint, which the summary cascade treats as "try the next
// model" rather than a failure.
func IsModelNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Type == "not_found_error"
	}
	return false
}

// Client is the messages API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a new messages API client. baseURL may be empty to use
// the public endpoint. Per-call deadlines come from the caller's context;
// the HTTP client timeout is only a backstop.
func NewClient(apiKey, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "anthropic",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 10), // 5 calls/sec
		breaker:    breaker,
		log:        log.With().Str("client", "anthropic").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Complete sends a messages request and returns the first text block.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, req)
	})
	if err != nil {
		return "", err
	}

	return out.(string), nil
}

// CompleteWithModels tries each model in order, moving to the next when the
// endpoint reports the model as missing. Any other failure is returned
// immediately.
func (c *Client) CompleteWithModels(ctx context.Context, models []string, req Request) (string, error) {
	if len(models) == 0 {
		return "", errors.New("no models to try")
	}

	var lastErr error
	for _, model := range models {
		req.Model = model
		text, err := c.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if IsModelNotFound(err) {
			c.log.Warn().Str("model", model).Msg("Model not available, trying fallback")
			continue
		}
		return "", err
	}

	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, request Request) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	c.log.Debug().Str("model", request.Model).Msg("Sending messages request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		_ = json.Unmarshal(raw, &errResp)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Type:       errResp.Error.Type,
			Message:    errResp.Error.Message,
		}
	}

	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	for _, block := range out.Content {
		if block.Type == "text" {
			return strings.TrimSpace(block.Text), nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}
