// Package serper provides a client for the Serper search API, the general
// Google-backed web search provider.
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://google.serper.dev"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("serper api key not configured")

// searchRequest is the POST /search body. TBS carries Google's time filter
// ("qdr:week", "qdr:month"); empty means no time restriction.
type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
	TBS   string `json:"tbs,omitempty"`
}

// Result is a single organic search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

type searchResponse struct {
	Organic []Result `json:"organic"`
}

// Client is the Serper search API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a new Serper client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "serper",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5), // 5 calls/sec
		breaker:    breaker,
		log:        log.With().Str("client", "serper").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Search runs a search. timeRange restricts result age and must be "",
// "week", or "month".
func (c *Client) Search(ctx context.Context, query string, num int, timeRange string) ([]Result, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doSearch(ctx, query, num, timeRange)
	})
	if err != nil {
		return nil, err
	}

	return out.([]Result), nil
}

func (c *Client) doSearch(ctx context.Context, query string, num int, timeRange string) ([]Result, error) {
	request := searchRequest{Query: query, Num: num}
	if timeRange != "" {
		request.TBS = "qdr:" + timeRange
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	c.log.Debug().Str("query", query).Str("tbs", request.TBS).Msg("Searching")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serper API error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return out.Organic, nil
}
