// Package tavily provides a client for the Tavily search API, the
// research-focused web search provider.
package tavily

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

const defaultBaseURL = "https://api.tavily.com"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("tavily api key not configured")

// searchRequest is the POST /search body. The API key travels in the body,
// not a header.
type searchRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
}

// Result is a single search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Client is the Tavily search API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        zerolog.Logger
}

// NewClient creates a new Tavily client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "tavily",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 4), // 2 calls/sec
		breaker:    breaker,
		log:        log.With().Str("client", "tavily").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Search runs a basic-depth search restricted to the given domains.
// maxResults caps the number of hits requested from the API.
func (c *Client) Search(ctx context.Context, query string, includeDomains []string, maxResults int) ([]Result, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doSearch(ctx, query, includeDomains, maxResults)
	})
	if err != nil {
		return nil, err
	}

	return out.([]Result), nil
}

func (c *Client) doSearch(ctx context.Context, query string, includeDomains []string, maxResults int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:            c.apiKey,
		Query:             query,
		SearchDepth:       "basic",
		IncludeAnswer:     false,
		IncludeRawContent: false,
		MaxResults:        maxResults,
		IncludeDomains:    includeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Str("query", query).Int("max_results", maxResults).Msg("Searching")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily API error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return out.Results, nil
}
