// Package serpapi implements serp.Searcher over the SerpAPI Google engine.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cognicore/semantica/pkg/semantica/serp"
)

// DefaultBaseURL is the SerpAPI search endpoint.
const DefaultBaseURL = "https://serpapi.com/search.json"

// maxResponseBytes bounds how much of a search response is read.
const maxResponseBytes = 4 << 20

// Client queries SerpAPI.
type Client struct {
	APIKey  string
	BaseURL string
	Results int // num parameter, default 10

	HTTPClient *http.Client
}

// New creates a client with a request timeout.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search implements serp.Searcher.
func (c *Client) Search(ctx context.Context, keyword string, loc serp.Locale) ([]serp.Item, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("serpapi: api key required")
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	num := c.Results
	if num <= 0 {
		num = 10
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", keyword)
	q.Set("num", strconv.Itoa(num))
	q.Set("api_key", c.APIKey)
	if loc.Language != "" {
		q.Set("hl", loc.Language)
	}
	if loc.Country != "" {
		q.Set("gl", loc.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("serpapi: read response: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("serpapi: response exceeds %d bytes", maxResponseBytes)
	}
	var payload searchResponse
	decodeErr := json.Unmarshal(raw, &payload)
	if payload.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", payload.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("serpapi: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", decodeErr)
	}

	items := make([]serp.Item, 0, len(payload.OrganicResults))
	for _, r := range payload.OrganicResults {
		items = append(items, serp.Item{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return items, nil
}
