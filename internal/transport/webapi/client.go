package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/climatejobs/rankd/internal/domain"
)

// Client calls a Bing-v7-compatible web search API.
// Endpoint example: https://api.bing.microsoft.com/v7.0/search
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// Config holds the web search provider settings.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// New creates a web search client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the provider has an endpoint and key.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.apiKey != ""
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// Search runs a web query and normalizes the hits. Results carry a raw
// relevance of 1.0; the ranking stage discounts them by position.
func (c *Client) Search(ctx context.Context, query string, count int) ([]domain.SourceResult, error) {
	if !c.Configured() {
		return nil, domain.ErrUnsupported
	}
	if count <= 0 {
		count = 5
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("web search http status %d", resp.StatusCode)
	}

	var br bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.SourceResult, 0, len(br.WebPages.Value))
	for i, v := range br.WebPages.Value {
		if i >= count {
			break
		}
		out = append(out, domain.SourceResult{
			ID:           v.URL,
			Content:      v.Snippet,
			RawRelevance: 1.0,
			Kind:         domain.SourceWeb,
			Rank:         i,
			URL:          v.URL,
			Attributes:   map[string]string{"title": v.Name},
		})
	}
	return out, nil
}
