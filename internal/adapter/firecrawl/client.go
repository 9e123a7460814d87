package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"insightsearch/internal/extract"
)

const defaultBaseURL = "https://api.firecrawl.dev"

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 45 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	if url != "" {
		c.baseURL = url
	}
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	ExcludeTags     []string `json:"excludeTags"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	WaitFor         int      `json:"waitFor"`
	Timeout         int      `json:"timeout"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string         `json:"markdown"`
		Links    []string       `json:"links"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches one page through the Firecrawl scrape endpoint with fixed
// extraction parameters: markdown+links output, non-content tags excluded,
// main content only.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*extract.ScrapeResult, error) {
	reqBody := scrapeRequest{
		URL:             pageURL,
		Formats:         []string{"markdown", "links"},
		ExcludeTags:     []string{"img", "iframe", "header", "nav", "footer", "form"},
		OnlyMainContent: true,
		WaitFor:         1000,
		Timeout:         30000,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/scrape", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Provider-level failures (API rate limits, exhausted credits) surface
	// through the same status taxonomy as page-level failures.
	if resp.StatusCode != http.StatusOK {
		return &extract.ScrapeResult{
			Metadata: map[string]any{"statusCode": resp.StatusCode},
		}, nil
	}

	var result scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("firecrawl: %s", result.Error)
	}

	return &extract.ScrapeResult{
		Markdown: result.Data.Markdown,
		Links:    result.Data.Links,
		Metadata: result.Data.Metadata,
	}, nil
}
