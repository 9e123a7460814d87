package extract

import (
	"context"
	"log/slog"
	"time"

	"insightsearch/internal/text"
)

// Category classifies the outcome of a single extraction attempt.
type Category int

const (
	CategorySuccess Category = iota
	CategoryTimeout
	CategoryUnknown
	CategoryClientError
	CategoryRateLimited
	CategoryFatal
	CategoryServerError
	CategoryForbidden
	CategoryUnexpected
)

func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryTimeout:
		return "timeout"
	case CategoryUnknown:
		return "unknown"
	case CategoryClientError:
		return "client_error"
	case CategoryRateLimited:
		return "rate_limited"
	case CategoryFatal:
		return "fatal"
	case CategoryServerError:
		return "server_error"
	case CategoryForbidden:
		return "forbidden"
	case CategoryUnexpected:
		return "unexpected_status"
	}
	return "invalid"
}

// Outcome carries the outcome category plus the provider-reported status code
// when one was available (zero for timeout and unknown failures).
type Outcome struct {
	Category Category
	Code     int
}

// Document is a successfully extracted page after content filtering.
type Document struct {
	URL      string
	Markdown string
	Links    []string
	Metadata map[string]any
	Level    int
}

// ScrapeResult is the raw provider response before filtering.
type ScrapeResult struct {
	Markdown string
	Links    []string
	Metadata map[string]any
}

// StatusCode reads the HTTP-equivalent status the provider embedded in the
// result metadata. Zero when absent.
func (r *ScrapeResult) StatusCode() int {
	if r.Metadata == nil {
		return 0
	}
	switch v := r.Metadata["statusCode"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (r *ScrapeResult) sourceURL(fallback string) string {
	if r.Metadata != nil {
		if u, ok := r.Metadata["url"].(string); ok && u != "" {
			return u
		}
	}
	return fallback
}

type Scraper interface {
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
}

// Gateway wraps a Scraper with a hard wall-clock timeout. The scrape runs in
// its own goroutine with a one-shot result handoff; when the timeout fires
// the gateway abandons the worker and cancels its context on return.
type Gateway struct {
	scraper Scraper
	timeout time.Duration
}

func NewGateway(scraper Scraper, timeout time.Duration) *Gateway {
	return &Gateway{scraper: scraper, timeout: timeout}
}

// Fetch extracts one URL and maps the provider status to an Outcome:
//
//	200      -> Success (filtered Document)
//	400, 404 -> ClientError
//	429      -> RateLimited
//	401, 402 -> Fatal (exhausted or invalid provider credential)
//	5xx      -> ServerError
//	403      -> Forbidden
//	other    -> UnexpectedStatus
//
// A timed-out scrape returns Timeout; a scrape that errors returns Unknown.
func (g *Gateway) Fetch(ctx context.Context, rawURL string, level int) (*Document, Outcome) {
	type handoff struct {
		result *ScrapeResult
		err    error
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan handoff, 1)
	go func() {
		result, err := g.scraper.Scrape(fetchCtx, rawURL)
		done <- handoff{result: result, err: err}
	}()

	var h handoff
	select {
	case h = <-done:
	case <-fetchCtx.Done():
		slog.ErrorContext(ctx, "extraction timed out", "url", rawURL, "timeout", g.timeout)
		return nil, Outcome{Category: CategoryTimeout}
	}

	if h.err != nil {
		slog.WarnContext(ctx, "scrape failed", "url", rawURL, "error", h.err)
		return nil, Outcome{Category: CategoryUnknown}
	}

	code := h.result.StatusCode()
	switch {
	case code == 200:
		doc := &Document{
			URL:      h.result.sourceURL(rawURL),
			Markdown: text.FilterBody(h.result.Markdown),
			Links:    text.FilterLinks(h.result.Links),
			Metadata: h.result.Metadata,
			Level:    level,
		}
		slog.InfoContext(ctx, "extracted content", "url", rawURL, "level", level)
		return doc, Outcome{Category: CategorySuccess, Code: code}
	case code == 400 || code == 404:
		return nil, Outcome{Category: CategoryClientError, Code: code}
	case code == 429:
		return nil, Outcome{Category: CategoryRateLimited, Code: code}
	case code == 401 || code == 402:
		slog.ErrorContext(ctx, "provider credential failure", "url", rawURL, "status", code)
		return nil, Outcome{Category: CategoryFatal, Code: code}
	case code >= 500 && code < 600:
		return nil, Outcome{Category: CategoryServerError, Code: code}
	case code == 403:
		return nil, Outcome{Category: CategoryForbidden, Code: code}
	}
	return nil, Outcome{Category: CategoryUnexpected, Code: code}
}
