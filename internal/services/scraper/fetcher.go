package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/arbor"
)

// FetchResult is the raw output of one fallback acquisition
type FetchResult struct {
	HTML     string
	FinalURL string
	TTFBMs   float64
}

// HTTPFetcher is the fallback acquisition method: a plain GET of the raw
// HTML. No JavaScript, no timings beyond TTFB, no screenshot.
type HTTPFetcher struct {
	config *common.ScraperConfig
	logger arbor.ILogger
	client *http.Client
}

// NewHTTPFetcher creates the fallback fetcher
func NewHTTPFetcher(config *common.ScraperConfig, logger arbor.ILogger) *HTTPFetcher {
	return &HTTPFetcher{
		config: config,
		logger: logger,
		client: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}
}

// Fetch retrieves the raw HTML for a URL
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	startTime := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", url, err)
	}
	defer resp.Body.Close()
	ttfb := time.Since(startTime)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, fmt.Errorf("unsupported content type %s for %s", contentType, url)
	}

	limited := io.LimitReader(resp.Body, int64(f.config.MaxBodySize))
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read body for %s: %w", url, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body for %s", url)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	f.logger.Debug().
		Str("url", url).
		Int("bytes", len(body)).
		Dur("ttfb", ttfb).
		Msg("Fallback fetch completed")

	return &FetchResult{
		HTML:     string(body),
		FinalURL: finalURL,
		TTFBMs:   float64(ttfb.Milliseconds()),
	}, nil
}
