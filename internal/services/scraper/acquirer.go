// -----------------------------------------------------------------------
// Site acquisition state machine
// Primary (rendered) acquisition first, fallback (plain fetch) second;
// only when both fail is the site excluded from the job.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// techSchema constrains the technology-detection response
var techSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"technologies": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
	"required": []string{"technologies"},
}

// TechDetector classifies technology clue bundles. Satisfied by the
// analysis provider; narrowed here so the acquirer does not depend on
// the full provider surface.
type TechDetector interface {
	Analyze(ctx context.Context, req interfaces.AnalysisRequest) (string, error)
}

// techParser decodes the detection response at the boundary
type techResponse struct {
	Technologies []string `json:"technologies"`
}

// Acquirer implements the SiteAcquirer interface. Each acquisition owns
// its browser/network resource exclusively and releases it on every exit
// path.
type Acquirer struct {
	config      *common.ScraperConfig
	logger      arbor.ILogger
	browser     *BrowserScraper
	fetcher     *HTTPFetcher
	rateLimiter *RateLimiter
	retry       *RetryPolicy
	detector    TechDetector
	parseJSON   func(response string, out interface{}) error
}

// NewAcquirer creates the site acquirer. detector may be nil, in which
// case technology detection is skipped.
func NewAcquirer(config *common.ScraperConfig, detector TechDetector, parseJSON func(string, interface{}) error, logger arbor.ILogger) *Acquirer {
	return &Acquirer{
		config:      config,
		logger:      logger,
		browser:     NewBrowserScraper(config, logger),
		fetcher:     NewHTTPFetcher(config, logger),
		rateLimiter: NewRateLimiter(config.RequestDelay),
		retry:       NewRetryPolicy(config.MaxRetries, config.RetryBackoff),
		detector:    detector,
		parseJSON:   parseJSON,
	}
}

// Acquire runs the per-URL state machine: primary render, then fallback
// fetch, then failure.
func (a *Acquirer) Acquire(ctx context.Context, url string) (*models.SiteSnapshot, error) {
	if err := a.rateLimiter.Wait(ctx, url); err != nil {
		return nil, err
	}

	snapshot, primaryErr := a.acquirePrimary(ctx, url)
	if primaryErr == nil {
		return snapshot, nil
	}

	a.logger.Warn().
		Err(primaryErr).
		Str("url", url).
		Msg("Primary acquisition failed, trying fallback")

	snapshot, fallbackErr := a.acquireFallback(ctx, url)
	if fallbackErr == nil {
		return snapshot, nil
	}

	return nil, &models.AcquisitionError{
		URL:         url,
		PrimaryErr:  primaryErr,
		FallbackErr: fallbackErr,
	}
}

// acquirePrimary renders the page with the browser. A timeout on the
// strict wait is retried once with a relaxed (shorter) render wait.
func (a *Acquirer) acquirePrimary(ctx context.Context, url string) (*models.SiteSnapshot, error) {
	var result *RenderResult

	err := a.retry.Execute(ctx, a.logger, "primary acquisition", func() error {
		var renderErr error
		result, renderErr = a.browser.Render(ctx, url, a.config.RenderWaitTime)
		if renderErr != nil && ctx.Err() == nil {
			// Relaxed-wait retry: a slow page may still yield usable DOM
			// with a shorter render wait
			relaxedWait := a.config.RenderWaitTime / 2
			if relaxedWait < 500*time.Millisecond {
				relaxedWait = 500 * time.Millisecond
			}
			result, renderErr = a.browser.Render(ctx, url, relaxedWait)
		}
		return renderErr
	})
	if err != nil {
		return nil, err
	}

	finalURL := result.FinalURL
	if finalURL == "" {
		finalURL = url
	}

	snapshot, err := ExtractSnapshot(result.HTML, finalURL, a.config.ExcerptMaxChars)
	if err != nil {
		return nil, err
	}

	snapshot.Method = models.AcquisitionPrimary
	snapshot.Performance = result.Performance
	snapshot.ScrapedAt = time.Now()
	if len(result.Screenshot) > 0 {
		snapshot.Visual = &models.VisualCapture{
			PNG:    result.Screenshot,
			Width:  a.config.CaptureViewportW,
			Height: a.config.CaptureViewportH,
		}
	}

	snapshot.Technologies = a.detectTechnologies(ctx, url, result.HTML)
	return snapshot, nil
}

// acquireFallback performs the plain fetch. No script-rendered content,
// no render timings, no visual capture.
func (a *Acquirer) acquireFallback(ctx context.Context, url string) (*models.SiteSnapshot, error) {
	var result *FetchResult

	err := a.retry.Execute(ctx, a.logger, "fallback acquisition", func() error {
		var fetchErr error
		result, fetchErr = a.fetcher.Fetch(ctx, url)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	finalURL := result.FinalURL
	if finalURL == "" {
		finalURL = url
	}

	snapshot, err := ExtractSnapshot(result.HTML, finalURL, a.config.ExcerptMaxChars)
	if err != nil {
		return nil, err
	}

	snapshot.Method = models.AcquisitionFallback
	snapshot.ScrapedAt = time.Now()

	snapshot.Technologies = a.detectTechnologies(ctx, url, result.HTML)
	return snapshot, nil
}

// detectTechnologies classifies script/style/generator clues via the
// analysis capability. Failure degrades to an empty list, never failing
// the snapshot.
func (a *Acquirer) detectTechnologies(ctx context.Context, url, html string) []string {
	if a.detector == nil || a.parseJSON == nil {
		return nil
	}

	clues := TechnologyClues(html)
	if len(clues) == 0 {
		return nil
	}

	req := interfaces.AnalysisRequest{
		SystemPrompt: "You identify web technologies from markup clues. Given script sources, stylesheet links, and generator tags, name the frameworks, CMS platforms, and analytics tools in use. Only include technologies the clues clearly indicate.",
		UserPrompt:   fmt.Sprintf("Clues from %s:\n%s", url, joinLines(clues)),
		Schema:       techSchema,
	}

	response, err := a.detector.Analyze(ctx, req)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", url).Msg("Technology detection failed, continuing without")
		return nil
	}

	var parsed techResponse
	if err := a.parseJSON(response, &parsed); err != nil {
		a.logger.Warn().Err(err).Str("url", url).Msg("Technology detection response malformed, continuing without")
		return nil
	}

	return parsed.Technologies
}

// Close releases browser resources
func (a *Acquirer) Close() error {
	return a.browser.Close()
}

func joinLines(lines []string) string {
	out := ""
	for _, line := range lines {
		out += "- " + line + "\n"
	}
	return out
}
