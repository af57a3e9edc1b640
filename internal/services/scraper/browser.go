// -----------------------------------------------------------------------
// Headless browser acquisition
// Primary acquisition method: renders the page with chromedp, then
// collects the DOM, navigation timings, and a viewport screenshot.
// -----------------------------------------------------------------------

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// navigationTiming mirrors the browser's PerformanceNavigationTiming
// fields collected by the timing script.
type navigationTiming struct {
	TTFB             float64 `json:"ttfb"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	Load             float64 `json:"load"`
	FCP              float64 `json:"fcp"`
}

const timingScript = `(() => {
	const nav = performance.getEntriesByType('navigation')[0] || {};
	const paint = performance.getEntriesByType('paint').find(p => p.name === 'first-contentful-paint') || {};
	return {
		ttfb: nav.responseStart || 0,
		domContentLoaded: nav.domContentLoadedEventEnd || 0,
		load: nav.loadEventEnd || 0,
		fcp: paint.startTime || 0
	};
})()`

// RenderResult is the raw output of one browser acquisition
type RenderResult struct {
	HTML        string
	FinalURL    string
	Performance *models.PerformanceTimings
	Screenshot  []byte
}

// BrowserScraper renders pages with a pool of headless browser contexts.
// Each Render call exclusively owns one pooled context for its duration.
type BrowserScraper struct {
	config           *common.ScraperConfig
	logger           arbor.ILogger
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	slots            chan int
	mu               sync.Mutex
	initialized      bool
}

// NewBrowserScraper creates a browser scraper. Browser instances are
// started lazily on the first Render call.
func NewBrowserScraper(config *common.ScraperConfig, logger arbor.ILogger) *BrowserScraper {
	return &BrowserScraper{
		config: config,
		logger: logger,
	}
}

// init starts the browser pool on first use
func (b *BrowserScraper) init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	poolSize := b.config.BrowserPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	b.logger.Info().
		Int("pool_size", poolSize).
		Str("user_agent", b.config.UserAgent).
		Msg("Initializing headless browser pool")

	b.slots = make(chan int, poolSize)
	for i := 0; i < poolSize; i++ {
		if err := b.createBrowserInstance(i); err != nil {
			if len(b.browsers) == 0 {
				b.cleanupLocked()
				return fmt.Errorf("failed to create any browser instances: %w", err)
			}
			b.logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to create browser instance")
			continue
		}
		b.slots <- len(b.browsers) - 1
	}

	b.initialized = true
	b.logger.Info().Int("browsers_created", len(b.browsers)).Msg("Browser pool initialized")
	return nil
}

func (b *BrowserScraper) createBrowserInstance(index int) error {
	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	b.browsers = append(b.browsers, browserCtx)
	b.browserCancels = append(b.browserCancels, browserCancel)
	b.allocatorCancels = append(b.allocatorCancels, allocatorCancel)

	b.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")
	return nil
}

// Render navigates to the URL, waits renderWait for JavaScript, and
// collects the rendered DOM, timings, and a screenshot.
func (b *BrowserScraper) Render(ctx context.Context, url string, renderWait time.Duration) (*RenderResult, error) {
	if err := b.init(); err != nil {
		return nil, err
	}

	if renderWait <= 0 {
		renderWait = b.config.RenderWaitTime
	}

	// Acquire a pool slot; the browser tab is exclusively ours until release
	var slot int
	select {
	case slot = <-b.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { b.slots <- slot }()

	browserCtx := b.browsers[slot]
	runCtx, cancel := context.WithTimeout(browserCtx, b.config.RequestTimeout)
	defer cancel()

	var htmlContent, finalURL, timingJSON string
	var screenshot []byte

	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.EmulateViewport(b.config.CaptureViewportW, b.config.CaptureViewportH),
		chromedp.Navigate(url),
		chromedp.Sleep(renderWait), // Wait for JavaScript to render
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &htmlContent),
		chromedp.Evaluate(fmt.Sprintf("JSON.stringify(%s)", timingScript), &timingJSON),
		chromedp.CaptureScreenshot(&screenshot),
	)
	if err != nil {
		return nil, fmt.Errorf("browser render failed for %s: %w", url, err)
	}

	if htmlContent == "" {
		return nil, fmt.Errorf("browser render returned empty document for %s", url)
	}

	result := &RenderResult{
		HTML:       htmlContent,
		FinalURL:   finalURL,
		Screenshot: screenshot,
	}

	var timing navigationTiming
	if err := json.Unmarshal([]byte(timingJSON), &timing); err != nil {
		b.logger.Warn().Err(err).Str("url", url).Msg("Failed to parse navigation timings")
	} else {
		result.Performance = &models.PerformanceTimings{
			TTFBMs:                 timing.TTFB,
			DOMContentLoadedMs:     timing.DOMContentLoaded,
			LoadMs:                 timing.Load,
			FirstContentfulPaintMs: timing.FCP,
		}
	}

	return result, nil
}

func (b *BrowserScraper) cleanupLocked() {
	for _, cancel := range b.browserCancels {
		cancel()
	}
	for _, cancel := range b.allocatorCancels {
		cancel()
	}
	b.browsers = nil
	b.browserCancels = nil
	b.allocatorCancels = nil
}

// Close shuts down all browser instances
func (b *BrowserScraper) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return nil
	}
	b.logger.Info().Int("browser_count", len(b.browsers)).Msg("Shutting down browser pool")
	b.cleanupLocked()
	b.initialized = false
	return nil
}
