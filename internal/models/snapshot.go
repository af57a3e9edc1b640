// -----------------------------------------------------------------------
// SiteSnapshot - structured data scraped from one competitor site
// Produced once per URL per job and immutable afterwards.
// -----------------------------------------------------------------------

package models

import "time"

// AcquisitionMethod records which strategy produced a snapshot.
type AcquisitionMethod string

const (
	AcquisitionPrimary  AcquisitionMethod = "primary"  // full browser render
	AcquisitionFallback AcquisitionMethod = "fallback" // direct HTTP fetch
)

// HeadingCounts holds per-level heading tallies.
type HeadingCounts struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
	H4 int `json:"h4"`
	H5 int `json:"h5"`
	H6 int `json:"h6"`
}

// PerformanceTimings holds millisecond navigation/paint timings captured
// during a primary (rendered) acquisition. Fallback snapshots carry none.
type PerformanceTimings struct {
	TTFBMs                 float64 `json:"ttfb_ms"`
	DOMContentLoadedMs     float64 `json:"dom_content_loaded_ms"`
	LoadMs                 float64 `json:"load_ms"`
	FirstContentfulPaintMs float64 `json:"first_contentful_paint_ms"`
}

// VisualCapture is a full-page screenshot taken during primary acquisition.
type VisualCapture struct {
	PNG    []byte `json:"-"`
	Width  int64  `json:"width"`
	Height int64  `json:"height"`
}

// SiteSnapshot is the structured extract of one competitor page. Both
// acquisition strategies populate the same markup-derived fields;
// Performance and Visual are only available from the primary strategy.
type SiteSnapshot struct {
	URL             string        `json:"url"` // final, post-redirect
	Title           string        `json:"title"`
	MetaDescription string        `json:"meta_description"`
	Headings        HeadingCounts `json:"headings"`
	WordCount       int           `json:"word_count"`
	InternalLinks   int           `json:"internal_links"`
	ExternalLinks   int           `json:"external_links"`
	ImageCount      int           `json:"image_count"`
	ImagesWithAlt   int           `json:"images_with_alt"`
	StructuredData  bool          `json:"structured_data"`
	CanonicalURL    string        `json:"canonical_url,omitempty"`
	RobotsDirective string        `json:"robots_directive,omitempty"`

	// ContentExcerpt is the page's main content converted to markdown,
	// truncated for prompt use.
	ContentExcerpt string `json:"content_excerpt,omitempty"`

	Performance  *PerformanceTimings `json:"performance,omitempty"`
	Technologies []string            `json:"technologies"`
	Visual       *VisualCapture      `json:"visual,omitempty"`

	Method    AcquisitionMethod `json:"acquisition_method"`
	ScrapedAt time.Time         `json:"scraped_at"`
}
