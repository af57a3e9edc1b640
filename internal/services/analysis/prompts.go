package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/aemulus/internal/models"
)

// findingsSchema is the required output shape for every specialist
// analyzer
var findingsSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"strengths": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"weaknesses": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
	"required": []string{"strengths", "weaknesses"},
}

const (
	technicalSystemPrompt = "You are a technical SEO and web performance analyst. Assess the site's performance and SEO signals and report concrete strengths and weaknesses. Be specific and cite the numbers you were given."

	contentSystemPrompt = "You are a content strategist. Assess the site's messaging, structure, and content depth and report concrete strengths and weaknesses grounded in the provided signals."

	visualSystemPrompt = "You are a web design analyst. Assess the site's visual presentation from the capture metadata and layout statistics provided and report concrete strengths and weaknesses."

	synthesisSystemPrompt = "You are a competitive intelligence analyst. Given specialist findings for several competitors, write one narrative market analysis that identifies overall market patterns, ranks the competitors by threat level, and lists concrete recommended actions for the brand."
)

// technicalSignals narrows a snapshot to performance/SEO fields
type technicalSignals struct {
	URL             string                     `json:"url"`
	Performance     *models.PerformanceTimings `json:"performance,omitempty"`
	Technologies    []string                   `json:"technologies,omitempty"`
	Headings        models.HeadingCounts       `json:"headings"`
	StructuredData  bool                       `json:"structured_data"`
	CanonicalURL    string                     `json:"canonical_url,omitempty"`
	RobotsDirective string                     `json:"robots_directive,omitempty"`
	ImageCount      int                        `json:"image_count"`
	ImagesWithAlt   int                        `json:"images_with_alt"`
	Method          models.AcquisitionMethod   `json:"acquisition_method"`
}

// contentSignals narrows a snapshot to messaging/structure fields
type contentSignals struct {
	URL             string               `json:"url"`
	Title           string               `json:"title"`
	MetaDescription string               `json:"meta_description"`
	Headings        models.HeadingCounts `json:"headings"`
	WordCount       int                  `json:"word_count"`
	InternalLinks   int                  `json:"internal_links"`
	ExternalLinks   int                  `json:"external_links"`
	ContentExcerpt  string               `json:"content_excerpt,omitempty"`
}

// visualSignals describes the capture without sending pixels
type visualSignals struct {
	URL           string               `json:"url"`
	CaptureWidth  int64                `json:"capture_width"`
	CaptureHeight int64                `json:"capture_height"`
	ImageCount    int                  `json:"image_count"`
	HeadingCounts models.HeadingCounts `json:"headings"`
	WordCount     int                  `json:"word_count"`
}

// buildAnalyzerPrompt renders the narrow signal payload for one analyzer
func buildAnalyzerPrompt(kind models.AnalyzerKind, snapshot *models.SiteSnapshot) (system, user string, err error) {
	var payload interface{}
	switch kind {
	case models.AnalyzerTechnical:
		system = technicalSystemPrompt
		payload = technicalSignals{
			URL:             snapshot.URL,
			Performance:     snapshot.Performance,
			Technologies:    snapshot.Technologies,
			Headings:        snapshot.Headings,
			StructuredData:  snapshot.StructuredData,
			CanonicalURL:    snapshot.CanonicalURL,
			RobotsDirective: snapshot.RobotsDirective,
			ImageCount:      snapshot.ImageCount,
			ImagesWithAlt:   snapshot.ImagesWithAlt,
			Method:          snapshot.Method,
		}
	case models.AnalyzerContent:
		system = contentSystemPrompt
		payload = contentSignals{
			URL:             snapshot.URL,
			Title:           snapshot.Title,
			MetaDescription: snapshot.MetaDescription,
			Headings:        snapshot.Headings,
			WordCount:       snapshot.WordCount,
			InternalLinks:   snapshot.InternalLinks,
			ExternalLinks:   snapshot.ExternalLinks,
			ContentExcerpt:  snapshot.ContentExcerpt,
		}
	case models.AnalyzerVisual:
		if snapshot.Visual == nil {
			return "", "", fmt.Errorf("no visual capture for %s", snapshot.URL)
		}
		system = visualSystemPrompt
		payload = visualSignals{
			URL:           snapshot.URL,
			CaptureWidth:  snapshot.Visual.Width,
			CaptureHeight: snapshot.Visual.Height,
			ImageCount:    snapshot.ImageCount,
			HeadingCounts: snapshot.Headings,
			WordCount:     snapshot.WordCount,
		}
	default:
		return "", "", fmt.Errorf("unknown analyzer kind: %s", kind)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode %s signals: %w", kind, err)
	}

	user = fmt.Sprintf("Analyze this competitor site:\n%s", data)
	return system, user, nil
}

// buildSynthesisPrompt renders all competitor findings for the synthesis
// call, preserving the stable URL association.
func buildSynthesisPrompt(brandName, category string, reports []models.CompetitorReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\nCategory: %s\nCompetitors analyzed: %d\n\n", brandName, category, len(reports))

	for i, report := range reports {
		fmt.Fprintf(&b, "## Competitor %d: %s\n", i+1, report.URL)
		for _, sp := range report.Specialists {
			if sp.Failed {
				fmt.Fprintf(&b, "- %s analysis: unavailable (%s)\n", sp.Analyzer, sp.Error)
				continue
			}
			fmt.Fprintf(&b, "- %s strengths: %s\n", sp.Analyzer, strings.Join(sp.Strengths, "; "))
			fmt.Fprintf(&b, "- %s weaknesses: %s\n", sp.Analyzer, strings.Join(sp.Weaknesses, "; "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Write the market analysis now: overall patterns, competitor threat ranking, and recommended actions for the brand.")
	return b.String()
}
