package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/aemulus/internal/models"
)

// ExtractSnapshot parses HTML into the structured snapshot fields shared
// by both acquisition strategies. Performance, visual, and technology
// fields are filled in by the caller.
func ExtractSnapshot(html, pageURL string, excerptMaxChars int) (*models.SiteSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML for %s: %w", pageURL, err)
	}

	snapshot := &models.SiteSnapshot{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		snapshot.MetaDescription = strings.TrimSpace(desc)
	}
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		snapshot.CanonicalURL = strings.TrimSpace(canonical)
	}
	if robots, ok := doc.Find(`meta[name="robots"]`).Attr("content"); ok {
		snapshot.RobotsDirective = strings.TrimSpace(robots)
	}

	snapshot.Headings = models.HeadingCounts{
		H1: doc.Find("h1").Length(),
		H2: doc.Find("h2").Length(),
		H3: doc.Find("h3").Length(),
		H4: doc.Find("h4").Length(),
		H5: doc.Find("h5").Length(),
		H6: doc.Find("h6").Length(),
	}

	snapshot.StructuredData = doc.Find(`script[type="application/ld+json"]`).Length() > 0

	pageHost := hostOf(pageURL)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		linkHost := hostOf(href)
		if linkHost == "" || linkHost == pageHost {
			snapshot.InternalLinks++
		} else {
			snapshot.ExternalLinks++
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		snapshot.ImageCount++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			snapshot.ImagesWithAlt++
		}
	})

	// Strip non-content elements before word count and excerpt
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, nav, footer, header, aside").Remove()

	bodyText := strings.TrimSpace(body.Text())
	snapshot.WordCount = len(strings.Fields(bodyText))

	snapshot.ContentExcerpt = extractExcerpt(body, excerptMaxChars)

	return snapshot, nil
}

// extractExcerpt converts the main content to markdown for prompt use,
// falling back to plain text when conversion fails.
func extractExcerpt(body *goquery.Selection, maxChars int) string {
	bodyHTML, err := body.Html()
	if err != nil || bodyHTML == "" {
		return ""
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(bodyHTML)
	if err != nil || strings.TrimSpace(markdown) == "" {
		markdown = strings.Join(strings.Fields(body.Text()), " ")
	}

	markdown = strings.TrimSpace(markdown)
	if maxChars > 0 && len(markdown) > maxChars {
		// Back off to a rune boundary so the cut never splits a
		// multibyte character
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(markdown[cut]) {
			cut--
		}
		markdown = markdown[:cut]
	}
	return markdown
}

// TechnologyClues gathers script/style/generator hints for technology
// detection by the analysis capability.
func TechnologyClues(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var clues []string
	seen := make(map[string]bool)
	add := func(clue string) {
		clue = strings.TrimSpace(clue)
		if clue == "" || seen[clue] || len(clues) >= 40 {
			return
		}
		seen[clue] = true
		clues = append(clues, clue)
	}

	if generator, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok {
		add("generator: " + generator)
	}
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			add("script: " + src)
		}
	})
	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			add("stylesheet: " + href)
		}
	})

	return clues
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
