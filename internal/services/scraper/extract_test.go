package scraper

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Acme Widgets</title>
	<meta name="description" content="The best widgets in town">
	<meta name="robots" content="index, follow">
	<meta name="generator" content="WordPress 6.4">
	<link rel="canonical" href="https://acme.com/">
	<link rel="stylesheet" href="/assets/main.css">
	<script type="application/ld+json">{"@type":"Organization"}</script>
	<script src="https://cdn.acme.com/js/react.min.js"></script>
</head>
<body>
	<nav><a href="/about">About</a></nav>
	<h1>Acme Widgets</h1>
	<h2>Why us</h2>
	<h2>Pricing</h2>
	<p>We build the finest widgets known to industry.</p>
	<a href="/pricing">Pricing</a>
	<a href="https://acme.com/contact">Contact</a>
	<a href="https://partner.example.org">Partner</a>
	<a href="#top">Top</a>
	<img src="/w.png" alt="A widget">
	<img src="/x.png">
	<footer>Copyright Acme</footer>
</body>
</html>`

func TestExtractSnapshot(t *testing.T) {
	snapshot, err := ExtractSnapshot(samplePage, "https://acme.com", 0)
	if err != nil {
		t.Fatalf("ExtractSnapshot failed: %v", err)
	}

	if snapshot.Title != "Acme Widgets" {
		t.Errorf("title = %q", snapshot.Title)
	}
	if snapshot.MetaDescription != "The best widgets in town" {
		t.Errorf("meta description = %q", snapshot.MetaDescription)
	}
	if snapshot.CanonicalURL != "https://acme.com/" {
		t.Errorf("canonical = %q", snapshot.CanonicalURL)
	}
	if snapshot.RobotsDirective != "index, follow" {
		t.Errorf("robots = %q", snapshot.RobotsDirective)
	}
	if snapshot.Headings.H1 != 1 || snapshot.Headings.H2 != 2 {
		t.Errorf("headings = %+v", snapshot.Headings)
	}
	if !snapshot.StructuredData {
		t.Error("expected structured data flag set")
	}
	// /about (nav), /pricing, acme.com/contact are internal; partner.example.org
	// is external; #top is skipped
	if snapshot.InternalLinks != 3 {
		t.Errorf("internal links = %d", snapshot.InternalLinks)
	}
	if snapshot.ExternalLinks != 1 {
		t.Errorf("external links = %d", snapshot.ExternalLinks)
	}
	if snapshot.ImageCount != 2 || snapshot.ImagesWithAlt != 1 {
		t.Errorf("images = %d with alt %d", snapshot.ImageCount, snapshot.ImagesWithAlt)
	}
	if snapshot.WordCount == 0 {
		t.Error("expected non-zero word count")
	}
	if !strings.Contains(snapshot.ContentExcerpt, "finest widgets") {
		t.Errorf("excerpt missing body content: %q", snapshot.ContentExcerpt)
	}
	// nav and footer are stripped from content
	if strings.Contains(snapshot.ContentExcerpt, "Copyright") {
		t.Errorf("excerpt includes footer: %q", snapshot.ContentExcerpt)
	}
}

func TestExtractSnapshotExcerptCap(t *testing.T) {
	snapshot, err := ExtractSnapshot(samplePage, "https://acme.com", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshot.ContentExcerpt) > 10 {
		t.Errorf("excerpt not capped: %d chars", len(snapshot.ContentExcerpt))
	}
}

func TestExtractSnapshotExcerptCapRuneSafe(t *testing.T) {
	page := `<html><head><title>t</title></head><body><p>Größte Qualität für alle Kunden überall</p></body></html>`

	for maxChars := 5; maxChars <= 20; maxChars++ {
		snapshot, err := ExtractSnapshot(page, "https://acme.de", maxChars)
		if err != nil {
			t.Fatal(err)
		}
		if len(snapshot.ContentExcerpt) > maxChars {
			t.Errorf("cap %d: excerpt %d bytes", maxChars, len(snapshot.ContentExcerpt))
		}
		// The cut must never leave a broken multibyte character at the end
		if !utf8.ValidString(snapshot.ContentExcerpt) {
			t.Errorf("cap %d: excerpt is not valid UTF-8: %q", maxChars, snapshot.ContentExcerpt)
		}
	}
}

func TestTechnologyClues(t *testing.T) {
	clues := TechnologyClues(samplePage)
	if len(clues) == 0 {
		t.Fatal("expected clues")
	}

	joined := strings.Join(clues, "\n")
	if !strings.Contains(joined, "WordPress") {
		t.Errorf("missing generator clue: %v", clues)
	}
	if !strings.Contains(joined, "react.min.js") {
		t.Errorf("missing script clue: %v", clues)
	}
	if !strings.Contains(joined, "main.css") {
		t.Errorf("missing stylesheet clue: %v", clues)
	}
}
