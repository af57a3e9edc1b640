package common

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
)

// MaxCompetitorDomains bounds the deduplicated URL set per job.
const MaxCompetitorDomains = 5

// secondLevelTLDs lists common public second-level registries so that
// "example.co.uk" resolves to example.co.uk rather than co.uk.
var secondLevelTLDs = map[string]bool{
	"co":  true,
	"com": true,
	"net": true,
	"org": true,
	"gov": true,
	"ac":  true,
	"edu": true,
}

// NormalizeURL prefixes https:// when no scheme is present and validates
// the result parses with a non-empty host.
func NormalizeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %s: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL %s has no host", raw)
	}
	return trimmed, nil
}

// RootDomain extracts the registrable domain from a URL, ignoring
// subdomain, scheme, and port variation. Uses a small second-level TLD
// table rather than the full public suffix list.
func RootDomain(rawURL string) (string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL %s: %w", rawURL, err)
	}

	host := strings.ToLower(parsed.Hostname())
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host, nil
	}

	// example.co.uk style: keep three labels when the middle label is a
	// known second-level registry under a short country TLD
	if len(labels) >= 3 {
		tld := labels[len(labels)-1]
		second := labels[len(labels)-2]
		if len(tld) == 2 && secondLevelTLDs[second] {
			return strings.Join(labels[len(labels)-3:], "."), nil
		}
	}

	return strings.Join(labels[len(labels)-2:], "."), nil
}

// DeduplicateByDomain collapses a raw URL list to one URL per root
// domain, preserving input order and keeping the first URL seen for each
// domain. Invalid URLs are skipped with a warning. The result is capped
// at maxDomains entries (MaxCompetitorDomains when not positive).
func DeduplicateByDomain(rawURLs []string, maxDomains int, logger arbor.ILogger) []string {
	if maxDomains <= 0 {
		maxDomains = MaxCompetitorDomains
	}

	seen := make(map[string]bool)
	var result []string

	for _, raw := range rawURLs {
		normalized, err := NormalizeURL(raw)
		if err != nil {
			logger.Warn().Err(err).Str("url", raw).Msg("Skipping invalid competitor URL")
			continue
		}

		domain, err := RootDomain(normalized)
		if err != nil {
			logger.Warn().Err(err).Str("url", raw).Msg("Skipping URL with unresolvable domain")
			continue
		}

		if seen[domain] {
			logger.Debug().Str("url", raw).Str("domain", domain).Msg("Dropping duplicate domain")
			continue
		}
		seen[domain] = true
		result = append(result, normalized)

		if len(result) >= maxDomains {
			break
		}
	}

	return result
}
