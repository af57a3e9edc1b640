package common

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// FingerprintLength is the truncated identifier length in hex characters.
const FingerprintLength = 16

// JobFingerprint derives a deterministic job identifier from normalized
// inputs. Category defaults to "General" and URLs are sorted and
// deduplicated on a copy, so any permutation or repetition of the same
// URL set yields the same identifier.
func JobFingerprint(brandName, category string, competitorURLs []string) string {
	if category == "" {
		category = "General"
	}

	sorted := make([]string, len(competitorURLs))
	copy(sorted, competitorURLs)
	sort.Strings(sorted)

	unique := sorted[:0]
	for _, u := range sorted {
		if len(unique) == 0 || u != unique[len(unique)-1] {
			unique = append(unique, u)
		}
	}
	sorted = unique

	var b strings.Builder
	b.WriteString(brandName)
	b.WriteByte('\x00')
	b.WriteString(category)
	for _, u := range sorted {
		b.WriteByte('\x00')
		b.WriteString(u)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}
