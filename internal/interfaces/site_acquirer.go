package interfaces

import (
	"context"

	"github.com/ternarybob/aemulus/internal/models"
)

// SiteAcquirer defines the interface for fetching one competitor site
// and distilling it into a structured snapshot. Implementations own
// their browser/network resources exclusively per acquisition.
type SiteAcquirer interface {
	// Acquire fetches the URL and returns its snapshot. Primary
	// (rendered) acquisition is attempted first with a fallback to a
	// plain fetch; only when both fail is an error returned.
	Acquire(ctx context.Context, url string) (*models.SiteSnapshot, error)

	// Close releases underlying browser resources
	Close() error
}
