package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

func TestFallbackSnapshotOmitsRenderData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Acme</title><meta name="description" content="widgets"></head><body><h1>Acme</h1><p>hello</p></body></html>`))
	}))
	defer server.Close()

	acquirer := NewAcquirer(testScraperConfig(), nil, nil, arbor.NewLogger())
	snapshot, err := acquirer.acquireFallback(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fallback acquisition failed: %v", err)
	}

	if snapshot.Method != models.AcquisitionFallback {
		t.Errorf("Expected fallback method, got %s", snapshot.Method)
	}
	if snapshot.Title != "Acme" {
		t.Errorf("Expected title extracted, got %q", snapshot.Title)
	}
	// A plain fetch cannot observe render timings or capture pixels
	if snapshot.Performance != nil {
		t.Errorf("Expected no performance timings on fallback, got %+v", snapshot.Performance)
	}
	if snapshot.Visual != nil {
		t.Error("Expected no visual capture on fallback")
	}
}
