package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

func TestSaveAndGetReport(t *testing.T) {
	storage := NewReportStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	doc := &models.ReportDocument{
		JobID:          "fp-1",
		BrandName:      "Acme",
		Category:       "SaaS",
		CompetitorURLs: []string{"https://a.com"},
		Report: &models.FinalReport{
			BrandName:   "Acme",
			Category:    "SaaS",
			Analysis:    "Acme leads on performance.",
			GeneratedAt: time.Now(),
		},
	}

	if err := storage.SaveReport(ctx, doc); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if doc.DocumentID == "" {
		t.Error("Expected a generated document ID")
	}
	if !doc.Success {
		t.Error("Expected success flag set")
	}

	got, err := storage.GetReport(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Failed to get report: %v", err)
	}
	if got.Report == nil || got.Report.Analysis != "Acme leads on performance." {
		t.Errorf("Unexpected report content: %+v", got.Report)
	}
	if got.BrandName != "Acme" || len(got.CompetitorURLs) != 1 {
		t.Errorf("Original job inputs not carried: %+v", got)
	}
}

func TestSaveReportUpsert(t *testing.T) {
	storage := NewReportStorage(newTestDB(t), arbor.NewLogger())
	ctx := context.Background()

	first := &models.ReportDocument{JobID: "fp-1", Report: &models.FinalReport{Analysis: "v1"}}
	if err := storage.SaveReport(ctx, first); err != nil {
		t.Fatal(err)
	}

	// A redelivered job that finishes again overwrites cleanly
	second := &models.ReportDocument{JobID: "fp-1", Report: &models.FinalReport{Analysis: "v2"}}
	if err := storage.SaveReport(ctx, second); err != nil {
		t.Fatalf("Upsert on redelivery failed: %v", err)
	}

	got, err := storage.GetReport(ctx, "fp-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Report.Analysis != "v2" {
		t.Errorf("Expected latest report, got %s", got.Report.Analysis)
	}
}

func TestGetReportNotFound(t *testing.T) {
	storage := NewReportStorage(newTestDB(t), arbor.NewLogger())

	_, err := storage.GetReport(context.Background(), "missing")
	if !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}
