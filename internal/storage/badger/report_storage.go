package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements the ReportStorage interface for Badger. It is
// the result sink: one document per completed job, keyed by job ID.
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReport(ctx context.Context, doc *models.ReportDocument) error {
	if doc.JobID == "" {
		return fmt.Errorf("report document requires a job ID")
	}
	if doc.DocumentID == "" {
		doc.DocumentID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.Success = true

	// Upsert so an at-least-once redelivery that finishes twice is safe
	if err := s.db.Store().Upsert(doc.JobID, doc); err != nil {
		return fmt.Errorf("failed to save report for job %s: %w", doc.JobID, err)
	}

	s.logger.Debug().
		Str("job_id", doc.JobID).
		Str("document_id", doc.DocumentID).
		Msg("Report saved to result sink")
	return nil
}

func (s *ReportStorage) GetReport(ctx context.Context, jobID string) (*models.ReportDocument, error) {
	var doc models.ReportDocument
	if err := s.db.Store().Get(jobID, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get report for job %s: %w", jobID, err)
	}
	return &doc, nil
}

// DeleteReport removes a sink document. Missing documents are not an
// error: failed jobs never wrote one.
func (s *ReportStorage) DeleteReport(ctx context.Context, jobID string) error {
	if err := s.db.Store().Delete(jobID, &models.ReportDocument{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete report for job %s: %w", jobID, err)
	}
	return nil
}
