// -----------------------------------------------------------------------
// Submission gateway
// Validates the request, derives its fingerprint, and submits it
// idempotently: an identical normalized request always resolves to the
// same job.
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// SubmitRequest is the submission gateway input
type SubmitRequest struct {
	BrandName      string   `json:"brandName" validate:"required"`
	Category       string   `json:"category"`
	CompetitorURLs []string `json:"competitorUrls" validate:"required,min=1,dive,required"`
}

// SubmitResponse carries the job identifier back to the caller
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// Service is the job submission and polling surface
type Service struct {
	storage  interfaces.JobStorage
	reports  interfaces.ReportStorage
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates the job service
func NewService(storage interfaces.JobStorage, reports interfaces.ReportStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		reports:  reports,
		validate: validator.New(),
		logger:   logger,
	}
}

// Submit validates and normalizes the request, computes its fingerprint,
// and enqueues the job. Re-submission with identical normalized inputs
// resolves to the existing job; re-submitting a failed job requeues it.
// Returns immediately, never blocking on pipeline execution.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			return nil, &models.ValidationError{
				Field:  invalid[0].Field(),
				Reason: fmt.Sprintf("failed %s validation", invalid[0].Tag()),
			}
		}
		return nil, &models.ValidationError{Field: "request", Reason: err.Error()}
	}

	category := req.Category
	if category == "" {
		category = "General"
	}

	fingerprint := common.JobFingerprint(req.BrandName, category, req.CompetitorURLs)

	job := &models.Job{
		ID:             fingerprint,
		BrandName:      req.BrandName,
		Category:       category,
		CompetitorURLs: req.CompetitorURLs,
		State:          models.JobStateQueued,
		CreatedAt:      time.Now(),
	}

	err := s.storage.CreateJob(ctx, job)
	if err == nil {
		s.logger.Info().
			Str("job_id", fingerprint).
			Str("brand", req.BrandName).
			Int("urls", len(req.CompetitorURLs)).
			Msg("Job submitted")
		return &SubmitResponse{JobID: fingerprint}, nil
	}
	if !errors.Is(err, models.ErrJobExists) {
		return nil, fmt.Errorf("failed to submit job: %w", err)
	}

	// Idempotent resolution. A queued/active/completed job is returned
	// as-is; a failed one is a conscious caller retry and runs again.
	existing, getErr := s.storage.GetJob(ctx, fingerprint)
	if getErr != nil {
		return nil, fmt.Errorf("failed to resolve existing job: %w", getErr)
	}
	if existing.State == models.JobStateFailed {
		if requeueErr := s.storage.RequeueFailed(ctx, fingerprint); requeueErr != nil {
			return nil, fmt.Errorf("failed to requeue job: %w", requeueErr)
		}
		s.logger.Info().Str("job_id", fingerprint).Msg("Resubmission requeued failed job")
	} else {
		s.logger.Debug().
			Str("job_id", fingerprint).
			Str("state", string(existing.State)).
			Msg("Duplicate submission resolved to existing job")
	}

	return &SubmitResponse{JobID: fingerprint}, nil
}

// Poll returns the caller-facing view of a job: state and progress
// always, the report only when completed, the error reason only when
// failed.
func (s *Service) Poll(ctx context.Context, jobID string) (*models.JobStatus, error) {
	job, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	status := &models.JobStatus{
		ID:       job.ID,
		State:    job.State,
		Progress: job.Progress,
	}

	switch job.State {
	case models.JobStateCompleted:
		doc, err := s.reports.GetReport(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("completed job %s has no report: %w", jobID, err)
		}
		status.Result = doc.Report
	case models.JobStateFailed:
		status.Error = job.Error
	}

	return status, nil
}

// List returns jobs by state (all when empty), most recent first
func (s *Service) List(ctx context.Context, state models.JobState, limit int) ([]*models.Job, error) {
	return s.storage.ListJobs(ctx, state, limit)
}

// Stats returns job counts by state
func (s *Service) Stats(ctx context.Context) (*models.JobStats, error) {
	return s.storage.GetStats(ctx)
}
