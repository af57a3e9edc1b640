// -----------------------------------------------------------------------
// Storage interfaces for job and report persistence
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/aemulus/internal/models"
)

// JobStorage - interface for durable job persistence and queue semantics
type JobStorage interface {
	// CreateJob stores a new queued job. Returns models.ErrJobExists
	// when a job with the same fingerprint already exists.
	CreateJob(ctx context.Context, job *models.Job) error

	// GetJob retrieves a job by fingerprint. Returns models.ErrJobNotFound
	// when absent.
	GetJob(ctx context.Context, id string) (*models.Job, error)

	// ClaimJob atomically transitions the oldest queued job to active,
	// assigning the worker and a lease. Returns models.ErrNoJob when the
	// queue is empty.
	ClaimJob(ctx context.Context, workerID string, lease time.Duration) (*models.Job, error)

	// ExtendLease pushes out the lease expiry for an active job owned by
	// workerID.
	ExtendLease(ctx context.Context, id, workerID string, lease time.Duration) error

	// UpdateProgress records progress for an active job. Progress is
	// clamped so it never decreases.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// CompleteJob transitions a job to its terminal state (completed or
	// failed) and clears the lease.
	CompleteJob(ctx context.Context, id string, state models.JobState, errMsg string) error

	// RequeueFailed returns a failed job to queued so a resubmission with
	// the same fingerprint runs again.
	RequeueFailed(ctx context.Context, id string) error

	// ReclaimExpired returns active jobs whose lease has lapsed to
	// queued, reporting how many were reclaimed.
	ReclaimExpired(ctx context.Context) (int, error)

	// PurgeTerminal deletes completed and failed jobs older than the
	// retention window, returning the IDs of the removed jobs so
	// callers can prune dependent records.
	PurgeTerminal(ctx context.Context, olderThan time.Duration) ([]string, error)

	// ListJobs returns jobs filtered by state (all states when empty),
	// most recent first.
	ListJobs(ctx context.Context, state models.JobState, limit int) ([]*models.Job, error)

	// GetStats returns job counts by state.
	GetStats(ctx context.Context) (*models.JobStats, error)
}

// ReportStorage - interface for the result sink holding finished reports
type ReportStorage interface {
	// SaveReport stores the finished report document keyed by job ID.
	SaveReport(ctx context.Context, doc *models.ReportDocument) error

	// GetReport retrieves a report document by job ID. Returns
	// models.ErrJobNotFound when absent.
	GetReport(ctx context.Context, jobID string) (*models.ReportDocument, error)

	// DeleteReport removes a report document. Deleting an absent
	// document is a no-op.
	DeleteReport(ctx context.Context, jobID string) error
}
