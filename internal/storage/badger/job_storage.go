package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger. The claim
// mutex serializes claim/reclaim paths so a job is never leased to two
// workers at once.
type JobStorage struct {
	db      *BadgerDB
	logger  arbor.ILogger
	claimMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.State == "" {
		job.State = models.JobStateQueued
	}

	if err := s.db.Store().Insert(job.ID, job); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return models.ErrJobExists
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) ClaimJob(ctx context.Context, workerID string, lease time.Duration) (*models.Job, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var candidates []models.Job
	query := badgerhold.Where("State").Eq(models.JobStateQueued).SortBy("CreatedAt").Limit(1)
	if err := s.db.Store().Find(&candidates, query); err != nil {
		return nil, fmt.Errorf("failed to query queued jobs: %w", err)
	}
	if len(candidates) == 0 {
		return nil, models.ErrNoJob
	}

	job := candidates[0]
	now := time.Now()
	expiry := now.Add(lease)
	job.State = models.JobStateActive
	job.WorkerID = workerID
	job.LeaseExpiresAt = &expiry
	job.StartedAt = &now

	if err := s.db.Store().Update(job.ID, &job); err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
	}

	s.logger.Debug().Str("job_id", job.ID).Str("worker_id", workerID).Msg("Job claimed")
	return &job, nil
}

func (s *JobStorage) ExtendLease(ctx context.Context, id, workerID string, lease time.Duration) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.State != models.JobStateActive {
		return fmt.Errorf("job %s is not active", id)
	}
	if job.WorkerID != workerID {
		return fmt.Errorf("job %s is owned by %s, not %s", id, job.WorkerID, workerID)
	}

	expiry := time.Now().Add(lease)
	job.LeaseExpiresAt = &expiry
	if err := s.db.Store().Update(id, job); err != nil {
		return fmt.Errorf("failed to extend lease for job %s: %w", id, err)
	}
	return nil
}

// UpdateProgress clamps progress to [0,100] and never lets it decrease.
// Serialized under claimMu: acquisition goroutines report concurrently
// and an unserialized read-modify-write could land a lower value last.
func (s *JobStorage) UpdateProgress(ctx context.Context, id string, progress int) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}

	if progress > 100 {
		progress = 100
	}
	if progress <= job.Progress {
		return nil
	}

	job.Progress = progress
	if err := s.db.Store().Update(id, job); err != nil {
		return fmt.Errorf("failed to update progress for job %s: %w", id, err)
	}
	return nil
}

func (s *JobStorage) CompleteJob(ctx context.Context, id string, state models.JobState, errMsg string) error {
	if !state.IsTerminal() {
		return fmt.Errorf("state %s is not terminal", state)
	}

	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	job.State = state
	job.Error = errMsg
	job.WorkerID = ""
	job.LeaseExpiresAt = nil
	job.CompletedAt = &now
	// Both terminal states force progress to 100: a failed job is done,
	// not half-finished.
	job.Progress = 100

	if err := s.db.Store().Update(id, job); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", id, err)
	}
	return nil
}

// RequeueFailed resets a failed job so an identical resubmission runs
// the pipeline again under the same fingerprint.
func (s *JobStorage) RequeueFailed(ctx context.Context, id string) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.State != models.JobStateFailed {
		return fmt.Errorf("job %s is %s, not failed", id, job.State)
	}

	job.State = models.JobStateQueued
	job.Progress = 0
	job.Error = ""
	job.WorkerID = ""
	job.LeaseExpiresAt = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.CreatedAt = time.Now()

	if err := s.db.Store().Update(id, job); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", id, err)
	}

	s.logger.Info().Str("job_id", id).Msg("Failed job requeued")
	return nil
}

// ReclaimExpired returns active jobs whose lease lapsed to the queue so
// another worker can pick them up. Redelivery means at-least-once
// execution.
func (s *JobStorage) ReclaimExpired(ctx context.Context) (int, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	var active []models.Job
	if err := s.db.Store().Find(&active, badgerhold.Where("State").Eq(models.JobStateActive)); err != nil {
		return 0, fmt.Errorf("failed to query active jobs: %w", err)
	}

	now := time.Now()
	reclaimed := 0
	for i := range active {
		job := &active[i]
		if job.LeaseExpiresAt == nil || job.LeaseExpiresAt.After(now) {
			continue
		}

		s.logger.Warn().
			Str("job_id", job.ID).
			Str("worker_id", job.WorkerID).
			Msg("Reclaiming job with expired lease")

		job.State = models.JobStateQueued
		job.WorkerID = ""
		job.LeaseExpiresAt = nil
		if err := s.db.Store().Update(job.ID, job); err != nil {
			return reclaimed, fmt.Errorf("failed to reclaim job %s: %w", job.ID, err)
		}
		reclaimed++
	}

	return reclaimed, nil
}

func (s *JobStorage) PurgeTerminal(ctx context.Context, olderThan time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-olderThan)

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("State").In(models.JobStateCompleted, models.JobStateFailed)); err != nil {
		return nil, fmt.Errorf("failed to query terminal jobs: %w", err)
	}

	var purged []string
	for i := range jobs {
		job := &jobs[i]
		if job.CompletedAt == nil || job.CompletedAt.After(cutoff) {
			continue
		}
		if err := s.db.Store().Delete(job.ID, &models.Job{}); err != nil {
			return purged, fmt.Errorf("failed to purge job %s: %w", job.ID, err)
		}
		purged = append(purged, job.ID)
	}

	return purged, nil
}

func (s *JobStorage) ListJobs(ctx context.Context, state models.JobState, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if state != "" {
		query = badgerhold.Where("State").Eq(state)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) GetStats(ctx context.Context) (*models.JobStats, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}

	stats := &models.JobStats{}
	for _, job := range jobs {
		stats.Total++
		switch job.State {
		case models.JobStateQueued:
			stats.Queued++
		case models.JobStateActive:
			stats.Active++
		case models.JobStateCompleted:
			stats.Completed++
		case models.JobStateFailed:
			stats.Failed++
		}
	}
	return stats, nil
}
