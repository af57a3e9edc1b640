// -----------------------------------------------------------------------
// Worker pool
// A fixed number of workers poll the durable queue, claim jobs under a
// lease, and run the analysis pipeline. A heartbeat extends the lease
// while a job runs; a lost lease cancels the run so the job can be
// redelivered elsewhere.
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// JobRunner executes a claimed job, reporting progress as it goes
type JobRunner interface {
	Run(ctx context.Context, job *models.Job, onProgress func(int)) (*models.FinalReport, error)
}

// WorkerPool manages a pool of workers that process queued jobs
type WorkerPool struct {
	config  *common.Config
	storage interfaces.JobStorage
	runner  JobRunner
	starts  *rate.Limiter
	logger  arbor.ILogger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(config *common.Config, storage interfaces.JobStorage, runner JobRunner, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	maxStarts := config.Queue.MaxStartsPerMin
	if maxStarts <= 0 {
		maxStarts = 10
	}

	return &WorkerPool{
		config:  config,
		storage: storage,
		runner:  runner,
		starts:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxStarts)), maxStarts),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() error {
	concurrency := wp.config.Queue.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	wp.logger.Info().
		Int("concurrency", concurrency).
		Int("max_starts_per_min", wp.config.Queue.MaxStartsPerMin).
		Msg("Starting worker pool")

	for i := 0; i < concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i, concurrency)
	}

	return nil
}

// Stop gracefully stops the worker pool, waiting for in-flight jobs
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
	wp.wg.Wait()
	return nil
}

// worker is the main worker loop that claims and runs jobs
func (wp *WorkerPool) worker(workerNum, concurrency int) {
	defer wp.wg.Done()

	workerID := fmt.Sprintf("worker-%d", workerNum)
	pollInterval := wp.config.QueuePollInterval()

	// Stagger worker starts to spread claims across the poll interval
	staggerDelay := (pollInterval / time.Duration(concurrency)) * time.Duration(workerNum)
	if staggerDelay > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(staggerDelay):
		}
	}

	wp.logger.Debug().
		Str("worker_id", workerID).
		Dur("stagger_delay", staggerDelay).
		Msg("Worker started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Str("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processNext(workerID); err != nil {
				if !errors.Is(err, models.ErrNoJob) {
					wp.logger.Warn().
						Err(err).
						Str("worker_id", workerID).
						Msg("Error processing job")
				}
			}
		}
	}
}

// processNext claims and runs a single job. The rolling-window limiter
// caps job starts per minute: a claimed job waits for a start slot while
// the heartbeat keeps its lease alive, so tokens are only spent on jobs
// that actually run.
func (wp *WorkerPool) processNext(workerID string) error {
	lease := wp.config.QueueLeaseDuration()
	job, err := wp.storage.ClaimJob(wp.ctx, workerID, lease)
	if err != nil {
		return err
	}

	wp.logger.Info().
		Str("job_id", job.ID).
		Str("worker_id", workerID).
		Str("brand", job.BrandName).
		Msg("Job claimed")

	jobCtx, jobCancel := context.WithCancel(wp.ctx)
	defer jobCancel()

	heartbeatDone := make(chan struct{})
	go wp.heartbeat(jobCtx, jobCancel, job.ID, workerID, lease, heartbeatDone)

	if err := wp.starts.Wait(jobCtx); err != nil {
		// Shutdown or a lost lease while waiting for a start slot. The
		// claimed job stays active and the janitor reclaims it once the
		// lease lapses.
		jobCancel()
		<-heartbeatDone
		return fmt.Errorf("job %s abandoned before start: %w", job.ID, err)
	}

	startTime := time.Now()
	_, runErr := wp.runner.Run(jobCtx, job, func(progress int) {
		if err := wp.storage.UpdateProgress(jobCtx, job.ID, progress); err != nil {
			wp.logger.Warn().
				Err(err).
				Str("job_id", job.ID).
				Msg("Failed to record progress")
		}
	})
	duration := time.Since(startTime)

	abandoned := jobCtx.Err() != nil
	jobCancel()
	<-heartbeatDone

	// A cancelled job context means shutdown or a lost lease. Another
	// worker may own the job now, so no terminal state is written; the
	// queue redelivers it.
	if runErr != nil && abandoned {
		wp.logger.Warn().
			Str("job_id", job.ID).
			Str("worker_id", workerID).
			Msg("Job abandoned mid-run")
		return nil
	}

	if runErr != nil {
		wp.logger.Error().
			Err(runErr).
			Str("job_id", job.ID).
			Str("worker_id", workerID).
			Dur("duration", duration).
			Msg("Job failed")

		if err := wp.storage.CompleteJob(wp.ctx, job.ID, models.JobStateFailed, runErr.Error()); err != nil {
			return fmt.Errorf("failed to record job failure: %w", err)
		}
		return nil
	}

	wp.logger.Info().
		Str("job_id", job.ID).
		Str("worker_id", workerID).
		Dur("duration", duration).
		Msg("Job completed")

	if err := wp.storage.CompleteJob(wp.ctx, job.ID, models.JobStateCompleted, ""); err != nil {
		return fmt.Errorf("failed to record job completion: %w", err)
	}
	return nil
}

// heartbeat extends the job lease while the job runs. A failed extension
// means the lease was lost and the job may be redelivered, so the run is
// cancelled rather than finishing a job another worker now owns.
func (wp *WorkerPool) heartbeat(ctx context.Context, cancelJob context.CancelFunc, jobID, workerID string, lease time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(wp.config.QueueHeartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wp.storage.ExtendLease(ctx, jobID, workerID, lease); err != nil {
				wp.logger.Warn().
					Err(err).
					Str("job_id", jobID).
					Str("worker_id", workerID).
					Msg("Lease extension failed, abandoning job")
				cancelJob()
				return
			}
		}
	}
}
