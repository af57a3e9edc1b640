package queue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Janitor periodically reclaims expired leases and purges terminal jobs
// past the retention window, along with their sink documents
type Janitor struct {
	config  *common.Config
	storage interfaces.JobStorage
	reports interfaces.ReportStorage
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewJanitor creates a new queue janitor
func NewJanitor(config *common.Config, storage interfaces.JobStorage, reports interfaces.ReportStorage, logger arbor.ILogger) *Janitor {
	return &Janitor{
		config:  config,
		storage: storage,
		reports: reports,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled maintenance
func (j *Janitor) Start() error {
	schedule := j.config.Queue.JanitorSchedule
	if schedule == "" {
		// Default: every minute
		schedule = "0 */1 * * * *"
	}

	_, err := j.cron.AddFunc(schedule, func() {
		j.RunNow()
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().
		Str("schedule", schedule).
		Msg("Queue janitor started")

	return nil
}

// Stop stops the janitor
func (j *Janitor) Stop() {
	j.cron.Stop()
	j.logger.Info().Msg("Queue janitor stopped")
}

// RunNow performs one maintenance pass immediately
func (j *Janitor) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reclaimed, err := j.storage.ReclaimExpired(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("Lease reclaim failed")
	} else if reclaimed > 0 {
		j.logger.Info().
			Int("reclaimed", reclaimed).
			Msg("Reclaimed jobs with expired leases")
	}

	retentionDays := j.config.Queue.RetentionDays
	if retentionDays <= 0 {
		return
	}

	purged, err := j.storage.PurgeTerminal(ctx, time.Duration(retentionDays)*24*time.Hour)
	if err != nil {
		j.logger.Error().Err(err).Msg("Retention purge failed")
		return
	}
	if len(purged) == 0 {
		return
	}

	// A purged job's sink document goes with it
	for _, jobID := range purged {
		if err := j.reports.DeleteReport(ctx, jobID); err != nil {
			j.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to delete purged job's report")
		}
	}

	j.logger.Info().
		Int("purged", len(purged)).
		Int("retention_days", retentionDays).
		Msg("Purged terminal jobs past retention")
}
