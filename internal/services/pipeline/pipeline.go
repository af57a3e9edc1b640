// -----------------------------------------------------------------------
// Analysis pipeline
// One job run: dedup -> acquisition fan-out -> specialist fan-out ->
// synthesis -> result sink. Per-site and per-analyzer failures are
// tolerated; only synthesis failure and total acquisition failure are
// fatal.
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/aemulus/internal/services/analysis"
	"github.com/ternarybob/arbor"
)

// Pipeline executes one job end to end
type Pipeline struct {
	config   *common.PipelineConfig
	acquirer interfaces.SiteAcquirer
	analysis *analysis.Service
	reports  interfaces.ReportStorage
	logger   arbor.ILogger
}

// NewPipeline wires the pipeline stages
func NewPipeline(config *common.PipelineConfig, acquirer interfaces.SiteAcquirer, analysisService *analysis.Service, reports interfaces.ReportStorage, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		config:   config,
		acquirer: acquirer,
		analysis: analysisService,
		reports:  reports,
		logger:   logger,
	}
}

// Run executes the job and returns its final report. onProgress receives
// monotonic progress values as stages finish. A nil report with a nil
// error never occurs: the job either completes with a report or fails.
func (p *Pipeline) Run(ctx context.Context, job *models.Job, onProgress func(int)) (*models.FinalReport, error) {
	logger := p.logger

	urls := common.DeduplicateByDomain(job.CompetitorURLs, p.config.MaxCompetitors, logger)
	if len(urls) == 0 {
		return nil, &models.TotalFailureError{Attempted: len(job.CompetitorURLs)}
	}

	tracker := NewProgressTracker(p.config.AcquisitionWeight, p.config.AnalysisWeight, len(urls))

	logger.Info().
		Str("job_id", job.ID).
		Int("submitted", len(job.CompetitorURLs)).
		Int("deduplicated", len(urls)).
		Msg("Starting site acquisition")

	// Acquisition fan-out, bounded by the domain cap
	snapshots := make([]*models.SiteSnapshot, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			snapshot, err := p.acquirer.Acquire(ctx, url)
			if err != nil {
				logger.Warn().Err(err).Str("job_id", job.ID).Str("url", url).Msg("Site excluded after failed acquisition")
			} else {
				snapshots[i] = snapshot
			}
			onProgress(tracker.SiteAcquired())
		}(i, url)
	}
	wg.Wait()

	// Collapse to the successful snapshots. Slots were written by URL
	// order, so completion order never reorders the report.
	var acquired []*models.SiteSnapshot
	for _, snapshot := range snapshots {
		if snapshot != nil {
			acquired = append(acquired, snapshot)
		}
	}
	if len(acquired) == 0 {
		return nil, &models.TotalFailureError{Attempted: len(urls)}
	}

	logger.Info().
		Str("job_id", job.ID).
		Int("acquired", len(acquired)).
		Int("attempted", len(urls)).
		Msg("Acquisition finished, starting specialist analysis")

	// Specialist fan-out per successfully acquired site
	tracker.BeginAnalysis(len(acquired))
	reports := make([]models.CompetitorReport, len(acquired))
	for i, snapshot := range acquired {
		wg.Add(1)
		go func(i int, snapshot *models.SiteSnapshot) {
			defer wg.Done()
			reports[i] = *p.analysis.AnalyzeSite(ctx, snapshot)
			onProgress(tracker.SiteAnalyzed())
		}(i, snapshot)
	}
	wg.Wait()

	analysisText, err := p.analysis.Synthesize(ctx, job.BrandName, job.Category, reports)
	if err != nil {
		return nil, err
	}

	report := &models.FinalReport{
		BrandName:           job.BrandName,
		Category:            job.Category,
		CompetitorsAnalyzed: reports,
		Analysis:            analysisText,
		GeneratedAt:         time.Now(),
	}

	// Hand the finished report to the result sink with the original
	// job inputs
	doc := &models.ReportDocument{
		JobID:          job.ID,
		BrandName:      job.BrandName,
		Category:       job.Category,
		CompetitorURLs: job.CompetitorURLs,
		Report:         report,
	}
	if err := p.reports.SaveReport(ctx, doc); err != nil {
		return nil, err
	}

	onProgress(tracker.Complete())
	logger.Info().Str("job_id", job.ID).Int("competitors", len(reports)).Msg("Job pipeline completed")
	return report, nil
}
