// -----------------------------------------------------------------------
// Application wiring
// Builds storage, LLM provider, acquisition, analysis pipeline, queue
// workers, and HTTP handlers from configuration, and owns shutdown
// ordering.
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/handlers"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/queue"
	"github.com/ternarybob/aemulus/internal/services/analysis"
	jobsvc "github.com/ternarybob/aemulus/internal/services/jobs"
	"github.com/ternarybob/aemulus/internal/services/llm"
	"github.com/ternarybob/aemulus/internal/services/pipeline"
	"github.com/ternarybob/aemulus/internal/services/scraper"
	"github.com/ternarybob/aemulus/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB            *badger.BadgerDB
	JobStorage    interfaces.JobStorage
	ReportStorage interfaces.ReportStorage

	// Analysis stack
	Provider interfaces.AnalysisProvider
	Acquirer *scraper.Acquirer
	Analysis *analysis.Service
	Pipeline *pipeline.Pipeline

	// Job execution
	JobService *jobsvc.Service
	WorkerPool *queue.WorkerPool
	Janitor    *queue.Janitor

	// HTTP handlers
	APIHandler *handlers.APIHandler
	JobHandler *handlers.JobHandler
}

// New builds the application from configuration and starts the worker
// pool and janitor
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := badger.NewBadgerDB(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	app.JobStorage = badger.NewJobStorage(db, logger)
	app.ReportStorage = badger.NewReportStorage(db, logger)

	provider, err := llm.NewProvider(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize analysis provider: %w", err)
	}
	app.Provider = provider

	app.Acquirer = scraper.NewAcquirer(&cfg.Scraper, provider, llm.ParseInto, logger)
	app.Analysis = analysis.NewService(provider, llm.ParseInto, logger)
	app.Pipeline = pipeline.NewPipeline(&cfg.Pipeline, app.Acquirer, app.Analysis, app.ReportStorage, logger)

	app.JobService = jobsvc.NewService(app.JobStorage, app.ReportStorage, logger)

	app.WorkerPool = queue.NewWorkerPool(cfg, app.JobStorage, app.Pipeline, logger)
	if err := app.WorkerPool.Start(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start worker pool: %w", err)
	}

	app.Janitor = queue.NewJanitor(cfg, app.JobStorage, app.ReportStorage, logger)
	if err := app.Janitor.Start(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start janitor: %w", err)
	}

	app.APIHandler = handlers.NewAPIHandler(app.JobStorage)
	app.JobHandler = handlers.NewJobHandler(app.JobService, logger)

	logger.Info().
		Str("provider", provider.Name()).
		Int("workers", cfg.Queue.Concurrency).
		Msg("Application initialization complete")

	return app, nil
}

// Close shuts components down in reverse dependency order. Workers stop
// before the provider and browser close so in-flight jobs finish first.
func (a *App) Close() error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}

	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop worker pool")
		}
	}

	if a.Acquirer != nil {
		if err := a.Acquirer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close acquirer")
		}
	}

	if a.Provider != nil {
		if err := a.Provider.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close analysis provider")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
