// -----------------------------------------------------------------------
// Specialist analysis stage
// Fans out the applicable analyzers for one site concurrently; a failed
// analyzer is recorded, never fatal to its siblings.
// -----------------------------------------------------------------------

package analysis

import (
	"context"
	"sync"

	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// findings is the parsed analyzer response
type findings struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Service runs the specialist and synthesis stages against the analysis
// provider.
type Service struct {
	provider  interfaces.AnalysisProvider
	parseJSON func(response string, out interface{}) error
	logger    arbor.ILogger
}

// NewService creates the analysis stage service. parseJSON performs the
// strict boundary validation of provider responses.
func NewService(provider interfaces.AnalysisProvider, parseJSON func(string, interface{}) error, logger arbor.ILogger) *Service {
	return &Service{
		provider:  provider,
		parseJSON: parseJSON,
		logger:    logger,
	}
}

// AnalyzeSite runs the applicable analyzers for one snapshot
// concurrently and collects their findings into a CompetitorReport. The
// report is complete once every analyzer has succeeded or recorded a
// failure.
func (s *Service) AnalyzeSite(ctx context.Context, snapshot *models.SiteSnapshot) *models.CompetitorReport {
	kinds := []models.AnalyzerKind{models.AnalyzerTechnical, models.AnalyzerContent}
	if snapshot.Visual != nil {
		kinds = append(kinds, models.AnalyzerVisual)
	}

	results := make([]models.SpecialistReport, len(kinds))
	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind models.AnalyzerKind) {
			defer wg.Done()
			results[i] = s.runAnalyzer(ctx, kind, snapshot)
		}(i, kind)
	}
	wg.Wait()

	return &models.CompetitorReport{
		URL:         snapshot.URL,
		Snapshot:    snapshot,
		Specialists: results,
	}
}

// runAnalyzer performs one schema-constrained analyzer call. Any failure
// (call error or malformed response) is an explicit per-analyzer failure
// record.
func (s *Service) runAnalyzer(ctx context.Context, kind models.AnalyzerKind, snapshot *models.SiteSnapshot) models.SpecialistReport {
	report := models.SpecialistReport{Analyzer: kind}

	system, user, err := buildAnalyzerPrompt(kind, snapshot)
	if err != nil {
		report.Failed = true
		report.Error = err.Error()
		return report
	}

	response, err := s.provider.Analyze(ctx, interfaces.AnalysisRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Schema:       findingsSchema,
	})
	if err != nil {
		analysisErr := &models.AnalysisError{URL: snapshot.URL, Analyzer: string(kind), Err: err}
		s.logger.Warn().Err(analysisErr).Msg("Specialist analyzer failed")
		report.Failed = true
		report.Error = err.Error()
		return report
	}

	var parsed findings
	if err := s.parseJSON(response, &parsed); err != nil {
		analysisErr := &models.AnalysisError{URL: snapshot.URL, Analyzer: string(kind), Err: err}
		s.logger.Warn().Err(analysisErr).Msg("Specialist response malformed")
		report.Failed = true
		report.Error = err.Error()
		return report
	}

	report.Strengths = parsed.Strengths
	report.Weaknesses = parsed.Weaknesses
	return report
}
