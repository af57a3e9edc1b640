package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
)

var (
	errNoReports      = errors.New("no competitor reports to synthesize")
	errEmptySynthesis = errors.New("synthesis returned empty analysis")
)

// Synthesize produces the single narrative analysis across all
// competitor reports. A failure here is fatal to the job: without
// synthesis there is no coherent report.
func (s *Service) Synthesize(ctx context.Context, brandName, category string, reports []models.CompetitorReport) (string, error) {
	if len(reports) == 0 {
		return "", &models.SynthesisError{Err: errNoReports}
	}

	response, err := s.provider.Analyze(ctx, interfaces.AnalysisRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   buildSynthesisPrompt(brandName, category, reports),
	})
	if err != nil {
		return "", &models.SynthesisError{Err: err}
	}

	analysis := strings.TrimSpace(response)
	if analysis == "" {
		return "", &models.SynthesisError{Err: errEmptySynthesis}
	}
	return analysis, nil
}
