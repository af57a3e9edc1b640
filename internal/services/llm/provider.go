// -----------------------------------------------------------------------
// Analysis provider factory
// Selects the configured vendor (Claude or Gemini) behind the uniform
// AnalysisProvider contract.
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewProvider creates the analysis provider named by config.LLM.DefaultProvider
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.AnalysisProvider, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeService(&config.Claude, logger)
	case common.LLMProviderGemini, "":
		return NewGeminiService(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", config.LLM.DefaultProvider)
	}
}
