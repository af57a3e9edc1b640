package interfaces

import "context"

// AnalysisRequest is one schema-constrained call to the analysis
// capability. The provider must return JSON conforming to Schema.
type AnalysisRequest struct {
	// SystemPrompt frames the analyzer's focus
	SystemPrompt string

	// UserPrompt carries the narrow per-site signal payload
	UserPrompt string

	// Schema is a JSON Schema the response must conform to. Providers
	// that support constrained decoding apply it natively; others embed
	// it in the prompt and rely on boundary validation.
	Schema map[string]interface{}
}

// AnalysisProvider defines the interface for LLM-backed analysis calls.
// Implementations wrap a specific vendor API (Claude, Gemini) behind a
// uniform text-in/JSON-out contract.
type AnalysisProvider interface {
	// Analyze performs one completion call and returns the raw response
	// text. Callers parse and validate the JSON at the boundary.
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)

	// Name returns the provider identifier for logging
	Name() string

	// Close releases provider resources
	Close() error
}
