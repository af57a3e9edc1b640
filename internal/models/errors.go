// -----------------------------------------------------------------------
// Pipeline error taxonomy
// Per-site and per-analyzer errors are recorded locally and never abort
// sibling work; only synthesis and total-acquisition failure are fatal
// to a job.
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when a job ID does not exist in storage.
var ErrJobNotFound = errors.New("job not found")

// ErrJobExists is returned by idempotent submission when the fingerprint
// already maps to a queued, active, or completed job.
var ErrJobExists = errors.New("job already exists")

// ErrNoJob is returned when a claim attempt finds the queue empty.
var ErrNoJob = errors.New("no queued jobs")

// ValidationError rejects a submission synchronously.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission: %s %s", e.Field, e.Reason)
}

// AcquisitionError records that both the primary and fallback acquisition
// strategies failed for one site. The site is excluded; the job continues.
type AcquisitionError struct {
	URL         string
	PrimaryErr  error
	FallbackErr error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed for %s: primary: %v, fallback: %v", e.URL, e.PrimaryErr, e.FallbackErr)
}

func (e *AcquisitionError) Unwrap() error { return e.FallbackErr }

// AnalysisError records that one specialist analyzer failed for one site.
// The analyzer's findings are marked absent; the job continues.
type AnalysisError struct {
	URL      string
	Analyzer string
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis failed for %s: %v", e.Analyzer, e.URL, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// SynthesisError means the cross-competitor synthesis call failed. Fatal:
// without synthesis there is no coherent report.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// TotalFailureError means every site's acquisition failed, leaving nothing
// to analyze. Fatal.
type TotalFailureError struct {
	Attempted int
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("all %d site acquisitions failed", e.Attempted)
}
