// -----------------------------------------------------------------------
// Job - durable record of one competitive-analysis request
// Keyed by fingerprint so that identical normalized submissions collapse
// onto the same job.
// -----------------------------------------------------------------------

package models

import "time"

// JobState represents the lifecycle state of a job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// IsTerminal returns true for completed and failed states.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job is the durable queue record for one analysis request. The request
// fields (brand, category, URLs) are an immutable snapshot taken at
// submission time; the runtime fields are mutated only by the worker that
// holds the lease, and by the janitor when a lease expires.
type Job struct {
	// ID is the request fingerprint (deterministic, see common.Fingerprint).
	ID string `badgerhold:"key" json:"id"`

	BrandName      string   `json:"brand_name"`
	Category       string   `json:"category"`
	CompetitorURLs []string `json:"competitor_urls"` // as submitted, unsorted

	State    JobState `badgerhold:"index" json:"state"`
	Progress int      `json:"progress"` // 0-100, monotonic non-decreasing
	Error    string   `json:"error,omitempty"`

	// Lease bookkeeping. A job in state active is exclusively owned by
	// WorkerID until LeaseExpiresAt; an expired lease makes the job
	// reclaimable.
	WorkerID       string     `json:"worker_id,omitempty"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobStatus is the poll-facing view of a job: state and progress always,
// result only when completed, error only when failed.
type JobStatus struct {
	ID       string       `json:"id"`
	State    JobState     `json:"state"`
	Progress int          `json:"progress"`
	Result   *FinalReport `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// JobStats aggregates queue counters by state.
type JobStats struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
