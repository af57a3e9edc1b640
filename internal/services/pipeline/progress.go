package pipeline

import "sync"

// ProgressTracker implements the two-phase weighted progress model:
// acquisition covers the first weighted share, analysis the second.
// Acquisition credit accrues per attempted site (success or failure);
// analysis credit accrues per successfully analyzed site. Values are
// monotonic and clamped to 100.
type ProgressTracker struct {
	mu sync.Mutex

	acquisitionWeight int
	analysisWeight    int

	totalSites      int
	successfulSites int

	acquired int
	analyzed int
	current  int
}

// NewProgressTracker creates a tracker for one job run. Weights that do
// not sum to 100 are normalized to the default 50/50 split.
func NewProgressTracker(acquisitionWeight, analysisWeight, totalSites int) *ProgressTracker {
	if acquisitionWeight <= 0 || analysisWeight <= 0 || acquisitionWeight+analysisWeight != 100 {
		acquisitionWeight, analysisWeight = 50, 50
	}
	return &ProgressTracker{
		acquisitionWeight: acquisitionWeight,
		analysisWeight:    analysisWeight,
		totalSites:        totalSites,
	}
}

// SiteAcquired records one finished acquisition attempt and returns the
// new progress value.
func (t *ProgressTracker) SiteAcquired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalSites > 0 && t.acquired < t.totalSites {
		t.acquired++
	}
	return t.recompute()
}

// BeginAnalysis fixes the successful-site count that divides the
// analysis phase.
func (t *ProgressTracker) BeginAnalysis(successfulSites int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successfulSites = successfulSites
}

// SiteAnalyzed records one finished specialist stage and returns the new
// progress value.
func (t *ProgressTracker) SiteAnalyzed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.successfulSites > 0 && t.analyzed < t.successfulSites {
		t.analyzed++
	}
	return t.recompute()
}

// Complete forces progress to 100 (synthesis done, or job terminal).
func (t *ProgressTracker) Complete() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = 100
	return t.current
}

// Current returns the latest progress value
func (t *ProgressTracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// recompute derives progress from phase counters, never decreasing
func (t *ProgressTracker) recompute() int {
	value := 0
	if t.totalSites > 0 {
		value += t.acquisitionWeight * t.acquired / t.totalSites
	}
	if t.successfulSites > 0 {
		value += t.analysisWeight * t.analyzed / t.successfulSites
	}
	if value > 100 {
		value = 100
	}
	if value > t.current {
		t.current = value
	}
	return t.current
}
