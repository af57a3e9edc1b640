package pipeline

import "testing"

func TestProgressTwoPhaseSplit(t *testing.T) {
	tracker := NewProgressTracker(50, 50, 4)

	// Acquisition phase: 50/4 per attempted site
	if got := tracker.SiteAcquired(); got != 12 {
		t.Errorf("after 1 acquisition: %d", got)
	}
	tracker.SiteAcquired()
	tracker.SiteAcquired()
	if got := tracker.SiteAcquired(); got != 50 {
		t.Errorf("after all acquisitions: %d", got)
	}

	// Only 2 sites succeeded; analysis phase divides by successes
	tracker.BeginAnalysis(2)
	if got := tracker.SiteAnalyzed(); got != 75 {
		t.Errorf("after 1 analysis: %d", got)
	}
	if got := tracker.SiteAnalyzed(); got != 100 {
		t.Errorf("after all analyses: %d", got)
	}
}

func TestProgressFailedAcquisitionStillCounts(t *testing.T) {
	tracker := NewProgressTracker(50, 50, 2)

	// Attempted, not succeeded, drives the acquisition phase
	tracker.SiteAcquired()
	if got := tracker.SiteAcquired(); got != 50 {
		t.Errorf("expected 50 after both attempts, got %d", got)
	}
}

func TestProgressMonotonic(t *testing.T) {
	tracker := NewProgressTracker(50, 50, 3)

	last := 0
	for i := 0; i < 5; i++ {
		got := tracker.SiteAcquired()
		if got < last {
			t.Errorf("progress decreased from %d to %d", last, got)
		}
		last = got
	}
	if tracker.Current() > 50 {
		t.Errorf("acquisition phase exceeded its weight: %d", tracker.Current())
	}
}

func TestProgressCompleteForces100(t *testing.T) {
	tracker := NewProgressTracker(50, 50, 3)
	tracker.SiteAcquired()

	if got := tracker.Complete(); got != 100 {
		t.Errorf("Complete() = %d", got)
	}
	if got := tracker.Current(); got != 100 {
		t.Errorf("Current() after Complete = %d", got)
	}
}

func TestProgressWeightNormalization(t *testing.T) {
	// Weights that do not sum to 100 fall back to 50/50
	tracker := NewProgressTracker(90, 30, 1)
	if got := tracker.SiteAcquired(); got != 50 {
		t.Errorf("expected normalized 50/50 weights, got %d", got)
	}

	custom := NewProgressTracker(70, 30, 1)
	if got := custom.SiteAcquired(); got != 70 {
		t.Errorf("expected custom 70/30 weights honored, got %d", got)
	}
}
