package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/aemulus/internal/interfaces"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// memoryJobStorage is an in-memory JobStorage for gateway tests
type memoryJobStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newMemoryJobStorage() *memoryJobStorage {
	return &memoryJobStorage{jobs: make(map[string]*models.Job)}
}

func (m *memoryJobStorage) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return models.ErrJobExists
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, models.ErrJobNotFound
}

func (m *memoryJobStorage) ClaimJob(ctx context.Context, workerID string, lease time.Duration) (*models.Job, error) {
	return nil, models.ErrNoJob
}

func (m *memoryJobStorage) ExtendLease(ctx context.Context, id, workerID string, lease time.Duration) error {
	return nil
}

func (m *memoryJobStorage) UpdateProgress(ctx context.Context, id string, progress int) error {
	return nil
}

func (m *memoryJobStorage) CompleteJob(ctx context.Context, id string, state models.JobState, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.State = state
		job.Error = errMsg
	}
	return nil
}

func (m *memoryJobStorage) RequeueFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.ErrJobNotFound
	}
	if job.State != models.JobStateFailed {
		return errors.New("not failed")
	}
	job.State = models.JobStateQueued
	job.Progress = 0
	job.Error = ""
	return nil
}

func (m *memoryJobStorage) ReclaimExpired(ctx context.Context) (int, error) { return 0, nil }

func (m *memoryJobStorage) PurgeTerminal(ctx context.Context, olderThan time.Duration) ([]string, error) {
	return nil, nil
}

func (m *memoryJobStorage) ListJobs(ctx context.Context, state models.JobState, limit int) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Job
	for _, job := range m.jobs {
		if state == "" || job.State == state {
			copied := *job
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryJobStorage) GetStats(ctx context.Context) (*models.JobStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.JobStats{Total: len(m.jobs)}, nil
}

// memoryReports is an in-memory ReportStorage
type memoryReports struct {
	mu   sync.Mutex
	docs map[string]*models.ReportDocument
}

func newMemoryReports() *memoryReports {
	return &memoryReports{docs: make(map[string]*models.ReportDocument)}
}

func (m *memoryReports) SaveReport(ctx context.Context, doc *models.ReportDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.JobID] = doc
	return nil
}

func (m *memoryReports) GetReport(ctx context.Context, jobID string) (*models.ReportDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.docs[jobID]; ok {
		return doc, nil
	}
	return nil, models.ErrJobNotFound
}

func (m *memoryReports) DeleteReport(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, jobID)
	return nil
}

var _ interfaces.JobStorage = (*memoryJobStorage)(nil)
var _ interfaces.ReportStorage = (*memoryReports)(nil)

func newTestService() (*Service, *memoryJobStorage, *memoryReports) {
	storage := newMemoryJobStorage()
	reports := newMemoryReports()
	return NewService(storage, reports, arbor.NewLogger()), storage, reports
}

func TestSubmitValidation(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *SubmitRequest
	}{
		{"empty brand", &SubmitRequest{CompetitorURLs: []string{"https://a.com"}}},
		{"nil urls", &SubmitRequest{BrandName: "Acme"}},
		{"empty urls", &SubmitRequest{BrandName: "Acme", CompetitorURLs: []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Submit(ctx, tt.req)
			var valErr *models.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSubmitIdempotent(t *testing.T) {
	service, _, _ := newTestService()
	ctx := context.Background()

	req := &SubmitRequest{BrandName: "Acme", Category: "SaaS", CompetitorURLs: []string{"https://a.com", "https://b.com"}}
	first, err := service.Submit(ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	// Same inputs, permuted URL order: same job
	permuted := &SubmitRequest{BrandName: "Acme", Category: "SaaS", CompetitorURLs: []string{"https://b.com", "https://a.com"}}
	second, err := service.Submit(ctx, permuted)
	if err != nil {
		t.Fatal(err)
	}
	if first.JobID != second.JobID {
		t.Errorf("expected same job ID, got %s and %s", first.JobID, second.JobID)
	}

	jobs, _ := service.List(ctx, "", 0)
	if len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}
}

func TestSubmitCategoryDefault(t *testing.T) {
	service, storage, _ := newTestService()
	ctx := context.Background()

	resp, err := service.Submit(ctx, &SubmitRequest{BrandName: "Acme", CompetitorURLs: []string{"https://a.com"}})
	if err != nil {
		t.Fatal(err)
	}

	job, err := storage.GetJob(ctx, resp.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Category != "General" {
		t.Errorf("expected General category, got %s", job.Category)
	}

	// Explicit General yields the same fingerprint
	resp2, err := service.Submit(ctx, &SubmitRequest{BrandName: "Acme", Category: "General", CompetitorURLs: []string{"https://a.com"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.JobID != resp2.JobID {
		t.Error("default and explicit General must collapse to one job")
	}
}

func TestSubmitRequeuesFailedJob(t *testing.T) {
	service, storage, _ := newTestService()
	ctx := context.Background()

	req := &SubmitRequest{BrandName: "Acme", CompetitorURLs: []string{"https://a.com"}}
	resp, err := service.Submit(ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	if err := storage.CompleteJob(ctx, resp.JobID, models.JobStateFailed, "all acquisitions failed"); err != nil {
		t.Fatal(err)
	}

	resp2, err := service.Submit(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp2.JobID != resp.JobID {
		t.Errorf("expected same job ID on resubmission")
	}

	job, _ := storage.GetJob(ctx, resp.JobID)
	if job.State != models.JobStateQueued {
		t.Errorf("expected failed job requeued, got %s", job.State)
	}
}

func TestPollStates(t *testing.T) {
	service, storage, reports := newTestService()
	ctx := context.Background()

	resp, err := service.Submit(ctx, &SubmitRequest{BrandName: "Acme", CompetitorURLs: []string{"https://a.com"}})
	if err != nil {
		t.Fatal(err)
	}

	status, err := service.Poll(ctx, resp.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != models.JobStateQueued || status.Result != nil || status.Error != "" {
		t.Errorf("queued poll: %+v", status)
	}

	// Completed: result attached from the sink
	report := &models.FinalReport{BrandName: "Acme", Analysis: "done"}
	if err := reports.SaveReport(ctx, &models.ReportDocument{JobID: resp.JobID, Report: report}); err != nil {
		t.Fatal(err)
	}
	if err := storage.CompleteJob(ctx, resp.JobID, models.JobStateCompleted, ""); err != nil {
		t.Fatal(err)
	}
	status, err = service.Poll(ctx, resp.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Result == nil || status.Result.Analysis != "done" {
		t.Errorf("completed poll missing result: %+v", status)
	}

	// Failed: error reason only
	if err := storage.CompleteJob(ctx, resp.JobID, models.JobStateFailed, "synthesis failed"); err != nil {
		t.Fatal(err)
	}
	status, err = service.Poll(ctx, resp.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Error != "synthesis failed" || status.Result != nil {
		t.Errorf("failed poll: %+v", status)
	}
}

func TestPollUnknownJob(t *testing.T) {
	service, _, _ := newTestService()

	_, err := service.Poll(context.Background(), "missing")
	if !errors.Is(err, models.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}
