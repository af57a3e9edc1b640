package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/aemulus/internal/common"
	"github.com/ternarybob/aemulus/internal/models"
	"github.com/ternarybob/arbor"
)

// queueStorage is an in-memory JobStorage driving the pool in tests
type queueStorage struct {
	mu          sync.Mutex
	queued      []*models.Job
	completed   map[string]models.JobState
	failReasons map[string]string
	progress    map[string][]int
	leaseCalls  int
	leaseErr    error
	reclaimed   int
	purged      int
	purgeIDs    []string
}

func newQueueStorage() *queueStorage {
	return &queueStorage{
		completed:   make(map[string]models.JobState),
		failReasons: make(map[string]string),
		progress:    make(map[string][]int),
	}
}

func (s *queueStorage) enqueue(job *models.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, job)
}

func (s *queueStorage) CreateJob(ctx context.Context, job *models.Job) error { return nil }

func (s *queueStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return nil, models.ErrJobNotFound
}

func (s *queueStorage) ClaimJob(ctx context.Context, workerID string, lease time.Duration) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queued) == 0 {
		return nil, models.ErrNoJob
	}
	job := s.queued[0]
	s.queued = s.queued[1:]
	job.State = models.JobStateActive
	job.WorkerID = workerID
	return job, nil
}

func (s *queueStorage) ExtendLease(ctx context.Context, id, workerID string, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaseCalls++
	return s.leaseErr
}

func (s *queueStorage) UpdateProgress(ctx context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[id] = append(s.progress[id], progress)
	return nil
}

func (s *queueStorage) CompleteJob(ctx context.Context, id string, state models.JobState, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[id] = state
	if errMsg != "" {
		s.failReasons[id] = errMsg
	}
	return nil
}

func (s *queueStorage) RequeueFailed(ctx context.Context, id string) error { return nil }

func (s *queueStorage) ReclaimExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaimed++
	return 1, nil
}

func (s *queueStorage) PurgeTerminal(ctx context.Context, olderThan time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged++
	return s.purgeIDs, nil
}

func (s *queueStorage) ListJobs(ctx context.Context, state models.JobState, limit int) ([]*models.Job, error) {
	return nil, nil
}

func (s *queueStorage) GetStats(ctx context.Context) (*models.JobStats, error) {
	return &models.JobStats{}, nil
}

func (s *queueStorage) stateOf(id string) (models.JobState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.completed[id]
	return state, ok
}

// fakeRunner scripts pipeline outcomes per job ID
type fakeRunner struct {
	mu      sync.Mutex
	errs    map[string]error
	block   time.Duration
	done    chan string
	ctxErrs map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		errs:    make(map[string]error),
		done:    make(chan string, 16),
		ctxErrs: make(map[string]error),
	}
}

func (r *fakeRunner) Run(ctx context.Context, job *models.Job, onProgress func(int)) (*models.FinalReport, error) {
	onProgress(50)
	onProgress(100)

	if r.block > 0 {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			r.ctxErrs[job.ID] = ctx.Err()
			r.mu.Unlock()
			r.done <- job.ID
			return nil, ctx.Err()
		case <-time.After(r.block):
		}
	}

	r.mu.Lock()
	err := r.errs[job.ID]
	r.mu.Unlock()
	r.done <- job.ID
	if err != nil {
		return nil, err
	}
	return &models.FinalReport{BrandName: job.BrandName}, nil
}

func testQueueConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Queue.PollInterval = "10ms"
	cfg.Queue.Concurrency = 2
	cfg.Queue.HeartbeatEvery = "20ms"
	cfg.Queue.LeaseDuration = "1m"
	cfg.Queue.MaxStartsPerMin = 600
	return cfg
}

func waitForJob(t *testing.T, runner *fakeRunner, id string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-runner.done:
			if got == id {
				return
			}
		case <-deadline:
			t.Fatalf("job %s never ran", id)
		}
	}
}

func TestWorkerPoolCompletesJob(t *testing.T) {
	storage := newQueueStorage()
	runner := newFakeRunner()
	pool := NewWorkerPool(testQueueConfig(), storage, runner, arbor.NewLogger())

	storage.enqueue(&models.Job{ID: "job-1", BrandName: "Acme", State: models.JobStateQueued})

	if err := pool.Start(); err != nil {
		t.Fatal(err)
	}
	defer pool.Stop()

	waitForJob(t, runner, "job-1")
	waitForState(t, storage, "job-1", models.JobStateCompleted)

	storage.mu.Lock()
	progress := storage.progress["job-1"]
	storage.mu.Unlock()
	if len(progress) != 2 || progress[0] != 50 || progress[1] != 100 {
		t.Errorf("expected progress [50 100], got %v", progress)
	}
}

func TestWorkerPoolMarksFailure(t *testing.T) {
	storage := newQueueStorage()
	runner := newFakeRunner()
	runner.errs["job-1"] = &models.TotalFailureError{Attempted: 3}
	pool := NewWorkerPool(testQueueConfig(), storage, runner, arbor.NewLogger())

	storage.enqueue(&models.Job{ID: "job-1", State: models.JobStateQueued})

	if err := pool.Start(); err != nil {
		t.Fatal(err)
	}
	defer pool.Stop()

	waitForJob(t, runner, "job-1")
	waitForState(t, storage, "job-1", models.JobStateFailed)

	storage.mu.Lock()
	reason := storage.failReasons["job-1"]
	storage.mu.Unlock()
	if reason == "" {
		t.Error("expected a failure reason recorded")
	}
}

func TestWorkerPoolHeartbeatExtendsLease(t *testing.T) {
	storage := newQueueStorage()
	runner := newFakeRunner()
	runner.block = 150 * time.Millisecond
	pool := NewWorkerPool(testQueueConfig(), storage, runner, arbor.NewLogger())

	storage.enqueue(&models.Job{ID: "job-1", State: models.JobStateQueued})

	if err := pool.Start(); err != nil {
		t.Fatal(err)
	}
	defer pool.Stop()

	waitForJob(t, runner, "job-1")

	storage.mu.Lock()
	calls := storage.leaseCalls
	storage.mu.Unlock()
	if calls == 0 {
		t.Error("expected at least one lease extension during a long job")
	}
}

func TestWorkerPoolAbandonsJobOnLostLease(t *testing.T) {
	storage := newQueueStorage()
	storage.leaseErr = errors.New("lease owned by another worker")
	runner := newFakeRunner()
	runner.block = 2 * time.Second
	pool := NewWorkerPool(testQueueConfig(), storage, runner, arbor.NewLogger())

	storage.enqueue(&models.Job{ID: "job-1", State: models.JobStateQueued})

	if err := pool.Start(); err != nil {
		t.Fatal(err)
	}
	defer pool.Stop()

	waitForJob(t, runner, "job-1")

	runner.mu.Lock()
	ctxErr := runner.ctxErrs["job-1"]
	runner.mu.Unlock()
	if !errors.Is(ctxErr, context.Canceled) {
		t.Errorf("expected job context cancelled on lost lease, got %v", ctxErr)
	}
}

func TestWorkerPoolRateLimitsStarts(t *testing.T) {
	storage := newQueueStorage()
	runner := newFakeRunner()
	cfg := testQueueConfig()
	cfg.Queue.MaxStartsPerMin = 1
	pool := NewWorkerPool(cfg, storage, runner, arbor.NewLogger())

	storage.enqueue(&models.Job{ID: "job-1", State: models.JobStateQueued})
	storage.enqueue(&models.Job{ID: "job-2", State: models.JobStateQueued})

	if err := pool.Start(); err != nil {
		t.Fatal(err)
	}
	defer pool.Stop()

	waitForJob(t, runner, "job-1")

	// The second start would need another window slot a minute out
	time.Sleep(100 * time.Millisecond)
	if _, done := storage.stateOf("job-2"); done {
		t.Error("second job started inside the rate window")
	}
	select {
	case id := <-runner.done:
		t.Errorf("job %s ran inside the rate window", id)
	default:
	}
}

func waitForState(t *testing.T, storage *queueStorage, id string, want models.JobState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := storage.stateOf(id); ok {
			if state != want {
				t.Fatalf("job %s finished as %s, want %s", id, state, want)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
}

// sinkRecorder tracks report deletions for janitor tests
type sinkRecorder struct {
	mu      sync.Mutex
	deleted []string
}

func (s *sinkRecorder) SaveReport(ctx context.Context, doc *models.ReportDocument) error {
	return nil
}

func (s *sinkRecorder) GetReport(ctx context.Context, jobID string) (*models.ReportDocument, error) {
	return nil, models.ErrJobNotFound
}

func (s *sinkRecorder) DeleteReport(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, jobID)
	return nil
}

func TestJanitorRunNow(t *testing.T) {
	storage := newQueueStorage()
	storage.purgeIDs = []string{"fp-done", "fp-dead"}
	sink := &sinkRecorder{}
	cfg := testQueueConfig()
	cfg.Queue.RetentionDays = 7
	janitor := NewJanitor(cfg, storage, sink, arbor.NewLogger())

	janitor.RunNow()

	storage.mu.Lock()
	reclaimed, purged := storage.reclaimed, storage.purged
	storage.mu.Unlock()
	if reclaimed != 1 {
		t.Errorf("expected one reclaim pass, got %d", reclaimed)
	}
	if purged != 1 {
		t.Errorf("expected one purge pass, got %d", purged)
	}

	// Purged jobs take their sink documents with them
	sink.mu.Lock()
	deleted := append([]string(nil), sink.deleted...)
	sink.mu.Unlock()
	if len(deleted) != 2 || deleted[0] != "fp-done" || deleted[1] != "fp-dead" {
		t.Errorf("expected sink documents deleted for purged jobs, got %v", deleted)
	}
}

func TestJanitorSkipsPurgeWithoutRetention(t *testing.T) {
	storage := newQueueStorage()
	cfg := testQueueConfig()
	cfg.Queue.RetentionDays = 0
	janitor := NewJanitor(cfg, storage, &sinkRecorder{}, arbor.NewLogger())

	janitor.RunNow()

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if storage.purged != 0 {
		t.Errorf("expected purge skipped without retention, got %d", storage.purged)
	}
}
