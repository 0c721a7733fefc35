package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/LibraryRAG/internal/data/store"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/job"
)

// MockRagService to track which jobs are executed
type MockRagService struct {
	ProcessedCount int32
	IngestCount    int32
	RebuildCount   int32
	OnIngest       func(j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	j.JobPayload.Answer = "answer"
	return j
}

func (m *MockRagService) IngestDocuments(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.IngestCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(j)
	}
	return j
}

func (m *MockRagService) RebuildIndex(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.RebuildCount, 1)
	return j
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	jobStore := store.InitInMemoryJobStore()
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
	}
	mockRag := &MockRagService{
		OnIngest: func(j jobModel.Job) jobModel.Job {
			j.Status = jobModel.JobStatusError
			j.Error = jobModel.JobError{Code: 500, Message: "INGESTION_FAILURE", Retry: true}
			return j
		},
	}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) >= 2 })
	})

	t.Run("Jobs are routed by type", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "q-1", JobType: jobModel.JobTypeQuery}
		jobSvc.JobChannel <- jobModel.Job{Id: "i-1", JobType: jobModel.JobTypeIngest}
		jobSvc.JobChannel <- jobModel.Job{Id: "b-1", JobType: jobModel.JobTypeBulk}
		jobSvc.JobChannel <- jobModel.Job{Id: "r-1", JobType: jobModel.JobTypeRebuild}

		waitFor(t, func() bool {
			return atomic.LoadInt32(&mockRag.ProcessedCount) == 1 &&
				atomic.LoadInt32(&mockRag.IngestCount) == 2 &&
				atomic.LoadInt32(&mockRag.RebuildCount) == 1
		})
	})

	t.Run("Final state is persisted", func(t *testing.T) {
		waitFor(t, func() bool {
			j, ok := jobStore.GetJob(context.Background(), "q-1")
			return ok && j.Status == jobModel.JobStatusComplete && j.JobPayload.Answer == "answer"
		})
		waitFor(t, func() bool {
			j, ok := jobStore.GetJob(context.Background(), "i-1")
			return ok && j.Status == jobModel.JobStatusError && j.Error.Message == "INGESTION_FAILURE"
		})
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	oldIdle := idleTimeout
	idleTimeout = 20 * time.Millisecond
	defer func() {
		idleTimeout = oldIdle
		atomic.StoreInt64(&minWorkerCount, 1)
	}()

	jobSvc := &job.Service{JobChannel: make(chan jobModel.Job)}
	InitServices(jobSvc, &MockRagService{})
	workerWaitGroup = &sync.WaitGroup{}
	stopWorkerChannel = make(chan bool)

	createWorker()
	waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) == 0 })
}

func TestWorker_KeepsMinimumAlive(t *testing.T) {
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	oldIdle := idleTimeout
	idleTimeout = 10 * time.Millisecond
	defer func() { idleTimeout = oldIdle }()

	jobSvc := &job.Service{JobChannel: make(chan jobModel.Job)}
	InitServices(jobSvc, &MockRagService{})
	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stop := make(chan bool)
	stopWorkerChannel = stop

	createWorker()
	time.Sleep(60 * time.Millisecond)
	if count := atomic.LoadInt64(&currentWorkerCount); count != 1 {
		t.Errorf("expected the last worker to stay, got %d", count)
	}
	close(stop)
	wg.Wait()
}
