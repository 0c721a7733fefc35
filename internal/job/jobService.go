package job

import (
	"context"
	"sync/atomic"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/metrics"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("JobService")

// Service is the queue shared by the handlers (producers) and the worker pool (consumers).
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
	}
}

// Submit records the job as QUEUED and hands it to the workers. The send blocks when the buffer is full,
// which pushes back on callers instead of letting the queue grow without bound.
func (s *Service) Submit(ctx context.Context, j jobModel.Job) {
	j.Status = jobModel.JobStatusQueued
	// status polling must find the job even before a worker picks it up
	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		logger.Error("Failed to save queued job", "jobId", j.Id, "error", err)
	}

	metrics.IncrementJobsInQueue()
	s.JobChannel <- j

	//a new worker every RequestsPerNewWorkerCount requests, and one per ingestion or rebuild job
	//since those hold a worker for minutes. idle workers retire on their own
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType != jobModel.JobTypeQuery {
		s.signalDispatcher()
	}
}

func (s *Service) signalDispatcher() {
	if s.DispatcherChannel == nil {
		return
	}
	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
		// a signal is already pending
	}
}
