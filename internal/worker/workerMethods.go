package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	jobmodel "github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/metrics"
)

func jobTimeout(jobType jobmodel.JobType) time.Duration {
	switch jobType {
	case jobmodel.JobTypeIngest, jobmodel.JobTypeBulk:
		return config.IngestJobTimeout
	case jobmodel.JobTypeRebuild:
		return config.RebuildJobTimeout
	default:
		return config.QueryJobTimeout
	}
}

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()
	jobLogger := logger.With("traceId", job.TraceId, "jobId", job.Id, "jobType", job.JobType)
	jobLogger.Debug("Processing job")

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	switch job.JobType {
	case jobmodel.JobTypeIngest, jobmodel.JobTypeBulk:
		job = _ragService.IngestDocuments(ctx, job)
	case jobmodel.JobTypeRebuild:
		job = _ragService.RebuildIndex(ctx, job)
	default:
		job = _ragService.ProcessRequest(ctx, job)
	}

	job.EndTime = time.Now()
	finalStatus := jobmodel.JobStatusComplete
	if job.Status == jobmodel.JobStatusError {
		finalStatus = jobmodel.JobStatusError
		jobLogger.Warn("Job finished with error", "message", job.Error.Message)
	}
	// the job context may have expired, the final state still has to land
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), config.CatalogCallTimeout)
	defer saveCancel()
	saveJobState(saveCtx, job, finalStatus)
	job.Status = finalStatus
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	count := atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job state", "jobId", job.Id, "err", err)
	}
}
