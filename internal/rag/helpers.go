package rag

import (
	"context"
	"net/http"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/rag/ingest"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

func (s *service) jobLogger(ctx context.Context, job jobModel.Job) *logger_i.Logger {
	log := s.logger.With("JobId", job.Id)
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		log = log.With("traceId", traceId)
	}
	return log
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "JobId", job.Id, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

func outcomeOf(r ingest.Result) jobModel.IngestOutcome {
	out := jobModel.IngestOutcome{
		DocumentId:     r.DocumentId,
		Status:         r.Status,
		ChunksTotal:    r.ChunksTotal,
		ChunksEmbedded: r.ChunksEmbedded,
		PassagesAdded:  r.PassagesAdded,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func countDone(outcomes []jobModel.IngestOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == commonModels.StatusDone {
			n++
		}
	}
	return n
}
