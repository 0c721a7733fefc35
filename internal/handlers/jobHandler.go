package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/api"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/job"
	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
	library rag.Library
	events  *notify.Broker
}

func InitJobHandler(jobService *job.Service, library rag.Library, events *notify.Broker) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, library: library, events: events}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(ctx context.Context, newJob newJobData) jobModel.Job {
	logJH.Info("To create new job", "traceId", newJob.traceId, "jobId", newJob.id, "jobType", newJob.jobType)
	return handlerInstance.pushToJobChannel(ctx, newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug(" Validating chat id ", "chatId", chatReq.ChatID)
	if chatReq.Message == "" {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	exists, err := handlerInstance.library.SessionExists(ctx, chatReq.ChatID)
	if err != nil {
		logJH.Error("Session lookup failed", "chatId", chatReq.ChatID, "error", err)
		return false
	}
	return exists
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData) jobModel.Job {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.JobType = newJob.jobType

	switch newJob.jobType {
	case jobModel.JobTypeIngest, jobModel.JobTypeBulk:
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.DocumentIds = newJob.documentIds
		_job.JobPayload.IngestFileName = newJob.documentName
	case jobModel.JobTypeRebuild:
		_job.CurrentStep = jobModel.RebuildInit
		_job.JobPayload.CompactOnly = newJob.compactOnly
	default:
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.JobPayload.Question = newJob.message
		_job.JobPayload.UploadedText = newJob.uploadedText
		_job.CurrentStep = jobModel.UserQueryInit
	}

	h.service.Submit(ctx, _job)
	logJH.Info("Created new job", "jobId", _job.Id)
	_job.Status = jobModel.JobStatusQueued
	return _job
}
