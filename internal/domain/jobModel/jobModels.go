package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	RAGCall          InternalStatus = "RAG"
	ClassifyCall     InternalStatus = "Classify"
	CatalogCall      InternalStatus = "Catalog"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	MemoryCall       InternalStatus = "Memory"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	RebuildInit      InternalStatus = "RebuildInit"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery   JobType = "Query"
	JobTypeIngest  JobType = "Ingest"
	JobTypeBulk    JobType = "BulkIngest"
	JobTypeRebuild JobType = "RebuildIndex"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question     string                  `json:"question,omitempty"`
	UploadedText string                  `json:"uploaded_text,omitempty"`
	Answer       string                  `json:"answer,omitempty"`
	Intent       string                  `json:"intent,omitempty"`
	SourceTag    commonModels.SourceTag  `json:"source_tag,omitempty"`
	Sources      []commonModels.Citation `json:"sources,omitempty"`

	DocumentIds    []string        `json:"document_ids,omitempty"`
	IngestResults  []IngestOutcome `json:"ingest_results,omitempty"`
	IngestFileName string          `json:"ingest_file_name,omitempty"`
	CompactOnly    bool            `json:"compact_only,omitempty"`
}

// IngestOutcome is the per-document result of an ingestion or rebuild job.
type IngestOutcome struct {
	DocumentId     string                 `json:"document_id"`
	Status         commonModels.DocStatus `json:"status"`
	ChunksTotal    int                    `json:"chunks_total"`
	ChunksEmbedded int                    `json:"chunks_embedded"`
	PassagesAdded  int                    `json:"passages_added"`
	Error          string                 `json:"error,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
