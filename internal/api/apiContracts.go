package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id,omitempty" example:"chat_550"`
	JobType   string            `json:"job_type,omitempty" example:"Query"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Citation struct {
	Title string `json:"title" example:"Solar Dryers for Rural Farms"`
	Year  int    `json:"year" example:"2019"`
}

type RAGResponse struct {
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	SourceTag string     `json:"source_tag" example:"vector-index"`
	Intent    string     `json:"intent,omitempty" example:"TopicSearch"`
	Sources   []Citation `json:"sources"`
}

type IngestResult struct {
	DocumentId     string `json:"document_id"`
	Status         string `json:"status" example:"done"`
	ChunksTotal    int    `json:"chunks_total"`
	ChunksEmbedded int    `json:"chunks_embedded"`
	PassagesAdded  int    `json:"passages_added"`
	Error          string `json:"error,omitempty"`
}

type Result struct {
	Status              string         `json:"status"`
	Step                string         `json:"step,omitempty"`
	RAGExternalResponse *RAGResponse   `json:"rag_response,omitempty"`
	IngestResults       []IngestResult `json:"ingest_results,omitempty"`
}

type InitJobResponse struct {
	Id          string   `json:"id"`
	ChatId      string   `json:"chat_id,omitempty"`
	StatusURL   string   `json:"status_url"`
	DocumentIds []string `json:"document_ids,omitempty"`
}

type Document struct {
	Id         string    `json:"id"`
	Title      string    `json:"title"`
	Authors    string    `json:"authors"`
	Program    string    `json:"program"`
	Year       int       `json:"year"`
	Abstract   string    `json:"abstract,omitempty"`
	Status     string    `json:"status" example:"done"`
	FileURL    string    `json:"file_url,omitempty" example:"/documents/5b1f/file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

type IndexStats struct {
	Version   int64 `json:"version"`
	Dimension int   `json:"dimension"`
	Vectors   int   `json:"vectors"`
	Live      int   `json:"live"`
	Orphaned  int   `json:"orphaned"`
}

type Health struct {
	Status       string `json:"status"`
	QueuedJobs   int    `json:"queued_jobs"`
	IndexVersion int64  `json:"index_version,omitempty"`
	Index        string `json:"index_error,omitempty"`
}

// requests---------------------

type ChatRequest struct {
	Message      string `json:"message" validate:"required" `
	ChatID       string `json:"chatID,omitempty" `
	UploadedText string `json:"uploaded_text,omitempty"`
}

type RebuildRequest struct {
	CompactOnly bool `json:"compact_only,omitempty"`
}
