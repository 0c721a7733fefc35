package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/LibraryRAG/internal/api"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
)

func ToInitJobResponse(job jobModel.Job) api.InitJobResponse {
	return api.InitJobResponse{
		Id:          job.Id,
		ChatId:      job.ChatId,
		StatusURL:   fmt.Sprintf("status/%s", job.Id), //pass "status/job.Id"
		DocumentIds: job.JobPayload.DocumentIds,
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		Step:                string(job.CurrentStep),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
		IngestResults:       toIngestResults(job.JobPayload.IngestResults),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		JobType:   string(job.JobType),
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	sources := make([]api.Citation, 0, len(ragData.Sources))
	for _, c := range ragData.Sources {
		sources = append(sources, api.Citation{Title: c.Title, Year: c.Year})
	}
	return &api.RAGResponse{
		Question:  ragData.Question,
		Answer:    ragData.Answer,
		SourceTag: string(ragData.SourceTag),
		Intent:    ragData.Intent,
		Sources:   sources,
	}
}

func toIngestResults(outcomes []jobModel.IngestOutcome) []api.IngestResult {
	if len(outcomes) == 0 {
		return nil
	}
	out := make([]api.IngestResult, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, api.IngestResult{
			DocumentId:     o.DocumentId,
			Status:         string(o.Status),
			ChunksTotal:    o.ChunksTotal,
			ChunksEmbedded: o.ChunksEmbedded,
			PassagesAdded:  o.PassagesAdded,
			Error:          o.Error,
		})
	}
	return out
}

func ToDocument(doc commonModels.DocumentEntity) api.Document {
	return api.Document{
		Id:         doc.Id,
		Title:      doc.Title,
		Authors:    doc.Authors,
		Program:    doc.Program,
		Year:       doc.Year,
		Abstract:   doc.Abstract,
		Status:     string(doc.Status),
		FileURL:    catalog.FileLink(doc),
		UploadedAt: doc.UploadedAt,
	}
}

func ToDocuments(docs []commonModels.DocumentEntity) []api.Document {
	out := make([]api.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocument(d))
	}
	return out
}

func ToDocumentPage(page catalog.Page) api.DocumentPage {
	return api.DocumentPage{
		Documents: ToDocuments(page.Documents),
		Total:     page.Total,
		Page:      page.Page,
		PageSize:  page.PageSize,
	}
}

func ToIndexStats(s vectorDB.IndexStats) api.IndexStats {
	return api.IndexStats{
		Version:   s.Version,
		Dimension: s.Dimension,
		Vectors:   s.Vectors,
		Live:      s.Live,
		Orphaned:  s.Orphaned,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
