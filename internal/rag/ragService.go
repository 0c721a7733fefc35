package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/metrics"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/internal/rag/ingest"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/memory"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/internal/rag/resolver"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

/*
Service is what the workers see and Library is what the handlers see. Both are backed by the
same private struct, which holds the catalog, storage, index and model clients; nothing outside this
package reaches those directly. Tests swap any of them through Dependencies.
*/

// Service Worker will only call this service - it doesn't need to know the catalog, llm or the vector index
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocuments(ctx context.Context, job jobModel.Job) jobModel.Job
	RebuildIndex(ctx context.Context, job jobModel.Job) jobModel.Job
}

type Dependencies struct {
	Catalog    catalog.Catalog
	Storage    objectStore.Provider
	Index      vectorDB.Index
	Embedder   embedding.Embedder
	Chat       llm.Provider
	Classifier llm.Classifier
	Memory     *memory.Memory
	Publisher  notify.Publisher
	// Pacing is the gap between documents of a bulk job; zero means no pacing.
	Pacing time.Duration
}

type service struct {
	catalog  catalog.Catalog
	storage  objectStore.Provider
	index    vectorDB.Index
	memory   *memory.Memory
	resolver *resolver.Resolver
	pipeline *ingest.Pipeline
	pacing   time.Duration
	logger   *logger_i.Logger
}

func newService(d Dependencies) *service {
	return &service{
		catalog:  d.Catalog,
		storage:  d.Storage,
		index:    d.Index,
		memory:   d.Memory,
		resolver: resolver.New(d.Catalog, d.Classifier, d.Embedder, d.Index, d.Chat, d.Memory),
		pipeline: ingest.NewPipeline(d.Catalog, d.Embedder, d.Index, d.Publisher),
		pacing:   d.Pacing,
		logger:   logger_i.NewLogger("RAG Service"),
	}
}

// NewService constructor
func NewService(d Dependencies) Service {
	return newService(d)
}

// New returns the worker-facing and handler-facing views of one service.
func New(d Dependencies) (Service, Library) {
	s := newService(d)
	return s, s
}

func (s *service) ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job {
	job.CurrentStep = jobModel.RAGCall
	s.jobLogger(ctx, job).Debug("resolving query")

	answer := s.resolver.Resolve(ctx, resolver.Query{
		Text:         job.JobPayload.Question,
		SessionId:    job.ChatId,
		UploadedText: job.JobPayload.UploadedText,
	})

	job.JobPayload.Answer = answer.Text
	job.JobPayload.SourceTag = answer.SourceTag
	job.JobPayload.Intent = string(answer.Intent)
	job.JobPayload.Sources = answer.Citations
	job.CurrentStep = jobModel.Complete
	return job
}

// IngestDocuments runs every document of the job through the pipeline, paced when there is more than one.
// The job only errors when no document made it; per-document failures are in IngestResults.
func (s *service) IngestDocuments(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestProcessing
	if len(job.JobPayload.DocumentIds) == 0 {
		return s.jobError(job, errors.New("no documents in job"), "INGESTION_FAILURE", false)
	}

	items := make([]ingest.Item, 0, len(job.JobPayload.DocumentIds))
	for _, id := range job.JobPayload.DocumentIds {
		items = append(items, ingest.Item{DocumentId: id, Load: s.loader(id)})
	}
	job.JobPayload.IngestResults = s.runBatch(ctx, items)

	if countDone(job.JobPayload.IngestResults) == 0 {
		return s.jobError(job, errors.New("no document was ingested"), "INGESTION_FAILURE", true)
	}
	job.CurrentStep = jobModel.Complete
	return job
}

// RebuildIndex compacts the index, or for a full rebuild empties it and re-ingests every catalog document
// from its stored file.
func (s *service) RebuildIndex(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_rebuild", time.Since(start)) }()
	log := s.jobLogger(ctx, job)
	job.CurrentStep = jobModel.RebuildInit

	if job.JobPayload.CompactOnly {
		if err := s.index.Compact(ctx); err != nil {
			return s.jobError(job, err, "INDEX_COMPACTION_FAILURE", true)
		}
		job.CurrentStep = jobModel.Complete
		return job
	}

	docs, err := s.allDocuments(ctx)
	if err != nil {
		return s.jobError(job, err, "CATALOG_FAILURE", true)
	}
	if err = s.index.Reset(ctx); err != nil {
		return s.jobError(job, err, "INDEX_RESET_FAILURE", true)
	}
	log.Info("index reset, re-ingesting catalog", "documents", len(docs))

	job.CurrentStep = jobModel.IngestProcessing
	items := make([]ingest.Item, 0, len(docs))
	for _, d := range docs {
		if d.LocationRef == "" {
			log.Warn("document has no stored file, skipping", "documentId", d.Id)
			continue
		}
		items = append(items, ingest.Item{DocumentId: d.Id, Load: s.loader(d.Id)})
	}
	job.JobPayload.DocumentIds = make([]string, 0, len(items))
	for _, it := range items {
		job.JobPayload.DocumentIds = append(job.JobPayload.DocumentIds, it.DocumentId)
	}
	job.JobPayload.IngestResults = s.runBatch(ctx, items)
	job.CurrentStep = jobModel.Complete
	return job
}

func (s *service) runBatch(ctx context.Context, items []ingest.Item) []jobModel.IngestOutcome {
	pacing := s.pacing
	if len(items) < 2 {
		pacing = 0
	}
	outcomes := make([]jobModel.IngestOutcome, 0, len(items))
	ingest.NewBatch(s.pipeline, pacing).Run(ctx, items, func(r ingest.Result) {
		metrics.CaptureIngestion(string(r.Status), r.PassagesAdded)
		outcomes = append(outcomes, outcomeOf(r))
	})
	return outcomes
}

// loader reads a document's stored bytes when the batch reaches it, so big rebuilds do not hold every file.
func (s *service) loader(documentId string) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		doc, err := s.catalog.Get(ctx, documentId)
		if err != nil {
			return nil, err
		}
		if doc.LocationRef == "" {
			return nil, fmt.Errorf("document %s has no stored file", documentId)
		}
		if s.storage == nil {
			return nil, errors.New("no object storage configured")
		}
		getCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
		defer cancel()
		return s.storage.Get(getCtx, doc.LocationRef)
	}
}

func (s *service) allDocuments(ctx context.Context) ([]commonModels.DocumentEntity, error) {
	var docs []commonModels.DocumentEntity
	for page := 1; ; page++ {
		p, err := s.catalog.List(ctx, catalog.ListFilter{Page: page, PageSize: 100})
		if err != nil {
			return nil, err
		}
		docs = append(docs, p.Documents...)
		if len(p.Documents) == 0 || len(docs) >= p.Total {
			return docs, nil
		}
	}
}
