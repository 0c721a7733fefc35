package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("ingest")

// Result is what one document's ingestion produced. Failures live in Status and Err, they are never returned.
type Result struct {
	DocumentId     string
	Title          string
	Status         commonModels.DocStatus
	ChunksTotal    int
	ChunksEmbedded int
	PassagesAdded  int
	Err            error
}

type Pipeline struct {
	catalog      catalog.Catalog
	embedder     embedding.Embedder
	index        vectorDB.Index
	publisher    notify.Publisher
	windowSize   int
	overlap      int
	embedTimeout time.Duration
	extract      func([]byte) (Extracted, error)
}

func NewPipeline(c catalog.Catalog, e embedding.Embedder, idx vectorDB.Index, pub notify.Publisher) *Pipeline {
	return &Pipeline{
		catalog:      c,
		embedder:     e,
		index:        idx,
		publisher:    pub,
		windowSize:   config.ChunkWindowSize,
		overlap:      config.ChunkOverlap,
		embedTimeout: config.EmbeddingCallTimeout,
		extract:      ExtractText,
	}
}

// WithChunking overrides the window and overlap, mostly for tests.
func (p *Pipeline) WithChunking(windowSize int, overlap int) *Pipeline {
	p.windowSize = windowSize
	p.overlap = overlap
	return p
}

// Ingest moves one catalog document through processing to done or failed.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, documentId string) Result {
	log := logger.With("documentId", documentId)
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		log = log.With("traceId", traceId)
	}
	result := Result{DocumentId: documentId, Status: commonModels.StatusPending}

	doc, err := p.catalog.Get(ctx, documentId)
	if err != nil {
		log.Error("document not in catalog", "error", err)
		result.Status = commonModels.StatusFailed
		result.Err = fmt.Errorf("loading document %s: %w", documentId, err)
		return result
	}
	result.Title = doc.Title

	if err = p.catalog.SetStatus(ctx, documentId, commonModels.StatusProcessing); err != nil {
		return p.fail(ctx, log, result, fmt.Errorf("marking processing: %w", err))
	}
	result.Status = commonModels.StatusProcessing

	extracted, err := p.extract(data)
	if err != nil {
		return p.fail(ctx, log, result, err)
	}
	log.Debug("extracted document", "type", extracted.Type, "pages", len(extracted.Pages))

	chunks := Chunk(extracted.Text(), p.windowSize, p.overlap)
	result.ChunksTotal = len(chunks)
	if len(chunks) == 0 {
		return p.fail(ctx, log, result, errors.New("document produced no chunks"))
	}

	batch := embedding.EmbedAll(ctx, p.embedder, chunks, 1, p.embedTimeout)
	result.ChunksEmbedded = batch.Succeeded()
	if result.ChunksEmbedded == 0 {
		return p.fail(ctx, log, result, errors.New("no chunk could be embedded"))
	}
	if len(batch.Failed) > 0 {
		log.Warn("some chunks were skipped", "failed", len(batch.Failed), "total", len(chunks))
	}

	// Ids are assigned before filtering so a later re-ingestion fills the gaps with the same ids.
	all := PreparePassages(doc, chunks)
	records := make([]commonModels.PassageRecord, 0, result.ChunksEmbedded)
	vectors := make([][]float32, 0, result.ChunksEmbedded)
	for i, v := range batch.Vectors {
		if v == nil {
			continue
		}
		records = append(records, all[i])
		vectors = append(vectors, v)
	}

	if err = p.index.Ensure(ctx); err != nil {
		return p.fail(ctx, log, result, fmt.Errorf("loading index: %w", err))
	}
	added, err := p.index.Merge(ctx, records, vectors)
	if err != nil {
		return p.fail(ctx, log, result, fmt.Errorf("merging passages: %w", err))
	}
	result.PassagesAdded = added

	if err = p.catalog.SetStatus(ctx, documentId, commonModels.StatusDone); err != nil {
		return p.fail(ctx, log, result, fmt.Errorf("marking done: %w", err))
	}
	result.Status = commonModels.StatusDone
	log.Info("document ingested", "chunks", result.ChunksTotal, "embedded", result.ChunksEmbedded, "added", added)

	if p.publisher != nil {
		if err = p.publisher.Publish(ctx, notify.NewIngestionComplete(documentId, doc.Title, added)); err != nil {
			log.Warn("ingestion notification not delivered", "error", err)
		}
	}
	return result
}

func (p *Pipeline) fail(ctx context.Context, log *logger_i.Logger, result Result, cause error) Result {
	log.Error("ingestion failed", "status", result.Status, "error", cause)
	result.Status = commonModels.StatusFailed
	result.Err = cause
	// the job context may already be gone, the status still has to land
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.CatalogCallTimeout)
	defer cancel()
	if err := p.catalog.SetStatus(statusCtx, result.DocumentId, commonModels.StatusFailed); err != nil {
		log.Error("could not record failed status", "error", err)
	}
	return result
}
