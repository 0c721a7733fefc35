package ingest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Item is one document already registered in the catalog. When Data is nil the bytes come from Load,
// called only once the document's turn comes.
type Item struct {
	DocumentId string
	Data       []byte
	Load       func(ctx context.Context) ([]byte, error)
}

// Batch ingests documents one at a time. The limiter spaces them out so downstream rate limits hold.
type Batch struct {
	pipeline *Pipeline
	limiter  *rate.Limiter
}

func NewBatch(p *Pipeline, pacing time.Duration) *Batch {
	limit := rate.Inf
	if pacing > 0 {
		limit = rate.Every(pacing)
	}
	return &Batch{pipeline: p, limiter: rate.NewLimiter(limit, 1)}
}

// Run stops early only when ctx ends; documents not reached are reported as failed with the context error.
func (b *Batch) Run(ctx context.Context, items []Item, onResult func(Result)) []Result {
	results := make([]Result, 0, len(items))
	for i, item := range items {
		if err := b.limiter.Wait(ctx); err != nil {
			for _, rest := range items[i:] {
				r := b.pipeline.fail(ctx, logger.With("documentId", rest.DocumentId), Result{DocumentId: rest.DocumentId}, err)
				results = append(results, r)
				if onResult != nil {
					onResult(r)
				}
			}
			return results
		}
		r := b.ingest(ctx, item)
		results = append(results, r)
		if onResult != nil {
			onResult(r)
		}
	}
	return results
}

func (b *Batch) ingest(ctx context.Context, item Item) Result {
	data := item.Data
	if data == nil && item.Load != nil {
		var err error
		if data, err = item.Load(ctx); err != nil {
			log := logger.With("documentId", item.DocumentId)
			return b.pipeline.fail(ctx, log, Result{DocumentId: item.DocumentId}, fmt.Errorf("loading stored file: %w", err))
		}
	}
	return b.pipeline.Ingest(ctx, data, item.DocumentId)
}
