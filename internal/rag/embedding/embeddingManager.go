package embedding

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

// Embedder turns one text into a vector or fails with *ragErrors.EmbeddingError.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// QueryEmbedder is implemented by models that embed search queries differently from the passages
// they are matched against.
type QueryEmbedder interface {
	GetQueryEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery embeds a search query, using the query side of e when it has one.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if q, ok := e.(QueryEmbedder); ok {
		return q.GetQueryEmbedding(ctx, text)
	}
	return e.GetEmbedding(ctx, text)
}

// BatchResult is position aligned with the input; a failed text has a nil vector and its index in Failed.
type BatchResult struct {
	Vectors [][]float32
	Failed  []int
}

func (b BatchResult) Succeeded() int {
	return len(b.Vectors) - len(b.Failed)
}

var batchLogger = logger_i.NewLogger("embedding_batch")

// EmbedAll embeds every text with at most `workers` calls in flight, each bounded by `timeout`.
// A failing text is logged and skipped, it never aborts the rest of the batch.
func EmbedAll(ctx context.Context, e Embedder, texts []string, workers int, timeout time.Duration) BatchResult {
	result := BatchResult{Vectors: make([][]float32, len(texts))}
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, text := range texts {
		g.Go(func() error {
			vector, err := embedOne(gctx, e, text, timeout)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batchLogger.Warn("skipping text, embedding failed", "index", i, "error", err)
				result.Failed = append(result.Failed, i)
				return nil
			}
			result.Vectors[i] = vector
			return nil
		})
	}
	_ = g.Wait()

	sort.Ints(result.Failed)
	return result
}

func embedOne(ctx context.Context, e Embedder, text string, timeout time.Duration) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ragErrors.EmbeddingError{Err: err}
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	vector, err := e.GetEmbedding(callCtx, text)
	if err != nil {
		var embErr *ragErrors.EmbeddingError
		if errors.As(err, &embErr) {
			return nil, err
		}
		return nil, &ragErrors.EmbeddingError{Err: err}
	}
	if len(vector) == 0 {
		return nil, &ragErrors.EmbeddingError{Err: errors.New("empty vector")}
	}
	return vector, nil
}

// Cosine similarity, 0 when either vector has no magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
