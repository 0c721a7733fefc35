package vectorDB

import (
	"context"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

type IndexStats struct {
	Version   int64 `json:"version"`
	Dimension int   `json:"dimension"`
	Vectors   int   `json:"vectors"`
	Live      int   `json:"live"`
	Orphaned  int   `json:"orphaned"`
}

// Index is the vector index store: append only, searched by L2 distance.
type Index interface {
	// Ensure makes a snapshot available locally, pulling the remote mirror when no local copy exists.
	Ensure(ctx context.Context) error
	// Merge appends pairs whose id is not already indexed and persists the result. Returns how many were added.
	Merge(ctx context.Context, records []commonModels.PassageRecord, vectors [][]float32) (int, error)
	Search(ctx context.Context, query []float32, k int) ([]commonModels.PassageRecord, error)
	// RemoveDocument drops a document's records from search; their vectors stay until Compact.
	RemoveDocument(ctx context.Context, documentId string) (int, error)
	Compact(ctx context.Context) error
	// Reset replaces the index with an empty one, the first step of a rebuild from the catalog.
	Reset(ctx context.Context) error
	Stats(ctx context.Context) (IndexStats, error)
}
