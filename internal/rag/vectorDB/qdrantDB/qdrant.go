package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var logger = logger_i.NewLogger("Qdrant")

const upsertBatchSize = 100

// passageNamespace turns passage ids into stable point UUIDs, so re-ingestion hits the same points.
var passageNamespace = uuid.MustParse("6f1c8f0e-3b7a-4d2e-9a51-2c4b7e9d0a13")

// Index stores passages as points of one collection, searched by Euclid distance.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  uint64

	// merges check-then-upsert, so they must not interleave
	writeMu sync.Mutex
}

var _ vectorDB.Index = (*Index)(nil)

func New(ctx context.Context, host string, port int, dimension int) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}

	idx := &Index{client: client, collection: config.EmbeddingDBName, dimension: uint64(dimension)}
	if err = idx.Ensure(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	go idx.closeOnDone(ctx)
	logger.Info("Qdrant index ready", "host", host, "collection", idx.collection)
	return idx, nil
}

func (db *Index) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := db.client.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

func pointId(passageId string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(passageNamespace, []byte(passageId)).String())
}

func (db *Index) Ensure(ctx context.Context) error {
	exists, err := db.client.CollectionExists(ctx, db.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     db.dimension,
			Distance: qdrant.Distance_Euclid,
		}),
	})
}

func (db *Index) Merge(ctx context.Context, records []commonModels.PassageRecord, vectors [][]float32) (int, error) {
	if len(records) != len(vectors) {
		return 0, fmt.Errorf("mismatch: got %d records but %d vectors", len(records), len(vectors))
	}
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	existing, err := db.existingIds(ctx, records)
	if err != nil {
		return 0, err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for i, r := range records {
		if _, ok := existing[r.Id]; ok {
			continue
		}
		if uint64(len(vectors[i])) != db.dimension {
			return 0, fmt.Errorf("record %s has dimension %d, collection has %d", r.Id, len(vectors[i]), db.dimension)
		}
		existing[r.Id] = struct{}{}
		points = append(points, &qdrant.PointStruct{
			Id:      pointId(r.Id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"passage_id":  r.Id,
				"document_id": r.DocumentId,
				"title":       r.Title,
				"program":     r.Program,
				"year":        r.Year,
				"chunk":       r.Text,
			}),
		})
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		_, err = db.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: db.collection,
			Points:         points[start:end],
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return start, fmt.Errorf("qdrant upsert failed: %w", err)
		}
	}
	return len(points), nil
}

func (db *Index) existingIds(ctx context.Context, records []commonModels.PassageRecord) (map[string]struct{}, error) {
	ids := make([]*qdrant.PointId, 0, len(records))
	for _, r := range records {
		ids = append(ids, pointId(r.Id))
	}
	found := make(map[string]struct{}, len(records))
	if len(ids) == 0 {
		return found, nil
	}
	points, err := db.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: db.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayloadInclude("passage_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get failed: %w", err)
	}
	for _, p := range points {
		found[p.Payload["passage_id"].GetStringValue()] = struct{}{}
	}
	return found, nil
}

func (db *Index) Search(ctx context.Context, query []float32, k int) ([]commonModels.PassageRecord, error) {
	if k <= 0 {
		return nil, nil
	}
	result, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	out := make([]commonModels.PassageRecord, 0, len(result))
	for _, hit := range result {
		out = append(out, commonModels.PassageRecord{
			Id:         hit.Payload["passage_id"].GetStringValue(),
			DocumentId: hit.Payload["document_id"].GetStringValue(),
			Title:      hit.Payload["title"].GetStringValue(),
			Program:    hit.Payload["program"].GetStringValue(),
			Year:       int(hit.Payload["year"].GetIntegerValue()),
			Text:       hit.Payload["chunk"].GetStringValue(),
			SourceTag:  commonModels.SourceVectorIndex,
		})
	}
	return out, nil
}

func documentFilter(documentId string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentId)}}
}

// RemoveDocument deletes the points outright; Qdrant leaves nothing orphaned.
func (db *Index) RemoveDocument(ctx context.Context, documentId string) (int, error) {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	count, err := db.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: db.collection,
		Filter:         documentFilter(documentId),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	_, err = db.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete failed: %w", err)
	}
	return int(count), nil
}

func (db *Index) Compact(context.Context) error {
	return nil
}

func (db *Index) Reset(ctx context.Context) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()
	if err := db.client.DeleteCollection(ctx, db.collection); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	return db.Ensure(ctx)
}

func (db *Index) Stats(ctx context.Context) (vectorDB.IndexStats, error) {
	info, err := db.client.GetCollectionInfo(ctx, db.collection)
	if err != nil {
		return vectorDB.IndexStats{}, err
	}
	if info == nil {
		return vectorDB.IndexStats{}, errors.New("collection info missing")
	}
	points := int(info.GetPointsCount())
	return vectorDB.IndexStats{Dimension: int(db.dimension), Vectors: points, Live: points}, nil
}
