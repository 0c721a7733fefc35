package store

import (
	"context"
	"testing"
	"time"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
)

func TestInMemoryJobStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newInMemoryJobStore(time.Hour, func() time.Time { return clock })

	ingest := jobModel.Job{
		Id:      "ingest-1",
		JobType: jobModel.JobTypeIngest,
		Status:  jobModel.JobStatusQueued,
		JobPayload: jobModel.JobPayload{
			DocumentIds: []string{"doc-1"},
			IngestResults: []jobModel.IngestOutcome{
				{DocumentId: "doc-1", Status: commonModels.StatusDone, ChunksTotal: 4, ChunksEmbedded: 4, PassagesAdded: 4},
			},
		},
	}
	if err := s.SaveJob(ctx, ingest); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	got, found := s.GetJob(ctx, "ingest-1")
	if !found {
		t.Fatal("job not found before expiry")
	}
	if len(got.JobPayload.IngestResults) != 1 || got.JobPayload.IngestResults[0].PassagesAdded != 4 {
		t.Errorf("ingest results not kept: %+v", got.JobPayload.IngestResults)
	}

	clock = clock.Add(time.Hour)
	if _, found = s.GetJob(ctx, "ingest-1"); found {
		t.Error("expired job still returned")
	}

	// the next save sweeps the expired entry
	if err := s.SaveJob(ctx, jobModel.Job{Id: "query-1"}); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected only the fresh job, got %d entries", s.Len())
	}
}

func TestInMemoryJobStore_SaveRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newInMemoryJobStore(time.Minute, func() time.Time { return clock })

	_ = s.SaveJob(ctx, jobModel.Job{Id: "j", Status: jobModel.JobStatusQueued})
	clock = clock.Add(50 * time.Second)
	_ = s.SaveJob(ctx, jobModel.Job{Id: "j", Status: jobModel.JobStatusRunning})
	clock = clock.Add(50 * time.Second)

	got, found := s.GetJob(ctx, "j")
	if !found || got.Status != jobModel.JobStatusRunning {
		t.Fatalf("expected running job after refresh, got %+v (found=%v)", got, found)
	}

	s.DeleteJob(ctx, "j")
	if _, found = s.GetJob(ctx, "j"); found {
		t.Error("deleted job still returned")
	}
}
