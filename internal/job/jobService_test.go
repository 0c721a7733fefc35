package job

import (
	"context"
	"testing"

	"github.com/akolanti/LibraryRAG/internal/data/store"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
)

func newTestService(buffer int) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, buffer),
		DispatcherChannel: make(chan bool, 1),
		JobStore:          store.InitInMemoryJobStore(),
	})
}

func TestSubmit_SavesQueuedAndEnqueues(t *testing.T) {
	s := newTestService(2)
	s.Submit(context.Background(), jobModel.Job{Id: "q-1", JobType: jobModel.JobTypeQuery, Status: jobModel.JobStatusRunning})

	stored, ok := s.JobStore.GetJob(context.Background(), "q-1")
	if !ok || stored.Status != jobModel.JobStatusQueued {
		t.Fatalf("expected queued job in store, got %+v (found=%v)", stored, ok)
	}
	select {
	case j := <-s.JobChannel:
		if j.Id != "q-1" {
			t.Errorf("unexpected job %s", j.Id)
		}
	default:
		t.Fatal("job was not sent to the channel")
	}
	if len(s.DispatcherChannel) != 0 {
		t.Error("a single query should not signal the dispatcher")
	}
}

func TestSubmit_SignalsDispatcher(t *testing.T) {
	tests := []struct {
		name    string
		jobType jobModel.JobType
		count   int64
		want    bool
	}{
		{"ingest always", jobModel.JobTypeIngest, 0, true},
		{"rebuild always", jobModel.JobTypeRebuild, 3, true},
		{"query at threshold", jobModel.JobTypeQuery, 9, true},
		{"query below threshold", jobModel.JobTypeQuery, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(1)
			s.RequestCount = tt.count
			s.Submit(context.Background(), jobModel.Job{Id: "j", JobType: tt.jobType})
			<-s.JobChannel

			if got := len(s.DispatcherChannel) == 1; got != tt.want {
				t.Errorf("signal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubmit_PendingSignalDoesNotBlock(t *testing.T) {
	s := newTestService(3)
	for i := 0; i < 3; i++ {
		s.Submit(context.Background(), jobModel.Job{Id: "i", JobType: jobModel.JobTypeIngest})
	}
	if len(s.DispatcherChannel) != 1 {
		t.Errorf("expected one pending signal, got %d", len(s.DispatcherChannel))
	}
}
