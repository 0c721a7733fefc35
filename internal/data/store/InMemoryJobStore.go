package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore is the fallback when redis is offline. Entries expire after the same TTL
// redis applies, so status polling behaves the same on both backends.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]storedJob
	ttl  time.Duration
	now  func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return newInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func newInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{jobs: make(map[string]storedJob), ttl: ttl, now: now}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpired(now)
	s.jobs[job.Id] = storedJob{job: job, expiresAt: now.Add(s.ttl)}
	inMemLogger.Debug("saved job", "traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	return nil
}

func (s *InMemoryJobStore) GetJob(_ context.Context, jobId string) (jobModel.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, found := s.jobs[jobId]
	if !found || !s.now().Before(entry.expiresAt) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (s *InMemoryJobStore) DeleteJob(_ context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// Len counts entries still held, expired ones included until the next save.
func (s *InMemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// caller holds mu
func (s *InMemoryJobStore) evictExpired(now time.Time) {
	for id, entry := range s.jobs {
		if !now.Before(entry.expiresAt) {
			delete(s.jobs, id)
		}
	}
}
