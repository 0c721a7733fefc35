package store

import (
	"context"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

// InMemorySessionStore is the fallback when redis is offline. Histories do not survive a restart.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]commonModels.Message
}

func InitInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string][]commonModels.Message)}
}

func (s *InMemorySessionStore) Create(_ context.Context, sessionId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionId] = []commonModels.Message{}
	return nil
}

func (s *InMemorySessionStore) Exists(_ context.Context, sessionId string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionId]
	return ok, nil
}

func (s *InMemorySessionStore) Load(_ context.Context, sessionId string) ([]commonModels.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]commonModels.Message(nil), s.sessions[sessionId]...), nil
}

func (s *InMemorySessionStore) Append(_ context.Context, sessionId string, messages ...commonModels.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionId] = append(s.sessions[sessionId], messages...)
	return nil
}

func (s *InMemorySessionStore) Replace(_ context.Context, sessionId string, messages []commonModels.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionId] = append([]commonModels.Message(nil), messages...)
	return nil
}
