package rag_test

import (
	"context"
	"strings"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
)

// MockEmbedder implements embedding.Embedder
type MockEmbedder struct {
	mu             sync.Mutex
	Calls          int
	OnGetEmbedding func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, text)
	}
	// "rice" texts point one way, everything else the other
	if strings.Contains(strings.ToLower(text), "rice") {
		return []float32{1, 0, 0}, nil
	}
	return []float32{0, 1, 0}, nil
}

func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnChat func(ctx context.Context, messages []commonModels.Message) (string, error)
}

func (m *MockLLM) Chat(ctx context.Context, messages []commonModels.Message) (string, error) {
	if m.OnChat != nil {
		return m.OnChat(ctx, messages)
	}
	return "mocked llm response", nil
}

// MockClassifier implements llm.Classifier
type MockClassifier struct {
	Intent llm.Intent
}

func (m MockClassifier) Classify(context.Context, string) (llm.Intent, error) {
	if m.Intent == "" {
		return llm.General, nil
	}
	return m.Intent, nil
}

// MockPublisher records ingestion events
type MockPublisher struct {
	mu     sync.Mutex
	Events []notify.Event
}

func (m *MockPublisher) Publish(_ context.Context, e notify.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}
