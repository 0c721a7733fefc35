package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var ErrUnknownSession = errors.New("unknown session")

// SessionStore persists conversation histories. Callers serialize writes per session through a Locker.
type SessionStore interface {
	Create(ctx context.Context, sessionId string) error
	Exists(ctx context.Context, sessionId string) (bool, error)
	Load(ctx context.Context, sessionId string) ([]commonModels.Message, error)
	Append(ctx context.Context, sessionId string, messages ...commonModels.Message) error
	Replace(ctx context.Context, sessionId string, messages []commonModels.Message) error
}

// Locker grants exclusive access to one key until the returned func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Memory is the conversation history of every session. Once a history reaches the threshold its
// oldest entries are folded into one summary entry so the history shrinks back to threshold-block+1.
type Memory struct {
	store      SessionStore
	locker     Locker
	summarizer llm.Provider
	threshold  int
	block      int
	logger     *logger_i.Logger
}

func New(store SessionStore, locker Locker, summarizer llm.Provider, threshold int, block int) *Memory {
	if threshold < 2 {
		threshold = config.MemoryThreshold
	}
	if block < 1 || block >= threshold {
		block = min(config.MemoryBlockSize, threshold-1)
	}
	return &Memory{
		store:      store,
		locker:     locker,
		summarizer: summarizer,
		threshold:  threshold,
		block:      block,
		logger:     logger_i.NewLogger("memory"),
	}
}

// Start mints a session id with an empty history.
func (m *Memory) Start(ctx context.Context) (string, error) {
	id := utils.GetNewUUID()
	if err := m.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

func (m *Memory) Exists(ctx context.Context, sessionId string) (bool, error) {
	if sessionId == "" {
		return false, nil
	}
	return m.store.Exists(ctx, sessionId)
}

// Lock must be held from reading the history until the turn is appended.
func (m *Memory) Lock(ctx context.Context, sessionId string) (func(), error) {
	return m.locker.Lock(ctx, "session:"+sessionId)
}

func (m *Memory) History(ctx context.Context, sessionId string) ([]commonModels.Message, error) {
	return m.store.Load(ctx, sessionId)
}

// Append adds messages and compacts when the history reaches the threshold. The caller holds the session lock.
func (m *Memory) Append(ctx context.Context, sessionId string, messages ...commonModels.Message) error {
	if len(messages) == 0 {
		return nil
	}
	history, err := m.store.Load(ctx, sessionId)
	if err != nil {
		return err
	}
	if len(history)+len(messages) < m.threshold {
		return m.store.Append(ctx, sessionId, messages...)
	}

	combined := append(history, messages...)
	compacted, err := m.compact(ctx, combined)
	if err != nil {
		// the turn is kept, compaction is tried again on the next append
		m.logger.Warn("compaction failed, keeping full history", "sessionId", sessionId, "error", err)
		return m.store.Append(ctx, sessionId, messages...)
	}
	m.logger.Debug("history compacted", "sessionId", sessionId, "from", len(combined), "to", len(compacted))
	return m.store.Replace(ctx, sessionId, compacted)
}

// compact folds the oldest len-threshold+block entries into one summary, leaving threshold-block+1 entries.
func (m *Memory) compact(ctx context.Context, history []commonModels.Message) ([]commonModels.Message, error) {
	cut := len(history) - m.threshold + m.block
	oldest, rest := history[:cut], history[cut:]

	summary, err := m.summarize(ctx, oldest)
	if err != nil {
		return nil, err
	}
	out := make([]commonModels.Message, 0, len(rest)+1)
	out = append(out, commonModels.Message{Role: commonModels.RoleSummary, Content: summary})
	return append(out, rest...), nil
}

func (m *Memory) summarize(ctx context.Context, block []commonModels.Message) (string, error) {
	if m.summarizer == nil {
		return "", &ragErrors.ClassificationError{Op: "summary", Err: errors.New("no summarizer configured")}
	}
	var transcript strings.Builder
	for _, msg := range block {
		fmt.Fprintf(&transcript, "%s: %s\n", msg.Role, msg.Content)
	}

	callCtx, cancel := context.WithTimeout(ctx, config.ChatCallTimeout)
	defer cancel()
	summary, err := m.summarizer.Chat(callCtx, []commonModels.Message{
		{Role: commonModels.RoleSystem, Content: config.SummaryPrompt},
		{Role: commonModels.RoleUser, Content: transcript.String()},
	})
	if err != nil {
		return "", &ragErrors.ClassificationError{Op: "summary", Err: err}
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		return "", &ragErrors.ClassificationError{Op: "summary", Err: errors.New("empty summary")}
	}
	return summary, nil
}
