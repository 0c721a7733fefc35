package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/redisStore"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

// RedisSessionStore keeps each history as a redis list next to a marker key, so an empty session still exists.
type RedisSessionStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func GetRedisSessionStore(ctx context.Context) *RedisSessionStore {
	s := redisStore.GetRedisStore(ctx, config.RedisSessionStore)
	if s == nil {
		return nil
	}
	return NewRedisSessionStore(s)
}

func NewRedisSessionStore(s *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  s,
		ttl:    config.RedisSessionStoreTTL,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func markerKey(id string) string  { return "session:" + id }
func historyKey(id string) string { return "session:" + id + ":history" }

func (s *RedisSessionStore) Create(ctx context.Context, sessionId string) error {
	s.logger.Debug("creating session", "sessionId", sessionId)
	if err := s.store.Del(ctx, historyKey(sessionId)); err != nil {
		return err
	}
	return s.store.Set(ctx, markerKey(sessionId), time.Now().UTC().Unix(), s.ttl)
}

func (s *RedisSessionStore) Exists(ctx context.Context, sessionId string) (bool, error) {
	return s.store.Exists(ctx, markerKey(sessionId))
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionId string) ([]commonModels.Message, error) {
	raw, err := s.store.ListGetAll(ctx, historyKey(sessionId))
	if err != nil {
		s.logger.Error("Error getting history", "sessionId", sessionId, "error", err)
		return nil, err
	}
	messages := make([]commonModels.Message, 0, len(raw))
	for i, r := range raw {
		var m commonModels.Message
		if err = json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("decoding history entry %d: %w", i, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionId string, messages ...commonModels.Message) error {
	values, err := encodeMessages(messages)
	if err != nil || len(values) == 0 {
		return err
	}
	if err = s.store.ListPush(ctx, historyKey(sessionId), s.ttl, values...); err != nil {
		s.logger.Error("error saving chat", "sessionId", sessionId, "error", err)
		return err
	}
	return s.touch(ctx, sessionId)
}

func (s *RedisSessionStore) Replace(ctx context.Context, sessionId string, messages []commonModels.Message) error {
	values, err := encodeMessages(messages)
	if err != nil {
		return err
	}
	if err = s.store.ListReplace(ctx, historyKey(sessionId), s.ttl, values...); err != nil {
		return err
	}
	return s.touch(ctx, sessionId)
}

// touch keeps the marker alive as long as the history.
func (s *RedisSessionStore) touch(ctx context.Context, sessionId string) error {
	return s.store.Set(ctx, markerKey(sessionId), time.Now().UTC().Unix(), s.ttl)
}

func encodeMessages(messages []commonModels.Message) ([]interface{}, error) {
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		values = append(values, data)
	}
	return values, nil
}
