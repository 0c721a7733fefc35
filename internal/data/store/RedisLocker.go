package store

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/redisStore"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// RedisLocker serializes work on a key across every process sharing the redis instance.
type RedisLocker struct {
	store *redisStore.Store
	ttl   time.Duration
	wait  time.Duration
	poll  time.Duration
	log   *logger_i.Logger
}

func NewRedisLocker(s *redisStore.Store) *RedisLocker {
	return &RedisLocker{
		store: s,
		ttl:   config.SessionLockTTL,
		wait:  config.SessionLockWait,
		poll:  50 * time.Millisecond,
		log:   logger_i.NewLogger("RedisLocker"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := utils.GetNewUUID()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.store.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// released even when the caller's context is already gone
				unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.store.Unlock(unlockCtx, key, token); err != nil {
					l.log.Warn("releasing lock failed, it will expire", "key", key, "error", err)
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-time.After(l.poll):
		}
	}
}
