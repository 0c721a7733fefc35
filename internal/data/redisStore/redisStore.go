package redisStore

import (
	"context"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("Redis Store")
	closeOnce sync.Once
)

// Store wraps one client per logical DB: jobs, chat sessions and the event bus each get their own.
type Store struct {
	client *redis.Client
	Type   int
}

var dbNames = map[int]string{
	config.RedisJobStore:     "jobs",
	config.RedisSessionStore: "sessions",
	config.RedisEventBus:     "events",
}

// GetRedisStore returns the cached store for dbType, or nil when redis is unreachable.
// A failed connect is not cached, the next caller tries again.
func GetRedisStore(ctx context.Context, dbType int) *Store {
	mu.RLock()
	instance, exists := instances[dbType]
	mu.RUnlock()
	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()
	if instance, exists = instances[dbType]; exists {
		return instance
	}

	instance = connect(ctx, dbType)
	if instance == nil {
		return nil
	}
	instances[dbType] = instance
	closeOnce.Do(func() {
		go closeOnDone(ctx)
	})
	return instance
}

func connect(ctx context.Context, dbType int) *Store {
	settings := config.Get()
	log := logger.With("db", dbNames[dbType])

	client := redis.NewClient(&redis.Options{
		Addr:                  settings.RedisAddr,
		Password:              settings.RedisPassword,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           config.RedisIOTimeout,
		WriteTimeout:          config.RedisIOTimeout,
		PoolSize:              config.RedisPoolSize,
		MinIdleConns:          config.RedisMinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis is offline", "addr", settings.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}

	log.Info("Redis client ready", "addr", settings.RedisAddr)
	return &Store{client: client, Type: dbType}
}

// closeOnDone closes every client once the service context ends.
func closeOnDone(ctx context.Context) {
	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	for dbType, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", dbNames[dbType], "error", err)
		}
		delete(instances, dbType)
	}
	logger.Info("Redis stores closed")
}

// NewTestStore wraps a client pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
