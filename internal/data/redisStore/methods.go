package redisStore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// ListPush appends values and refreshes the key's ttl in one round trip.
func (s *Store) ListPush(ctx context.Context, key string, ttl time.Duration, values ...interface{}) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// ListReplace swaps the whole list atomically. An empty replacement removes the key.
func (s *Store) ListReplace(ctx context.Context, key string, ttl time.Duration, values ...interface{}) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	return err
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// TryLock sets key to token if absent. The ttl frees the lock if the holder dies.
func (s *Store) TryLock(ctx context.Context, key string, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, token, ttl).Result()
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Unlock deletes key only while it still holds token, so an expired holder cannot release a newer lock.
func (s *Store) Unlock(ctx context.Context, key string, token string) error {
	return unlockScript.Run(ctx, s.client, []string{key}, token).Err()
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe streams message payloads from channel until ctx ends or the returned func is called.
func (s *Store) Subscribe(ctx context.Context, channel string) (<-chan string, func()) {
	sub := s.client.Subscribe(ctx, channel)
	out := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var closeOnce sync.Once
	return out, func() {
		closeOnce.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
}
