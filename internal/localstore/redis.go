package localstore

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisArea is a Redis-backed durable area. All keys live under a fixed
// namespace so unrelated data in the same Redis instance is never scanned.
type RedisArea struct {
	client    *redis.Client
	namespace string
}

// NewRedisArea builds a durable area at addr. The namespace defaults to
// "flowforge:local".
func NewRedisArea(addr, password, namespace string) (*RedisArea, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("localstore redis addr is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = "flowforge:local"
	}
	return &RedisArea{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		namespace: namespace,
	}, nil
}

func (a *RedisArea) redisKey(key string) string {
	return a.namespace + ":" + key
}

func (a *RedisArea) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := a.client.Get(ctx, a.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (a *RedisArea) Set(ctx context.Context, key, value string) error {
	return a.client.Set(ctx, a.redisKey(key), value, 0).Err()
}

func (a *RedisArea) Remove(ctx context.Context, key string) error {
	return a.client.Del(ctx, a.redisKey(key)).Err()
}

func (a *RedisArea) Keys(ctx context.Context) ([]string, error) {
	prefix := a.namespace + ":"
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := a.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
