package session

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/redis"
)

// RedisBackend keeps the session in Redis under "nfse:<profile>:<key>".
// Keys carry no TTL; the backend decides when a token stops being valid.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, profile string) *RedisBackend {
	if profile == "" {
		profile = "default"
	}
	return &RedisBackend{
		client: client,
		prefix: "nfse:" + profile + ":",
	}
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + k
}

func (b *RedisBackend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = b.key(k)
	}

	results, err := b.client.Client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	values := make(map[string]string, len(keys))
	for i, result := range results {
		// MGET answers nil for missing keys
		if s, ok := result.(string); ok {
			values[keys[i]] = s
		}
	}
	return values, nil
}

func (b *RedisBackend) Update(ctx context.Context, set map[string]string, del ...string) error {
	_, err := b.client.Client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(del) > 0 {
			full := make([]string, len(del))
			for i, k := range del {
				full[i] = b.key(k)
			}
			pipe.Del(ctx, full...)
		}
		for k, v := range set {
			pipe.Set(ctx, b.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	return nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.HealthCheck(ctx)
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
