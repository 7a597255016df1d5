package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a connected Redis client.
type Client struct {
	Client *redis.Client
}

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Connection pool settings
	PoolSize    int
	MinIdleConn int
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
	// Idle connections older than this are closed
	MaxIdleTime time.Duration
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Addr:          "localhost:6379",
		Password:      "",
		DB:            0,
		PoolSize:      4,
		MinIdleConn:   0,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
		MaxIdleTime:   30 * time.Second,
	}
}

// Connect dials Redis and pings it, retrying up to config.MaxRetries times.
// The wait between attempts is cut short when ctx is done.
func Connect(ctx context.Context, config *Config) (*Client, error) {
	var lastErr error

	for i := 0; i <= config.MaxRetries; i++ {
		client := redis.NewClient(&redis.Options{
			Addr:            config.Addr,
			Password:        config.Password,
			DB:              config.DB,
			PoolSize:        config.PoolSize,
			MinIdleConns:    config.MinIdleConn,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			PoolTimeout:     4 * time.Second,
			ConnMaxIdleTime: config.MaxIdleTime,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = fmt.Errorf("failed to ping redis: %w", err)
			client.Close()
			if i < config.MaxRetries {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("redis connect cancelled: %w", lastErr)
				case <-time.After(config.RetryInterval):
				}
			}
			continue
		}

		return &Client{Client: client}, nil
	}

	return nil, fmt.Errorf("failed to connect to redis after %d retries: %w", config.MaxRetries, lastErr)
}

// Close closes the connection pool.
func (r *Client) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (r *Client) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}
