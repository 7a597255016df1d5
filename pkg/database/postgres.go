package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a connected PostgreSQL pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Config holds the PostgreSQL connection settings. DSN, when set, wins over
// the individual fields.
type Config struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Connection pool settings
	MaxConns    int
	MinConns    int
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
	HealthCheck time.Duration
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
}

// NewConfig returns the default configuration. A CLI process needs only a
// couple of connections.
func NewConfig() *Config {
	return &Config{
		Host:          "localhost",
		Port:          5432,
		User:          "postgres",
		Password:      "postgres",
		Database:      "postgres",
		SSLMode:       "disable",
		MaxConns:      2,
		MinConns:      0,
		MaxConnLife:   30 * time.Minute,
		MaxConnIdle:   5 * time.Minute,
		HealthCheck:   30 * time.Second,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	}
}

// ConnString returns the DSN, or one assembled from the individual fields.
func (c *Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// PoolConfig parses the connection string and applies the pool settings.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.HealthCheckPeriod = c.HealthCheck
	if c.MaxConns > 0 {
		poolConfig.MaxConns = int32(c.MaxConns)
	}
	poolConfig.MinConns = int32(c.MinConns)
	poolConfig.MaxConnLifetime = c.MaxConnLife
	poolConfig.MaxConnIdleTime = c.MaxConnIdle

	return poolConfig, nil
}

// Connect opens a pool and pings it, retrying up to config.MaxRetries
// times. An unparsable connection string fails immediately.
func Connect(ctx context.Context, config *Config) (*Postgres, error) {
	poolConfig, err := config.PoolConfig()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i <= config.MaxRetries; i++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &Postgres{Pool: pool}, nil
			}
			pool.Close()
			lastErr = fmt.Errorf("failed to ping database: %w", err)
		} else {
			lastErr = fmt.Errorf("failed to connect to database: %w", err)
		}

		if i < config.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("database connect cancelled: %w", lastErr)
			case <-time.After(config.RetryInterval):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d retries: %w", config.MaxRetries, lastErr)
}

// Close closes the pool.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// HealthCheck runs a trivial query.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	if p.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	var result string
	return p.Pool.QueryRow(ctx, "SELECT 'healthy'").Scan(&result)
}
