// Package session keeps the signed-in state of the CLI: the persisted
// session, its offline resolution at startup and the operations that change
// it.
package session

import (
	"context"
	"fmt"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/config"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/database"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/redis"
)

// Backend is the key-value storage behind a Store. Implementations keep the
// keys of one profile apart from other profiles.
type Backend interface {
	// Get returns the values of the keys that are present. Missing keys are
	// absent from the map.
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	// Update writes set and removes del in a single atomic operation.
	Update(ctx context.Context, set map[string]string, del ...string) error
	// Ping checks that the storage is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// OpenBackend opens the backend selected by cfg.Storage.Driver.
func OpenBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	profile := cfg.Storage.Profile

	switch cfg.Storage.Driver {
	case config.DriverFile, "":
		backend, err := NewFileBackend(cfg.Storage.Dir, profile)
		if err != nil {
			return nil, err
		}
		backend.logger = log.With(logger.String("component", "session-file"))
		return backend, nil

	case config.DriverMemory:
		return NewMemoryBackend(), nil

	case config.DriverRedis:
		redisConfig := redis.NewConfig()
		redisConfig.Addr = cfg.Storage.Redis.Addr
		redisConfig.Password = cfg.Storage.Redis.Password
		redisConfig.DB = cfg.Storage.Redis.DB

		client, err := redis.Connect(ctx, redisConfig)
		if err != nil {
			return nil, err
		}
		log.Debug("redis session backend connected", logger.String("addr", redisConfig.Addr))
		return NewRedisBackend(client, profile), nil

	case config.DriverPostgres:
		dbConfig := database.NewConfig()
		dbConfig.DSN = cfg.Storage.Postgres.DSN

		db, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, err
		}
		backend := NewPostgresBackend(db, profile)
		if err := backend.EnsureSchema(ctx); err != nil {
			backend.Close()
			return nil, err
		}
		log.Debug("postgres session backend connected")
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
