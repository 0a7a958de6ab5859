// Package store persists the bootstrap registry state.
package store

import (
	"context"
	"fmt"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"go.uber.org/zap"
)

// RegistryStore holds the single registry state document.
// Load on an empty store returns the zero state.
type RegistryStore interface {
	Load(ctx context.Context) (model.RegistryState, error)
	Save(ctx context.Context, state model.RegistryState) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(cfg config.RegistryConfig, logger *zap.Logger) (RegistryStore, error) {
	switch cfg.Backend {
	case config.StoreBackendMemory, "":
		return NewMemoryStore(), nil
	case config.StoreBackendRedis:
		return NewRedisStore(cfg.Redis, logger)
	case config.StoreBackendPostgres:
		return NewPostgresStore(cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown registry backend: %q", cfg.Backend)
	}
}
