package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const createRegistryTable = `
	CREATE TABLE IF NOT EXISTS registry_state (
		id         INTEGER PRIMARY KEY,
		state      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

const (
	selectRegistryState = `SELECT state FROM registry_state WHERE id = 1`

	upsertRegistryState = `
		INSERT INTO registry_state (id, state, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`
)

// sqlDB is the part of the connection pool the store uses. *pgxpool.Pool implements it.
type sqlDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore keeps the registry state in a single-row PostgreSQL table
type PostgresStore struct {
	pool   sqlDB
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL registry store and ensures its table exists
func NewPostgresStore(cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.MaxConnections, cfg.MinConnections,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := newPostgresStore(context.Background(), pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// newPostgresStore ensures the registry table exists.
func newPostgresStore(ctx context.Context, db sqlDB, logger *zap.Logger) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, createRegistryTable); err != nil {
		return nil, fmt.Errorf("failed to create registry table: %w", err)
	}
	return &PostgresStore{pool: db, logger: logger}, nil
}

// Load implements RegistryStore.
func (s *PostgresStore) Load(ctx context.Context) (model.RegistryState, error) {
	var (
		state model.RegistryState
		raw   []byte
	)

	err := s.pool.QueryRow(ctx, selectRegistryState).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to load registry state: %w", err)
	}

	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal registry state: %w", err)
	}
	return state, nil
}

// Save implements RegistryStore.
func (s *PostgresStore) Save(ctx context.Context, state model.RegistryState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal registry state: %w", err)
	}

	if _, err := s.pool.Exec(ctx, upsertRegistryState, raw); err != nil {
		return fmt.Errorf("failed to save registry state: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
