package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// kv is the part of the Redis client the store uses. *redis.Client implements it.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisStore keeps the registry state as one JSON value in Redis
type RedisStore struct {
	client kv
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a new Redis registry store
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStore(client, cfg.Key, logger), nil
}

func newRedisStore(client kv, key string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, key: key, logger: logger}
}

// Load implements RegistryStore.
func (s *RedisStore) Load(ctx context.Context) (model.RegistryState, error) {
	var state model.RegistryState

	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to load registry state: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal registry state: %w", err)
	}
	return state, nil
}

// Save implements RegistryStore.
func (s *RedisStore) Save(ctx context.Context, state model.RegistryState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal registry state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save registry state: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
