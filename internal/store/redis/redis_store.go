// internal/store/redis/redis_store.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avivl/kvkeeper/internal/kvservice"
	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store"
	"github.com/redis/go-redis/v9"
)

// StoreName is the registered name of the Redis store
const StoreName = "redis"

// redisClient is the subset of *redis.Client the store relies on
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Factory function for creating Redis clients.
// Can be replaced during tests for mocking.
var newRedisClientFn = func(cfg *RedisConfig) redisClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func init() {
	kvservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options kvservice.Config, logger *observability.SLogger) (store.KVStore, error) {
	cfg, ok := options.(*RedisConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return New(ctx, cfg, logger)
}

// Store implements store.KVStore on top of go-redis
type Store struct {
	client    redisClient
	l         *observability.SLogger
	keyPrefix string
	config    *RedisConfig
}

// New creates a client for config and waits for a single PING to succeed.
// The client is closed again when the probe fails.
func New(ctx context.Context, config *RedisConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("redis: %w", store.ErrConfigMissing)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	client := newRedisClientFn(config)

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Errorf("Error connecting to Redis at %s: %v", config.Addr(), err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:    client,
		l:         logger,
		keyPrefix: config.KeyPrefix,
		config:    config,
	}, nil
}

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

func (s *Store) key(k string) string {
	if s.keyPrefix == "" {
		return k
	}
	return s.keyPrefix + ":" + k
}

// Get returns the string stored at key; redis.Nil is reported as not found
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set issues SET, adding EX only for a positive whole-second expiry
func (s *Store) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	ttl := time.Duration(store.TTLSeconds(expiry)) * time.Second
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// SAdd adds members to the set at key
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SAdd(ctx, s.key(key), args...).Err()
}

// SMembers returns the set at key in server order
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []string{}
	}
	return members, nil
}

// Delete removes key and returns the DEL count
func (s *Store) Delete(ctx context.Context, key string) (int64, error) {
	return s.client.Del(ctx, s.key(key)).Result()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		s.l.Errorf("Error closing Redis connection: %v", err)
		return err
	}
	return nil
}
