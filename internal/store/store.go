package store

import (
	"context"
	"time"
)

// KVStore is the contract every key-value backend satisfies.
type KVStore interface {
	// Get returns the value stored at key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value at key. A TTL is attached only when expiry is at least one second.
	Set(ctx context.Context, key, value string, expiry time.Duration) error

	// SAdd adds members to the set stored at key
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns the members of the set stored at key, empty when absent
	SMembers(ctx context.Context, key string) ([]string, error)

	// Delete removes key and returns the number of keys removed
	Delete(ctx context.Context, key string) (int64, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases resources held by the store
	Close() error

	// GetConfig returns the configuration the store was built from
	GetConfig() StoreConfig
}

// StoreConfig is implemented by every backend configuration.
type StoreConfig interface {
	// Validate reports ErrConfigMissing when the connection target is incomplete
	Validate() error
	GetEndpoints() []string
	String() string
}

// TTLSeconds truncates expiry to whole seconds. Zero means no TTL.
func TTLSeconds(expiry time.Duration) int64 {
	secs := int64(expiry / time.Second)
	if secs <= 0 {
		return 0
	}
	return secs
}
