// internal/store/redis/redisconfig.go

package redis

import (
	"fmt"
	"net"

	"github.com/avivl/kvkeeper/internal/store"
)

// RedisConfig holds Redis connection parameters. Port is kept as the raw
// string it was resolved from so malformed values surface at dial time.
type RedisConfig struct {
	Host      string `mapstructure:"host" yaml:"host"`
	Port      string `mapstructure:"port" yaml:"port"`
	Password  string `mapstructure:"password" yaml:"password"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"keyPrefix" yaml:"keyPrefix"`
	// PoolSize is handed to the client untouched; zero keeps the client default.
	PoolSize int `mapstructure:"poolSize" yaml:"poolSize"`
}

// NewRedisConfig creates a new Redis configuration with default values
func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host: "localhost",
		Port: "6379",
	}
}

// Validate reports store.ErrConfigMissing when host or port is empty
func (c *RedisConfig) Validate() error {
	if c.Host == "" || c.Port == "" {
		return fmt.Errorf("redis host and port are required: %w", store.ErrConfigMissing)
	}
	return nil
}

// Addr returns the dial address
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// String returns a string representation of the Redis configuration
func (c *RedisConfig) String() string {
	return fmt.Sprintf(
		"RedisConfig{Host: %s, Port: %s, DB: %d, KeyPrefix: %q, PoolSize: %d}",
		c.Host,
		c.Port,
		c.DB,
		c.KeyPrefix,
		c.PoolSize,
	)
}

// Clone creates a copy of the Redis configuration
func (c *RedisConfig) Clone() *RedisConfig {
	clone := *c
	return &clone
}

// GetEndpoints returns the single Redis endpoint
func (c *RedisConfig) GetEndpoints() []string {
	return []string{c.Addr()}
}
