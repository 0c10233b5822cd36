// internal/store/scylladb/scylladbconfig.go
package scylladb

import (
	"fmt"
	"net"
	"regexp"

	"github.com/avivl/kvkeeper/internal/store"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

type ScyllaDBConfig struct {
	Host              string `mapstructure:"host" yaml:"host"`
	Port              string `mapstructure:"port" yaml:"port"`
	Keyspace          string `mapstructure:"keyspace" yaml:"keyspace"`
	Table             string `mapstructure:"table" yaml:"table"`
	Consistency       string `mapstructure:"consistency" yaml:"consistency"`
	ReplicationFactor int    `mapstructure:"replicationFactor" yaml:"replicationFactor"`
}

// NewScyllaDBConfig creates a new ScyllaDB configuration with default values
func NewScyllaDBConfig() *ScyllaDBConfig {
	return &ScyllaDBConfig{
		Host:              "localhost",
		Port:              "9042",
		Keyspace:          "kvkeeper",
		Table:             "kv",
		Consistency:       "CONSISTENCY_QUORUM",
		ReplicationFactor: 1,
	}
}

func (c *ScyllaDBConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *ScyllaDBConfig) GetEndpoints() []string {
	return []string{c.Addr()}
}

func (c *ScyllaDBConfig) GetTableName() string {
	return c.Table
}

// Validate reports store.ErrConfigMissing for an empty host or port. Keyspace
// and table are interpolated into CQL, so they must be plain identifiers.
func (c *ScyllaDBConfig) Validate() error {
	if c.Host == "" || c.Port == "" {
		return fmt.Errorf("scylladb host and port are required: %w", store.ErrConfigMissing)
	}
	if !identifierPattern.MatchString(c.Keyspace) {
		return fmt.Errorf("invalid keyspace name %q", c.Keyspace)
	}
	if !identifierPattern.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if c.ReplicationFactor < 0 {
		return fmt.Errorf("invalid replication factor %d", c.ReplicationFactor)
	}
	return nil
}

func (c *ScyllaDBConfig) String() string {
	return fmt.Sprintf("ScyllaDBConfig{Host: %s, Port: %s, Keyspace: %s, Table: %s, Consistency: %s, ReplicationFactor: %d}",
		c.Host, c.Port, c.Keyspace, c.Table, c.Consistency, c.ReplicationFactor)
}

func (c *ScyllaDBConfig) Clone() *ScyllaDBConfig {
	clone := *c
	return &clone
}
