// internal/config/detector.go
package config

import (
	"strings"

	"github.com/avivl/kvkeeper/internal/store"
)

const (
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendScyllaDB = "scylladb"
)

// normalizeBackendType maps accepted spellings onto the registered store names
func normalizeBackendType(backendType string) string {
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case "", "redis":
		return BackendRedis
	case "dynamodb", "dynamo":
		return BackendDynamoDB
	case "scylladb", "scylla", "cassandra":
		return BackendScyllaDB
	default:
		return strings.ToLower(strings.TrimSpace(backendType))
	}
}

func isKnownBackend(backendType string) bool {
	switch backendType {
	case BackendRedis, BackendDynamoDB, BackendScyllaDB:
		return true
	}
	return false
}

// StoreConfig returns the connection settings of the selected backend, or
// nil when that section is absent.
func (s *Settings) StoreConfig() store.StoreConfig {
	switch s.Backend.Type {
	case BackendRedis:
		if s.Redis != nil {
			return s.Redis
		}
	case BackendDynamoDB:
		if s.DynamoDB != nil {
			return s.DynamoDB
		}
	case BackendScyllaDB:
		if s.ScyllaDB != nil {
			return s.ScyllaDB
		}
	}
	return nil
}

// BackendLabel is the prefix used in store error logs, e.g. "Redis"
func (s *Settings) BackendLabel() string {
	switch s.Backend.Type {
	case BackendRedis:
		return "Redis"
	case BackendDynamoDB:
		return "DynamoDB"
	case BackendScyllaDB:
		return "ScyllaDB"
	default:
		return s.Backend.Type
	}
}
