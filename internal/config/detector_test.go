// internal/config/detector_test.go
package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBackendType(t *testing.T) {
	tests := map[string]string{
		"":           BackendRedis,
		" Redis ":    BackendRedis,
		"dynamo":     BackendDynamoDB,
		"DynamoDB":   BackendDynamoDB,
		"cassandra":  BackendScyllaDB,
		"scylla":     BackendScyllaDB,
		"Memcached ": "memcached",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, normalizeBackendType(in), in)
	}
}

func TestResolveConfigFilePath(t *testing.T) {
	t.Run("prefers_config_yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "env: test\n")

		resolved, err := resolveConfigFilePath(dir)
		require.NoError(t, err)
		assert.Equal(t, path, resolved)
	})

	t.Run("empty_directory", func(t *testing.T) {
		resolved, err := resolveConfigFilePath(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := resolveConfigFilePath(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})

	t.Run("isConfigFile", func(t *testing.T) {
		assert.True(t, isConfigFile("/etc/kvkeeper/kvkeeper.yml"))
		assert.False(t, isConfigFile("/etc/kvkeeper/other.yaml"))
	})
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		s, err := Load("")
		require.NoError(t, err)
		return s
	}

	assert.NoError(t, validateSettings(valid()))
	assert.Error(t, validateSettings(nil))

	s := valid()
	s.ServerAddress = ""
	assert.ErrorContains(t, validateSettings(s), "server address")

	s = valid()
	s.ConnectTimeout = 0
	assert.ErrorContains(t, validateSettings(s), "connect timeout")

	s = valid()
	s.Logger.Level = "LOUD"
	assert.ErrorContains(t, validateSettings(s), "unknown log level")

	s = valid()
	s.Observability.Enabled = true
	s.Observability.OTelEndpoint = ""
	assert.ErrorContains(t, validateSettings(s), "OpenTelemetry endpoint")

	s = valid()
	s.Redis.Host = ""
	assert.NoError(t, validateSettings(s))
}
