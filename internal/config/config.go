// internal/config/config.go
// Package config resolves application settings from environment variables,
// an optional YAML file, and literal defaults.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the generic per-key environment overrides
const EnvPrefix = "KVKEEPER"

// namedEnv maps keys to the environment variables deployments already set.
// They take precedence over the generic KVKEEPER_* form.
var namedEnv = map[string]string{
	"env":            "NODE_ENV",
	"mysql.host":     "MYSQL_HOST",
	"mysql.port":     "MYSQL_PORT",
	"mysql.user":     "MYSQL_USER",
	"mysql.password": "MYSQL_PASSWORD",
	"mysql.database": "MYSQL_DATABASE",
	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"backend.type":   "KVKEEPER_BACKEND",
}

// ConfigLoader holds the resolved Settings and, when a config file is in
// use, reloads them on change.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	logger     *observability.SLogger

	mu            sync.RWMutex
	watchers      []func(*Settings)
	currentConfig *Settings
	lastError     error
}

// NewConfigLoader creates a loader with defaults and environment bindings
// in place. No file is read until Load.
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	bindEnv(v)

	return &ConfigLoader{
		v:        v,
		logger:   observability.NewNopLogger(),
		watchers: make([]func(*Settings), 0),
	}
}

// LoadConfig resolves Settings once. configPath may be empty, a directory
// searched for config.yaml / kvkeeper.yaml, or a file. A directory without a
// config file is not an error; a file path that does not exist is.
func LoadConfig(configPath string) (*ConfigLoader, *Settings, error) {
	cl, settings, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	if cl.configFile != "" {
		cl.watch()
	}

	return cl, settings, nil
}

// Load resolves Settings once without watching the config file
func Load(configPath string) (*Settings, error) {
	_, settings, err := loadConfig(configPath)
	return settings, err
}

func loadConfig(configPath string) (*ConfigLoader, *Settings, error) {
	cl := NewConfigLoader()

	if configPath != "" {
		file, err := resolveConfigFilePath(configPath)
		if err != nil {
			return nil, nil, err
		}
		if file != "" {
			cl.v.SetConfigFile(file)
			if err := cl.v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("error reading config file: %w", err)
			}
			cl.configFile = file
		}
	}

	settings, err := cl.load()
	if err != nil {
		return nil, nil, err
	}

	cl.mu.Lock()
	cl.currentConfig = settings
	cl.mu.Unlock()

	return cl, settings, nil
}

// SetLogger sets the logger used to report reload failures
func (cl *ConfigLoader) SetLogger(logger *observability.SLogger) {
	if logger == nil {
		return
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.logger = logger
}

// ConfigFile returns the file in use, or "" when running on env and defaults only
func (cl *ConfigLoader) ConfigFile() string {
	return cl.configFile
}

// AddWatcher adds a callback that receives each successfully reloaded Settings
func (cl *ConfigLoader) AddWatcher(callback func(*Settings)) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.watchers = append(cl.watchers, callback)
}

// GetCurrentConfig returns the most recent Settings
func (cl *ConfigLoader) GetCurrentConfig() *Settings {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.currentConfig
}

// GetLastError returns the error of the last failed reload, cleared on success
func (cl *ConfigLoader) GetLastError() error {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.lastError
}

func (cl *ConfigLoader) load() (*Settings, error) {
	settings := &Settings{}
	if err := cl.v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	settings.Backend.Type = normalizeBackendType(settings.Backend.Type)

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("host", "http://localhost:3000")
	v.SetDefault("port", "3000")
	v.SetDefault("debug", 1)

	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", "3306")
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "Root@123")
	v.SetDefault("mysql.connectionLimit", 10)
	v.SetDefault("mysql.database", "nodejs_api")
	v.SetDefault("mysql.timezone", "+05:30")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyPrefix", "")
	v.SetDefault("redis.poolSize", 0)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017/nodejs_api")
	v.SetDefault("mongo.user", "node")
	v.SetDefault("mongo.password", "Node@123")
	v.SetDefault("mongo.poolSize", 10)

	v.SetDefault("auth.algorithm", "RS256")
	v.SetDefault("auth.tokenExpiryInMin.web", 10)
	v.SetDefault("auth.tokenExpiryInMin.android", 120)
	v.SetDefault("auth.issuer", "Node API Ltd")
	v.SetDefault("auth.audience", "http://localhost")

	v.SetDefault("email.noReply", "noreply@gmail.com")
	v.SetDefault("email.gmail.user", "user@gmail.com")
	v.SetDefault("email.gmail.password", "password")
	v.SetDefault("email.smtp.user", "user@gmail.com")
	v.SetDefault("email.smtp.password", "password")
	v.SetDefault("email.smtp.host", "localhost")
	v.SetDefault("email.smtp.port", 25)
	v.SetDefault("email.smtp.secure", false)

	v.SetDefault("backend.type", BackendRedis)

	v.SetDefault("dynamoDbConfig.region", "us-west-2")
	v.SetDefault("dynamoDbConfig.table", "kvkeeper")
	v.SetDefault("dynamoDbConfig.endpoints", []string{"dynamodb.us-west-2.amazonaws.com"})
	v.SetDefault("dynamoDbConfig.profile", "")
	v.SetDefault("dynamoDbConfig.accessKeyId", "")
	v.SetDefault("dynamoDbConfig.secretAccessKey", "")

	v.SetDefault("scyllaDbConfig.host", "localhost")
	v.SetDefault("scyllaDbConfig.port", "9042")
	v.SetDefault("scyllaDbConfig.keyspace", "kvkeeper")
	v.SetDefault("scyllaDbConfig.table", "kv")
	v.SetDefault("scyllaDbConfig.consistency", "CONSISTENCY_QUORUM")
	v.SetDefault("scyllaDbConfig.replicationFactor", 1)

	v.SetDefault("serverAddress", "localhost:5050")
	v.SetDefault("connectTimeout", 5*time.Second)
	v.SetDefault("probeInterval", 10*time.Second)

	v.SetDefault("logger.level", string(observability.LogLevelInfo))

	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "kvkeeper")
	v.SetDefault("observability.serviceVersion", "0.1.0")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.otelEndpoint", "localhost:4317")
}

// bindEnv binds every defaulted key to its named variable, if any, followed
// by KVKEEPER_<KEY>. Empty variables are ignored by viper.
func bindEnv(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		names := make([]string, 0, 2)
		if named, ok := namedEnv[key]; ok {
			names = append(names, named)
		}
		names = append(names, envKey(key))
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// envKey returns the generic override name for key, e.g. KVKEEPER_REDIS_KEYPREFIX
func envKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
