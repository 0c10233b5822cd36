// internal/config/types.go
package config

import (
	"time"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store/dynamodb"
	"github.com/avivl/kvkeeper/internal/store/redis"
	"github.com/avivl/kvkeeper/internal/store/scylladb"
)

const redacted = "******"

// Settings is the resolved application configuration. A Settings value is
// never mutated after Load; reloads produce a new one.
type Settings struct {
	Env   string `mapstructure:"env" yaml:"env"`
	Host  string `mapstructure:"host" yaml:"host"`
	Port  string `mapstructure:"port" yaml:"port"`
	Debug int    `mapstructure:"debug" yaml:"debug"`

	MySQL MySQLConfig        `mapstructure:"mysql" yaml:"mysql"`
	Redis *redis.RedisConfig `mapstructure:"redis" yaml:"redis"`
	Mongo MongoConfig        `mapstructure:"mongo" yaml:"mongo"`
	Auth  AuthConfig         `mapstructure:"auth" yaml:"auth"`
	Email EmailConfig        `mapstructure:"email" yaml:"email"`

	Backend  BackendConfig            `mapstructure:"backend" yaml:"backend"`
	DynamoDB *dynamodb.DynamoDBConfig `mapstructure:"dynamoDbConfig" yaml:"dynamoDbConfig"`
	ScyllaDB *scylladb.ScyllaDBConfig `mapstructure:"scyllaDbConfig" yaml:"scyllaDbConfig"`

	ServerAddress  string                     `mapstructure:"serverAddress" yaml:"serverAddress"`
	ConnectTimeout time.Duration              `mapstructure:"connectTimeout" yaml:"connectTimeout"`
	ProbeInterval  time.Duration              `mapstructure:"probeInterval" yaml:"probeInterval"`
	Logger         observability.LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Observability  observability.Config       `mapstructure:"observability" yaml:"observability"`
}

// BackendConfig represents the backend configuration section
type BackendConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
}

// MySQLConfig is carried for consumers of the configuration; nothing in this
// module opens a MySQL connection.
type MySQLConfig struct {
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	User            string `mapstructure:"user" yaml:"user"`
	Password        string `mapstructure:"password" yaml:"password"`
	ConnectionLimit int    `mapstructure:"connectionLimit" yaml:"connectionLimit"`
	Database        string `mapstructure:"database" yaml:"database"`
	Timezone        string `mapstructure:"timezone" yaml:"timezone"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	PoolSize int    `mapstructure:"poolSize" yaml:"poolSize"`
}

type AuthConfig struct {
	Algorithm        string           `mapstructure:"algorithm" yaml:"algorithm"`
	TokenExpiryInMin TokenExpiryInMin `mapstructure:"tokenExpiryInMin" yaml:"tokenExpiryInMin"`
	Issuer           string           `mapstructure:"issuer" yaml:"issuer"`
	Audience         string           `mapstructure:"audience" yaml:"audience"`
}

// TokenExpiryInMin holds token lifetimes in minutes per client kind
type TokenExpiryInMin struct {
	Web     int `mapstructure:"web" yaml:"web"`
	Android int `mapstructure:"android" yaml:"android"`
}

// WebTTL returns the web token lifetime
func (t TokenExpiryInMin) WebTTL() time.Duration {
	return time.Duration(t.Web) * time.Minute
}

// AndroidTTL returns the android token lifetime
func (t TokenExpiryInMin) AndroidTTL() time.Duration {
	return time.Duration(t.Android) * time.Minute
}

type EmailConfig struct {
	NoReply string      `mapstructure:"noReply" yaml:"noReply"`
	Gmail   GmailConfig `mapstructure:"gmail" yaml:"gmail"`
	SMTP    SMTPConfig  `mapstructure:"smtp" yaml:"smtp"`
}

type GmailConfig struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

type SMTPConfig struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Secure   bool   `mapstructure:"secure" yaml:"secure"`
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// Redacted returns a copy with every password and secret key masked
func (s *Settings) Redacted() *Settings {
	out := *s
	out.MySQL.Password = mask(s.MySQL.Password)
	out.Mongo.Password = mask(s.Mongo.Password)
	out.Email.Gmail.Password = mask(s.Email.Gmail.Password)
	out.Email.SMTP.Password = mask(s.Email.SMTP.Password)
	if s.Redis != nil {
		out.Redis = s.Redis.Clone()
		out.Redis.Password = mask(s.Redis.Password)
	}
	if s.DynamoDB != nil {
		out.DynamoDB = s.DynamoDB.Clone()
		out.DynamoDB.SecretAccessKey = mask(s.DynamoDB.SecretAccessKey)
	}
	if s.ScyllaDB != nil {
		out.ScyllaDB = s.ScyllaDB.Clone()
	}
	return &out
}
