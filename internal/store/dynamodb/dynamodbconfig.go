// internal/store/dynamodb/dynamodbconfig.go
package dynamodb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avivl/kvkeeper/internal/store"
)

type DynamoDBConfig struct {
	Region          string   `mapstructure:"region" yaml:"region"`
	Table           string   `mapstructure:"table" yaml:"table"`
	Endpoints       []string `mapstructure:"endpoints" yaml:"endpoints"`
	Profile         string   `mapstructure:"profile" yaml:"profile,omitempty"`
	AccessKeyID     string   `mapstructure:"accessKeyId" yaml:"accessKeyId,omitempty"`
	SecretAccessKey string   `mapstructure:"secretAccessKey" yaml:"secretAccessKey,omitempty"`
}

func (c *DynamoDBConfig) GetTableName() string {
	return c.Table
}

func (c *DynamoDBConfig) GetEndpoints() []string {
	return c.Endpoints
}

// BaseEndpoint returns the first endpoint as a URL, or "" to use the AWS default
func (c *DynamoDBConfig) BaseEndpoint() string {
	if len(c.Endpoints) == 0 || c.Endpoints[0] == "" {
		return ""
	}
	ep := c.Endpoints[0]
	if !strings.Contains(ep, "://") {
		ep = "https://" + ep
	}
	return ep
}

func (c *DynamoDBConfig) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("dynamodb region is required: %w", store.ErrConfigMissing)
	}
	if c.Table == "" {
		return fmt.Errorf("dynamodb table is required: %w", store.ErrConfigMissing)
	}
	if (c.AccessKeyID != "" && c.SecretAccessKey == "") ||
		(c.AccessKeyID == "" && c.SecretAccessKey != "") {
		return errors.New("both access key and secret key must be provided together")
	}
	return nil
}

func (c *DynamoDBConfig) String() string {
	return fmt.Sprintf("DynamoDBConfig{Region: %s, Table: %s, Endpoints: %v, Profile: %s}",
		c.Region, c.Table, c.Endpoints, c.Profile)
}

// Clone creates a deep copy of the configuration
func (c *DynamoDBConfig) Clone() *DynamoDBConfig {
	clone := *c
	if c.Endpoints != nil {
		clone.Endpoints = append([]string(nil), c.Endpoints...)
	}
	return &clone
}

// NewDynamoDBConfig creates a new DynamoDB configuration with default values
func NewDynamoDBConfig() *DynamoDBConfig {
	return &DynamoDBConfig{
		Region:    "us-west-2",
		Table:     "kvkeeper",
		Endpoints: []string{"dynamodb.us-west-2.amazonaws.com"},
	}
}
