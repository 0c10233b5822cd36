// internal/store/dynamodb/dynamodb_store.go
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avivl/kvkeeper/internal/kvservice"
	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StoreName is the registered name of the DynamoDB store
const StoreName = "dynamodb"

const (
	attrKey       = "PK"
	attrValue     = "Val"
	attrMembers   = "Members"
	attrExpiresAt = "ExpiresAt"

	tableWaitTimeout = 5 * time.Minute
)

// Polling bounds for the table waiter. The SDK defaults start at 20s, longer
// than a connect timeout.
var (
	tableWaitMinDelay = 500 * time.Millisecond
	tableWaitMaxDelay = 2 * time.Second
)

var (
	// ErrWrongType is returned when a string operation hits a set item or the reverse
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
	// ErrTableNotActive is returned while the table exists but cannot serve requests yet
	ErrTableNotActive = errors.New("table is not active")
)

// dynamoAPI is the subset of *dynamodb.Client the store relies on
type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Factory function for creating DynamoDB clients.
// Can be replaced during tests for mocking.
var newDynamoClientFn = func(ctx context.Context, config *DynamoDBConfig) (dynamoAPI, error) {
	var clientOpts []func(*awsconfig.LoadOptions) error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		clientOpts = append(clientOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	if config.Profile != "" {
		clientOpts = append(clientOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}
	clientOpts = append(clientOpts, awsconfig.WithRegion(config.Region))

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsConfig, func(o *dynamodb.Options) {
		if ep := config.BaseEndpoint(); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	}), nil
}

// now is replaced in tests
var now = time.Now

func init() {
	kvservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options kvservice.Config, logger *observability.SLogger) (store.KVStore, error) {
	cfg, ok := options.(*DynamoDBConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return NewStore(ctx, cfg, logger)
}

// Store implements store.KVStore on a single DynamoDB table. Strings live in
// Val, sets in the Members string set, and expiry in ExpiresAt (unix seconds).
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *observability.SLogger
	config    *DynamoDBConfig
}

// NewStore creates a DynamoDB store. The table is created if it does not
// exist; DescribeTable doubles as the readiness probe.
func NewStore(ctx context.Context, config *DynamoDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("dynamodb: %w", store.ErrConfigMissing)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	client, err := newDynamoClientFn(ctx, config)
	if err != nil {
		logger.Errorf("Failed to create DynamoDB client: %v", err)
		return nil, err
	}

	s := &Store{
		client:    client,
		tableName: config.Table,
		logger:    logger,
		config:    config,
	}

	if err := s.ensureTableExists(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// GetConfig returns the current store configuration
func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// ensureTableExists creates the table when it is missing and waits until it
// is ACTIVE, bounded by ctx.
func (s *Store) ensureTableExists(ctx context.Context) error {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		if tableStatus(out) == types.TableStatusActive {
			return nil
		}
		return s.waitForTable(ctx)
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		s.logger.Errorf("Failed to describe table %s: %v", s.tableName, err)
		return fmt.Errorf("failed to describe table: %w", err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(attrKey),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(attrKey),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		s.logger.Errorf("Failed to create table: %v", err)
		return fmt.Errorf("failed to create table: %w", err)
	}

	return s.waitForTable(ctx)
}

func (s *Store) waitForTable(ctx context.Context) error {
	waiter := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = tableWaitMinDelay
		o.MaxDelay = tableWaitMaxDelay
	})
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	}, tableWaitTimeout)
	if err != nil {
		s.logger.Errorf("Failed to wait for table %s: %v", s.tableName, err)
		return fmt.Errorf("failed to wait for table: %w", err)
	}
	return nil
}

func tableStatus(out *dynamodb.DescribeTableOutput) types.TableStatus {
	if out == nil || out.Table == nil {
		return ""
	}
	return out.Table.TableStatus
}

func keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

// expired reports whether item carries an ExpiresAt in the past
func expired(item map[string]types.AttributeValue) bool {
	attr, ok := item[attrExpiresAt].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	expiresAt, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return false
	}
	return expiresAt <= now().Unix()
}

func (s *Store) getLive(ctx context.Context, key string) (map[string]types.AttributeValue, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Item) == 0 || expired(out.Item) {
		return nil, nil
	}
	return out.Item, nil
}

// Get returns the string value at key. Expired items are reported as absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	item, err := s.getLive(ctx, key)
	if err != nil || item == nil {
		return "", false, err
	}
	val, ok := item[attrValue].(*types.AttributeValueMemberS)
	if !ok {
		return "", false, ErrWrongType
	}
	return val.Value, true, nil
}

// Set replaces the item at key. ExpiresAt is written only for a whole-second expiry.
func (s *Store) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	item := keyAttr(key)
	item[attrValue] = &types.AttributeValueMemberS{Value: value}
	if ttl := store.TTLSeconds(expiry); ttl > 0 {
		item[attrExpiresAt] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(now().Unix()+ttl, 10),
		}
	}

	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

// SAdd adds members to the string set at key. An expired string item is
// replaced; a live one is rejected with ErrWrongType.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	members = uniqueMembers(members)
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 keyAttr(key),
		UpdateExpression:    aws.String("ADD #m :m REMOVE #v, #e"),
		ConditionExpression: aws.String("attribute_not_exists(#v) OR #e <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#m": attrMembers,
			"#v": attrValue,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":   &types.AttributeValueMemberSS{Value: members},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now().Unix(), 10)},
		},
	})

	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		return ErrWrongType
	}
	return err
}

// uniqueMembers drops repeated members; a string set may not hold duplicates
func uniqueMembers(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// SMembers returns the members of the set at key, or an empty slice
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	item, err := s.getLive(ctx, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return []string{}, nil
	}
	if _, isString := item[attrValue]; isString {
		return nil, ErrWrongType
	}
	set, ok := item[attrMembers].(*types.AttributeValueMemberSS)
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, set.Value...), nil
}

// Delete removes key and returns 1 when a live item was removed
func (s *Store) Delete(ctx context.Context, key string) (int64, error) {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          keyAttr(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return 0, err
	}
	if out == nil || len(out.Attributes) == 0 || expired(out.Attributes) {
		return 0, nil
	}
	return 1, nil
}

// Ping describes the table and fails unless it is ACTIVE
func (s *Store) Ping(ctx context.Context) error {
	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		return err
	}
	if st := tableStatus(out); st != types.TableStatusActive {
		return fmt.Errorf("%w: %s is %q", ErrTableNotActive, s.tableName, st)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connections that need releasing
func (s *Store) Close() error {
	return nil
}
