// internal/store/dynamodb/mock_dynamodb_test.go
package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDynamoDBClient is a mock implementation of dynamoAPI
type MockDynamoDBClient struct {
	mock.Mock
}

// PutItem mocks the PutItem method
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

// GetItem mocks the GetItem method
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

// DeleteItem mocks the DeleteItem method
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DeleteItemOutput), args.Error(1)
}

// UpdateItem mocks the UpdateItem method
func (m *MockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

// CreateTable mocks the CreateTable method
func (m *MockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.CreateTableOutput), args.Error(1)
}

// DescribeTable mocks the DescribeTable method
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.DescribeTableOutput), args.Error(1)
}

func activeTable() *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusActive},
	}
}

func creatingTable() *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableStatus: types.TableStatusCreating},
	}
}

// withFastWaiter shortens the table waiter polling for the duration of the test
func withFastWaiter(t *testing.T) {
	t.Helper()
	minDelay, maxDelay := tableWaitMinDelay, tableWaitMaxDelay
	tableWaitMinDelay, tableWaitMaxDelay = time.Millisecond, 5*time.Millisecond
	t.Cleanup(func() {
		tableWaitMinDelay, tableWaitMaxDelay = minDelay, maxDelay
	})
}

var fixedNow = time.Unix(1_700_000_000, 0)

// withMockClient swaps the client factory and clock for the duration of the test
func withMockClient(t *testing.T, client *MockDynamoDBClient) {
	t.Helper()
	originalFn, originalNow := newDynamoClientFn, now
	newDynamoClientFn = func(context.Context, *DynamoDBConfig) (dynamoAPI, error) {
		return client, nil
	}
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		newDynamoClientFn = originalFn
		now = originalNow
	})
}

// SetupMockStore returns a connected store backed by a mock client
func SetupMockStore(t *testing.T) (*Store, *MockDynamoDBClient) {
	t.Helper()
	mockClient := new(MockDynamoDBClient)
	mockClient.On("DescribeTable", mock.Anything, mock.Anything).Return(activeTable(), nil).Once()
	withMockClient(t, mockClient)

	logger, _, err := observability.NewTestLogger()
	require.NoError(t, err)

	s, err := NewStore(context.Background(), NewDynamoDBConfig(), logger)
	require.NoError(t, err)
	return s, mockClient
}
