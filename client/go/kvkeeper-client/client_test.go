// client/go/kvkeeper-client/client_test.go
package kvkeeperclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// MockHealthClient is a mock implementation of healthpb.HealthClient
type MockHealthClient struct {
	mock.Mock
}

func (m *MockHealthClient) Check(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (*healthpb.HealthCheckResponse, error) {
	args := m.Called(ctx, in)
	if resp := args.Get(0); resp != nil {
		return resp.(*healthpb.HealthCheckResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHealthClient) Watch(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (healthpb.Health_WatchClient, error) {
	args := m.Called(ctx, in)
	if stream := args.Get(0); stream != nil {
		return stream.(healthpb.Health_WatchClient), args.Error(1)
	}
	return nil, args.Error(1)
}

func statusResp(st healthpb.HealthCheckResponse_ServingStatus) *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: st}
}

func forService(name string) interface{} {
	return mock.MatchedBy(func(req *healthpb.HealthCheckRequest) bool {
		return req.GetService() == name
	})
}

func newTestClient(t *testing.T, opts ...Option) (*KVKeeperClient, *MockHealthClient) {
	t.Helper()
	stub := new(MockHealthClient)
	client, err := NewKVKeeperClient("localhost:5050", append([]Option{WithServerStub(stub)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, stub
}

func TestNewKVKeeperClient(t *testing.T) {
	t.Run("empty_address", func(t *testing.T) {
		client, err := NewKVKeeperClient("")
		assert.Nil(t, client)
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		client, err := NewKVKeeperClient("localhost:5050")
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, DefaultService, client.service)
		assert.Equal(t, healthpb.HealthCheckResponse_UNKNOWN, client.LastStatus())
		assert.False(t, client.IsServing())
	})

	t.Run("with_service", func(t *testing.T) {
		client, err := NewKVKeeperClient("localhost:5050", WithService(""))
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, "", client.service)
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("serving", func(t *testing.T) {
		client, stub := newTestClient(t)
		stub.On("Check", mock.Anything, forService(DefaultService)).
			Return(statusResp(healthpb.HealthCheckResponse_SERVING), nil).Once()

		st, err := client.Check(ctx)
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, st)
		assert.True(t, client.IsServing())
		stub.AssertExpectations(t)
	})

	t.Run("not_serving", func(t *testing.T) {
		client, stub := newTestClient(t)
		stub.On("Check", mock.Anything, mock.Anything).
			Return(statusResp(healthpb.HealthCheckResponse_NOT_SERVING), nil).Once()

		st, err := client.Check(ctx)
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, st)
		assert.False(t, client.IsServing())
	})

	t.Run("rpc_error_resets_status", func(t *testing.T) {
		client, stub := newTestClient(t)
		stub.On("Check", mock.Anything, mock.Anything).
			Return(statusResp(healthpb.HealthCheckResponse_SERVING), nil).Once()
		stub.On("Check", mock.Anything, mock.Anything).
			Return(nil, errors.New("unavailable")).Once()

		_, err := client.Check(ctx)
		require.NoError(t, err)
		require.True(t, client.IsServing())

		st, err := client.Check(ctx)
		assert.ErrorContains(t, err, "unavailable")
		assert.Equal(t, healthpb.HealthCheckResponse_UNKNOWN, st)
		assert.False(t, client.IsServing())
	})
}

func TestWaitUntilServing(t *testing.T) {
	t.Run("becomes_serving", func(t *testing.T) {
		client, stub := newTestClient(t)
		stub.On("Check", mock.Anything, mock.Anything).
			Return(statusResp(healthpb.HealthCheckResponse_NOT_SERVING), nil).Twice()
		stub.On("Check", mock.Anything, mock.Anything).
			Return(statusResp(healthpb.HealthCheckResponse_SERVING), nil).Once()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		require.NoError(t, client.WaitUntilServing(ctx, 5*time.Millisecond))
		stub.AssertNumberOfCalls(t, "Check", 3)
	})

	t.Run("context_expires", func(t *testing.T) {
		client, stub := newTestClient(t)
		stub.On("Check", mock.Anything, mock.Anything).
			Return(statusResp(healthpb.HealthCheckResponse_NOT_SERVING), nil)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := client.WaitUntilServing(ctx, 5*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorContains(t, err, "NOT_SERVING")
	})

	t.Run("invalid_interval", func(t *testing.T) {
		client, _ := newTestClient(t)
		assert.Error(t, client.WaitUntilServing(context.Background(), 0))
	})
}

func TestWatch(t *testing.T) {
	client, stub := newTestClient(t)
	stub.On("Check", mock.Anything, mock.Anything).
		Return(statusResp(healthpb.HealthCheckResponse_SERVING), nil).Once()
	stub.On("Check", mock.Anything, mock.Anything).
		Return(statusResp(healthpb.HealthCheckResponse_NOT_SERVING), nil)

	var (
		mu      sync.Mutex
		changes []healthpb.HealthCheckResponse_ServingStatus
	)
	onChange := func(st healthpb.HealthCheckResponse_ServingStatus) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, st)
	}

	ctx := context.Background()
	require.NoError(t, client.StartWatch(ctx, 5*time.Millisecond, onChange))
	assert.Error(t, client.StartWatch(ctx, 5*time.Millisecond, onChange), "second watch must be rejected")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) >= 2
	}, time.Second, 5*time.Millisecond)

	client.StopWatch()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []healthpb.HealthCheckResponse_ServingStatus{
		healthpb.HealthCheckResponse_SERVING,
		healthpb.HealthCheckResponse_NOT_SERVING,
	}, changes)

	// stopping twice is harmless
	client.StopWatch()
}
