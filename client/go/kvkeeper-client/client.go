// client/go/kvkeeper-client/client.go
package kvkeeperclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// DefaultService is the health-checked service name exposed by kvkeeper
const DefaultService = "kvkeeper"

// KVKeeperClient checks the readiness of a kvkeeper server
type KVKeeperClient struct {
	mu              sync.Mutex
	notifyStop      chan struct{}
	notifyWaitGroup sync.WaitGroup
	service         string
	lastStatus      healthpb.HealthCheckResponse_ServingStatus
	healthClient    healthpb.HealthClient
	conn            *grpc.ClientConn
}

// Option is a function that configures a KVKeeperClient
type Option func(*KVKeeperClient)

// WithServerStub allows injecting a mock client for testing
func WithServerStub(stub healthpb.HealthClient) Option {
	return func(c *KVKeeperClient) {
		c.healthClient = stub
	}
}

// WithService checks a different service name; "" checks overall server health
func WithService(service string) Option {
	return func(c *KVKeeperClient) {
		c.service = service
	}
}

// NewKVKeeperClient creates a new client for the kvkeeper health service
func NewKVKeeperClient(address string, opts ...Option) (*KVKeeperClient, error) {
	if address == "" {
		return nil, errors.New("server address cannot be empty")
	}

	conn, err := grpc.NewClient(
		address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}))
	if err != nil {
		return nil, fmt.Errorf("could not connect to server: %w", err)
	}

	client := &KVKeeperClient{
		service:      DefaultService,
		lastStatus:   healthpb.HealthCheckResponse_UNKNOWN,
		healthClient: healthpb.NewHealthClient(conn),
		conn:         conn,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases resources held by the client
func (c *KVKeeperClient) Close() error {
	c.StopWatch()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Check asks the server once for the service status
func (c *KVKeeperClient) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: c.service})
	if err != nil {
		c.setStatus(healthpb.HealthCheckResponse_UNKNOWN)
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("failed to check health: %w", err)
	}

	c.setStatus(resp.GetStatus())
	return resp.GetStatus(), nil
}

// WaitUntilServing polls Check every interval until the service reports
// SERVING or ctx is done.
func (c *KVKeeperClient) WaitUntilServing(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be greater than zero")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.Check(ctx)
		if err == nil && st == healthpb.HealthCheckResponse_SERVING {
			return nil
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("%w: %w", ctx.Err(), err)
			}
			return fmt.Errorf("%w: last status %s", ctx.Err(), st)
		case <-ticker.C:
		}
	}
}

func (c *KVKeeperClient) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastStatus = st
}

// LastStatus returns the status seen by the most recent check
func (c *KVKeeperClient) LastStatus() healthpb.HealthCheckResponse_ServingStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// IsServing reports whether the most recent check returned SERVING
func (c *KVKeeperClient) IsServing() bool {
	return c.LastStatus() == healthpb.HealthCheckResponse_SERVING
}

// StartWatch starts a background goroutine that checks every interval and
// calls onChange whenever the status differs from the previous check.
func (c *KVKeeperClient) StartWatch(ctx context.Context, interval time.Duration, onChange func(healthpb.HealthCheckResponse_ServingStatus)) error {
	if interval <= 0 {
		return errors.New("interval must be greater than zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.notifyStop != nil {
		return errors.New("watch is already running")
	}

	stop := make(chan struct{})
	c.notifyStop = stop
	c.notifyWaitGroup.Add(1)

	go func() {
		defer c.notifyWaitGroup.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		previous := c.LastStatus()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, interval)
				st, _ := c.Check(checkCtx)
				cancel()

				if st != previous {
					previous = st
					if onChange != nil {
						onChange(st)
					}
				}
			}
		}
	}()

	return nil
}

// StopWatch stops the background watch goroutine
func (c *KVKeeperClient) StopWatch() {
	c.mu.Lock()
	stop := c.notifyStop
	c.notifyStop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		c.notifyWaitGroup.Wait()
	}
}
