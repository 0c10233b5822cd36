// internal/kvservice/service.go
package kvservice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/store"
)

// DefaultConnectTimeout bounds the readiness probe when no timeout is configured
const DefaultConnectTimeout = 5 * time.Second

const operationsMetricName = "kvkeeper.operations"

// State is the connection state of a Service
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Service owns the single store handle for one backend. Connect creates the
// handle once; every data operation fails with store.ErrNotConnected until it
// has succeeded.
type Service struct {
	backend        string
	label          string
	config         store.StoreConfig
	logger         *observability.SLogger
	metrics        observability.MetricsClient
	connectTimeout time.Duration

	// connectMu serializes Connect and Close; mu guards client only so
	// data operations never wait behind a readiness probe.
	connectMu sync.Mutex
	mu        sync.RWMutex
	client    store.KVStore
	state     atomic.Int32
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records per-operation counters and latency on m
func WithMetrics(m observability.MetricsClient) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConnectTimeout overrides DefaultConnectTimeout. Non-positive values are ignored.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithLabel sets the prefix used in error logs, e.g. "Redis"
func WithLabel(label string) Option {
	return func(s *Service) {
		if label != "" {
			s.label = label
		}
	}
}

// New creates a disconnected Service for the registered backend.
func New(backend string, config store.StoreConfig, logger *observability.SLogger, opts ...Option) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	s := &Service{
		backend:        backend,
		label:          defaultLabel(backend),
		config:         config,
		logger:         logger,
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultLabel(backend string) string {
	if backend == "" {
		return "Store"
	}
	return strings.ToUpper(backend[:1]) + backend[1:]
}

// Backend returns the registered backend name
func (s *Service) Backend() string {
	return s.backend
}

// State returns the current connection state
func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(st State) {
	s.state.Store(int32(st))
}

// Client returns the connected handle, or nil before a successful Connect
func (s *Service) Client() store.KVStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Connect establishes the handle. It is a no-op once a handle exists, and it
// does not re-check liveness of that handle. Concurrent callers are
// serialized so at most one handle is ever created.
func (s *Service) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.Client() != nil {
		return nil
	}

	if err := s.checkConfig(); err != nil {
		s.logger.OpError(ctx, s.opLabel("connectDB"), err)
		return err
	}

	s.setState(StateConnecting)

	probeCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	client, err := NewStore(probeCtx, s.backend, s.config, s.logger)
	if err == nil && client == nil {
		err = errors.New("constructor returned no store")
	}
	if err != nil {
		s.setState(StateFailed)
		err = classifyConnectError(probeCtx, err)
		s.logger.OpError(ctx, s.opLabel("checkConnection"), err)
		return err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	s.setState(StateConnected)
	s.logger.Infow("store connected", "backend", s.backend, "endpoints", s.config.GetEndpoints())
	return nil
}

// ConnectDB is Connect reduced to a boolean. Failures are logged by Connect.
func (s *Service) ConnectDB(ctx context.Context) bool {
	return s.Connect(ctx) == nil
}

func (s *Service) checkConfig() error {
	if s.config == nil {
		return fmt.Errorf("%s config not found: %w", s.backend, store.ErrConfigMissing)
	}
	if v := reflect.ValueOf(s.config); v.Kind() == reflect.Ptr && v.IsNil() {
		return fmt.Errorf("%s config not found: %w", s.backend, store.ErrConfigMissing)
	}
	return s.config.Validate()
}

func classifyConnectError(probeCtx context.Context, err error) error {
	var unknown *store.UnknownConstructorError
	var invalid *store.InvalidConfigurationError
	switch {
	case errors.As(err, &unknown), errors.As(err, &invalid), errors.Is(err, store.ErrConfigMissing):
		return err
	case errors.Is(probeCtx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", store.ErrConnectTimeout, err)
	default:
		return fmt.Errorf("%w: %w", store.ErrNotReady, err)
	}
}

// Close releases the handle and returns the Service to StateDisconnected
func (s *Service) Close() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	s.setState(StateDisconnected)
	if client == nil {
		return nil
	}
	return client.Close()
}

// Get returns the value at key. found is false when the key does not exist.
func (s *Service) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = s.do(ctx, "get", func(c store.KVStore) error {
		var opErr error
		value, found, opErr = c.Get(ctx, key)
		return opErr
	})
	return value, found, err
}

// Set stores value at key. expiry attaches a TTL only when it is at least one second.
func (s *Service) Set(ctx context.Context, key, value string, expiry time.Duration) error {
	return s.do(ctx, "set", func(c store.KVStore) error {
		return c.Set(ctx, key, value, expiry)
	})
}

// SAdd adds members to the set at key
func (s *Service) SAdd(ctx context.Context, key string, members ...string) error {
	return s.do(ctx, "sadd", func(c store.KVStore) error {
		if len(members) == 0 {
			return store.ErrNoMembers
		}
		return c.SAdd(ctx, key, members...)
	})
}

// SMembers returns the members of the set at key
func (s *Service) SMembers(ctx context.Context, key string) (members []string, err error) {
	err = s.do(ctx, "smembers", func(c store.KVStore) error {
		var opErr error
		members, opErr = c.SMembers(ctx, key)
		return opErr
	})
	return members, err
}

// Delete removes key and returns how many keys were removed
func (s *Service) Delete(ctx context.Context, key string) (removed int64, err error) {
	err = s.do(ctx, "delete", func(c store.KVStore) error {
		var opErr error
		removed, opErr = c.Delete(ctx, key)
		return opErr
	})
	return removed, err
}

// Ping checks the connected handle
func (s *Service) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", func(c store.KVStore) error {
		return c.Ping(ctx)
	})
}

// do runs fn against the handle, then logs and wraps any failure.
func (s *Service) do(ctx context.Context, op string, fn func(store.KVStore) error) error {
	start := time.Now()

	err := store.ErrNotConnected
	if client := s.Client(); client != nil {
		err = fn(client)
	}

	s.record(ctx, op, time.Since(start), err)

	if err != nil {
		s.logger.OpError(ctx, s.opLabel(op), err)
		return &store.OpError{Op: op, Err: err}
	}
	return nil
}

func (s *Service) record(ctx context.Context, op string, d time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	s.metrics.Increment(ctx, operationsMetricName, 1,
		"backend", s.backend,
		"operation", op,
		"status", status,
	)
	if recErr := s.metrics.RecordLatency(ctx, d,
		"backend", s.backend,
		"operation", op,
	); recErr != nil {
		s.logger.ErrorCtx(ctx, recErr)
	}
}

func (s *Service) opLabel(op string) string {
	return s.label + ":" + op + "()"
}
