// internal/server/server.go
package server

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/avivl/kvkeeper/internal/config"
	"github.com/avivl/kvkeeper/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-checked service name
const ServiceName = "kvkeeper"

const DefaultProbeInterval = 10 * time.Second

// StoreService is the store the server reports on
type StoreService interface {
	Connect(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Server exposes grpc.health.v1.Health, SERVING only while the store pings
type Server struct {
	server        *grpc.Server
	health        *health.Server
	listener      net.Listener
	logger        *observability.SLogger
	metrics       observability.MetricsClient
	store         StoreService
	address       string
	probeInterval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewServer(
	cfg *config.Settings,
	store StoreService,
	logger *observability.SLogger,
	metrics observability.MetricsClient,
) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	probeInterval := cfg.ProbeInterval
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}

	return &Server{
		logger:        logger,
		metrics:       metrics,
		store:         store,
		address:       cfg.ServerAddress,
		probeInterval: probeInterval,
	}, nil
}

// Start listens on the configured address and serves until Stop
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.ErrorCtx(ctx, err)
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until Stop. The store is probed immediately and
// then every probe interval. Serve returns at once if Stop already ran.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if listener == nil {
		return errors.New("listener is required")
	}

	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionAge:      30 * time.Second,
		MaxConnectionAgeGrace: 10 * time.Second,
	}

	ui := grpc.ChainUnaryInterceptor(
		s.unaryServerInterceptor(),
	)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	probeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.listener = listener
	s.server = grpc.NewServer(grpc.KeepaliveParams(keepaliveParams), ui)
	s.health = health.NewServer()
	s.cancel = cancel
	s.done = done
	grpcServer, healthServer := s.server, s.health
	s.mu.Unlock()

	healthpb.RegisterHealthServer(grpcServer, healthServer)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)

	go s.probeLoop(probeCtx, done)

	s.logger.InfoCtx(ctx, "server listening at "+listener.Addr().String())

	if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		cancel()
		<-done
		return err
	}
	return nil
}

// Stop stops probing, drains the gRPC server, and closes the store
func (s *Server) Stop() error {
	s.logger.Info("stopping server")

	s.mu.Lock()
	grpcServer, healthServer := s.server, s.health
	cancel, done := s.cancel, s.done
	s.server, s.health, s.cancel, s.done = nil, nil, nil, nil
	s.stopped = true
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if healthServer != nil {
		healthServer.Shutdown()
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	return s.store.Close()
}

func (s *Server) probeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		s.probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// probe connects if needed and pings once, bounded by the probe interval
func (s *Server) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeInterval)
	defer cancel()

	err := s.store.Connect(probeCtx)
	if err == nil {
		err = s.store.Ping(probeCtx)
	}
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	healthServer := s.health
	s.mu.Unlock()

	if healthServer == nil {
		return
	}
	healthServer.SetServingStatus("", st)
	healthServer.SetServingStatus(ServiceName, st)
}

func (s *Server) unaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		methodName := strings.TrimPrefix(info.FullMethod, "/")

		resp, err := handler(ctx, req)

		if s.metrics == nil {
			return resp, err
		}

		s.metrics.Increment(ctx, "grpc.requests.total", 1,
			"method", methodName,
			"status", status.Code(err).String(),
		)

		if err := s.metrics.RecordLatency(ctx, time.Since(start),
			"method", methodName,
			"status", status.Code(err).String(),
		); err != nil {
			s.logger.ErrorCtx(ctx, err)
		}

		return resp, err
	}
}
