package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds server settings.
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port.
	// Default: 50051
	Port int

	// GracefulTimeout bounds how long shutdown waits for active RPCs.
	// Default: 30 seconds
	GracefulTimeout time.Duration

	// TLS is enabled when both files are set.
	TLSCertFile string
	TLSKeyFile  string

	// Listener overrides Port, e.g. with an in-memory listener.
	Listener net.Listener

	Logger *slog.Logger
}

// DefaultConfig returns default server settings.
func DefaultConfig() *Config {
	return &Config{
		Port:            50051,
		GracefulTimeout: 30 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Config)

// WithPort sets the TCP port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithGracefulShutdown sets the graceful shutdown timeout.
func WithGracefulShutdown(timeout time.Duration) Option {
	return func(c *Config) {
		c.GracefulTimeout = timeout
	}
}

// WithTLS enables TLS with PEM-encoded certificate and key files.
func WithTLS(certFile, keyFile string) Option {
	return func(c *Config) {
		c.TLSCertFile = certFile
		c.TLSKeyFile = keyFile
	}
}

// WithListener serves on lis instead of opening a TCP port.
func WithListener(lis net.Listener) Option {
	return func(c *Config) {
		c.Listener = lis
	}
}

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Server wraps a gRPC server with lifecycle management and the health
// service.
type Server struct {
	grpcServer   *grpc.Server
	listener     net.Listener
	config       *Config
	healthServer *health.Server
	logger       *slog.Logger
}

// NewServer creates a server and registers the health service.
func NewServer(opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultConfig().GracefulTimeout
	}

	listener := cfg.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
		}
	}

	var serverOpts []grpc.ServerOption
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(serverOpts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer:   grpcServer,
		listener:     listener,
		config:       cfg,
		healthServer: healthServer,
		logger:       cfg.Logger,
	}, nil
}

// GRPCServer returns the underlying gRPC server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// HealthServer returns the health service.
func (s *Server) HealthServer() *health.Server {
	return s.healthServer
}

// Serve blocks until ctx is done or the server fails. Cancelling ctx stops
// the server gracefully and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
		close(errCh)
	}()

	s.logger.Info("health server listening", "address", s.listener.Addr().String())

	select {
	case <-ctx.Done():
		s.GracefulStop()
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

// Stop stops the server immediately.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// GracefulStop drains active RPCs, forcing a stop after GracefulTimeout.
func (s *Server) GracefulStop() {
	s.healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.GracefulTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("server stopped gracefully")
	case <-ctx.Done():
		s.logger.Warn("graceful shutdown timeout, forcing stop")
		s.grpcServer.Stop()
	}
}

// Port returns the bound TCP port, useful with port 0.
func (s *Server) Port() int {
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}
