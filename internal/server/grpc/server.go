// Package grpc exposes the standard gRPC health service for kosync. The
// reported status follows the store: SERVING while it answers, NOT_SERVING
// when a probe fails or the server is shutting down.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/kosync/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("")
// status.
const ServiceName = "kosync.Sync"

type GRPCServer struct {
	address       string
	logger        logging.Logger
	health        *health.Server
	probe         Probe
	probeInterval time.Duration
	stopTimeout   time.Duration
}

type Option func(*GRPCServer)

// WithProbe makes the server check the store every interval and report its
// state through the health service.
func WithProbe(p Probe, interval time.Duration) Option {
	return func(s *GRPCServer) {
		s.probe = p
		s.probeInterval = interval
	}
}

// WithStopTimeout bounds how long GracefulStop may wait before in-flight calls
// are cut off.
func WithStopTimeout(d time.Duration) Option {
	return func(s *GRPCServer) {
		s.stopTimeout = d
	}
}

func NewGRPCServer(address string, l logging.Logger, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:     address,
		logger:      l.With("module", "grpc_server"),
		health:      health.NewServer(),
		stopTimeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.correlationUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.correlationStreamInterceptor),
	)
	healthpb.RegisterHealthServer(srv, s.health)

	s.setServing(true)

	probeCtx, stopProbe := context.WithCancel(ctx)
	defer stopProbe()
	if s.probe != nil {
		go s.runProbe(probeCtx)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		s.gracefulStop(srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}

func (s *GRPCServer) gracefulStop(srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		srv.Stop()
	}
}

func (s *GRPCServer) setServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
