// Package server exposes extraction progress, batch status and metrics
// over gRPC and a chi HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Config struct {
	GRPCAddr string
	HTTPAddr string // empty disables the HTTP API
}

// Server hosts the gRPC progress service and the HTTP API.
type Server struct {
	cfg    Config
	grpc   *grpc.Server
	health *health.Server
	http   *http.Server
	logger *slog.Logger
}

func New(cfg Config, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	RegisterProgressServiceServer(gs, NewProgressService(d.Progress, d.Batches, logger))

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	// empty string means overall server health
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(progressServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(gs)

	s := &Server{cfg: cfg, grpc: gs, health: hs, logger: logger}
	if cfg.HTTPAddr != "" {
		s.http = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           NewRouter(d),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Run serves until ctx is done, then stops both listeners gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		s.logger.Error("failed to listen on address", "addr", s.cfg.GRPCAddr, "error", err)
		return fmt.Errorf("listen %s: %w", s.cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("gRPC listening", "addr", s.cfg.GRPCAddr)
		if err := s.grpc.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	if s.http != nil {
		go func() {
			s.logger.Info("HTTP listening", "addr", s.cfg.HTTPAddr)
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.logger.Error("server stopped", "error", runErr)
	}
	s.shutdown()
	return runErr
}

func (s *Server) shutdown() {
	s.logger.Info("shutting down")
	s.health.Shutdown()
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown", "error", err)
		}
	}
	s.grpc.GracefulStop()
}
