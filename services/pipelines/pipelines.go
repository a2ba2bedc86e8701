// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipelines provides the pipeline analysis HTTP service.
//
// The Service type wires configuration, logging, metrics, tracing and the
// route table into one runnable unit. Every request is independent: the
// graph is rebuilt from the submitted pipeline and discarded afterwards.
//
// # Usage
//
//	cfg, err := config.Load("pipelines.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc, err := pipelines.New(cfg, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := svc.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package pipelines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianPipelines/services/pipelines/config"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/middleware"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/observability"
	"github.com/AleutianAI/AleutianPipelines/services/pipelines/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// tracerShutdownTimeout bounds the final span flush.
const tracerShutdownTimeout = 5 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the pipelines service.
//
// # Description
//
// Service abstracts the server lifecycle so the CLI and tests can drive it
// without knowing how it is assembled.
//
// # Thread Safety
//
// Run and Serve block and must be called at most once per instance. Router
// is safe to call at any time.
type Service interface {
	// Run listens on the configured host and port and serves until ctx is
	// cancelled, then shuts down gracefully.
	//
	// # Outputs
	//
	//   - error: Non-nil if the listener cannot be opened, the server fails,
	//     or shutdown exceeds the configured timeout.
	Run(ctx context.Context) error

	// Serve is Run on a caller-provided listener. Serve takes ownership of
	// ln and closes it on return.
	Serve(ctx context.Context, ln net.Listener) error

	// Router returns the configured Gin engine, primarily for tests.
	Router() *gin.Engine
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service.
//
// # Fields
//
//   - config: Validated configuration with defaults applied
//   - logger: Base logger; request loggers derive from it
//   - router: Gin engine with middleware and routes installed
//   - registry: Per-service Prometheus registry (nil when metrics are off)
//   - metrics: Service metrics (nil when metrics are off)
//   - tracerCleanup: Flushes and stops the tracer provider
type service struct {
	config        config.Config
	logger        *slog.Logger
	router        *gin.Engine
	registry      *prometheus.Registry
	metrics       *observability.Metrics
	tracerCleanup func(context.Context) error
	cleanupOnce   sync.Once
}

// =============================================================================
// Constructor
// =============================================================================

// New creates the pipelines Service.
//
// # Description
//
// New:
//  1. Applies defaults to zero-valued fields and validates the config
//  2. Initializes tracing (none, stdout or OTLP)
//  3. Initializes the Prometheus registry and service metrics
//  4. Builds the router, middleware chain and routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - logger: Base logger. Nil uses slog.Default().
//
// # Outputs
//
//   - Service: Ready-to-run service
//   - error: Non-nil if the config is invalid or tracing cannot start
//
// # Examples
//
//	svc, err := New(config.Default(), nil)
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx)
func New(cfg config.Config, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg = applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{
		config: cfg,
		logger: logger,
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if cfg.Telemetry.MetricsEnabled {
		s.initMetrics()
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run implements Service.
func (s *service) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cleanup()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve implements Service.
//
// # Description
//
// Runs the HTTP server and a shutdown watcher in one errgroup. When ctx is
// cancelled the watcher calls http.Server.Shutdown with the configured
// timeout, letting in-flight analyses finish. A server failure cancels the
// watcher the same way.
func (s *service) Serve(ctx context.Context, ln net.Listener) error {
	defer s.cleanup()

	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting pipelines server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down pipelines server",
			"timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("Pipelines server stopped")
	return nil
}

// Router implements Service.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills zero-valued fields from config.Default().
//
// Booleans and Server.Port are left alone because false and 0 are
// meaningful settings (port 0 binds a free port); use config.Default() as
// the starting point to get their defaults.
func applyConfigDefaults(cfg config.Config) config.Config {
	def := config.Default()

	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = def.Server.GinMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.CORS.AllowedOrigin == "" {
		cfg.CORS.AllowedOrigin = def.CORS.AllowedOrigin
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = def.CORS.MaxAge
	}
	if cfg.Limits.MaxBodyBytes == 0 {
		cfg.Limits.MaxBodyBytes = def.Limits.MaxBodyBytes
	}
	if cfg.Limits.Burst == 0 {
		cfg.Limits.Burst = def.Limits.Burst
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Telemetry.TracingExporter == "" {
		cfg.Telemetry.TracingExporter = def.Telemetry.TracingExporter
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.Telemetry.ServiceName
	}

	return cfg
}

// initTracer installs the global tracer provider for the configured
// exporter.
//
// # Description
//
// "none" leaves the global no-op provider in place. "stdout" pretty-prints
// spans to stderr for local debugging. "otlp" exports over an insecure gRPC
// connection to Telemetry.OTLPEndpoint.
//
// # Outputs
//
//   - func(context.Context) error: Flushes spans and releases the exporter
//   - error: Non-nil if the exporter cannot be created
//
// # Limitations
//
//   - The OTLP connection is insecure (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context) error, error) {
	ctx := context.Background()
	tel := s.config.Telemetry

	var (
		exporter sdktrace.SpanExporter
		conn     *grpc.ClientConn
		err      error
	)

	switch tel.TracingExporter {
	case config.ExporterNone:
		return func(context.Context) error { return nil }, nil

	case config.ExporterStdout:
		exporter, err = stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}

	case config.ExporterOTLP:
		conn, err = grpc.NewClient(tel.OTLPEndpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
		}
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", tel.TracingExporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(tel.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	s.logger.Info("Tracing enabled", "exporter", tel.TracingExporter, "endpoint", tel.OTLPEndpoint)

	cleanup := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, tracerShutdownTimeout)
		defer cancel()
		err := provider.Shutdown(ctx)
		if conn != nil {
			err = errors.Join(err, conn.Close())
		}
		return err
	}

	return cleanup, nil
}

// initMetrics creates the per-service registry with the Go runtime and
// process collectors plus the service metrics.
func (s *service) initMetrics() {
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.metrics = observability.NewMetrics(s.registry)
	s.logger.Info("Initialized Prometheus metrics")
}

// initRouter builds the Gin engine, installs the middleware chain in the
// order documented in package middleware, and registers routes.
func (s *service) initRouter() {
	gin.SetMode(s.config.Server.GinMode)

	s.router = gin.New()
	s.router.Use(
		middleware.RequestID(),
		middleware.AccessLog(s.logger),
		middleware.Recovery(),
		otelgin.Middleware(s.config.Telemetry.ServiceName),
		middleware.CORS(s.config.CORS),
		s.metrics.Middleware(),
		middleware.RateLimit(s.config.Limits.RequestsPerSecond, s.config.Limits.Burst),
		middleware.BodyLimit(s.config.Limits.MaxBodyBytes),
	)

	deps := routes.Deps{Metrics: s.metrics}
	if s.registry != nil {
		deps.Gatherer = s.registry
	}
	routes.SetupRoutes(s.router, deps)
}

// cleanup releases the tracer. Safe to call more than once.
func (s *service) cleanup() {
	s.cleanupOnce.Do(func() {
		if s.tracerCleanup == nil {
			return
		}
		if err := s.tracerCleanup(context.Background()); err != nil {
			s.logger.Error("failed to shutdown tracer", "error", err)
		}
	})
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
