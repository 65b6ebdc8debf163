// Package main runs the product catalog service: NATS command server, REST gateway and gRPC health.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/productcatalog/internal/config"
	"github.com/abgdnv/productcatalog/internal/product/app"
	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	pnats "github.com/abgdnv/productcatalog/pkg/nats"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/abgdnv/productcatalog/pkg/telemetry"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const serviceName = "product"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run wires the dependencies, then serves NATS commands, HTTP, gRPC health and pprof until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer shutdownWithTimeout(tp.Shutdown, cfg.Shutdown.Timeout, "tracer provider", logger)
	}
	mp, err := telemetry.NewMeterProvider(serviceName)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}
	defer shutdownWithTimeout(mp.Shutdown, cfg.Shutdown.Timeout, "meter provider", logger)

	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create database connection pool: %w", err)
	}
	defer dbPool.Close()
	logger.Info("Successfully connected to the database!")

	if cfg.Database.Migrations != "" {
		if err := bootstrap.RunMigrations(cfg.Database.Migrations, cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("Database migrations applied", "dir", cfg.Database.Migrations)
	}

	gormDB, err := bootstrap.NewGormDB(dbPool)
	if err != nil {
		return err
	}

	nc, err := pnats.NewClient(cfg.NATS.Url, cfg.NATS.Name, cfg.NATS.Timeout, logger)
	if err != nil {
		return err
	}
	defer nc.Close()
	logger.Info("Successfully connected to NATS!", "url", nc.ConnectedUrlRedacted())

	publisher, err := newPublisher(ctx, nc, cfg)
	if err != nil {
		return err
	}

	deps := app.SetupDependencies(gormDB, publisher, logger)
	rpcServer, err := app.SetupRPCServer(deps, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up rpc server: %w", err)
	}
	httpServer := app.SetupHttpServer(deps, cfg)
	healthServer := health.NewServer()
	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled, healthServer)
	pprofServer := server.NewPProfServer(cfg.PProf)

	if err := rpcServer.Start(nc); err != nil {
		return err
	}
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gCtx := errgroup.WithContext(ctx)

	// drain command subscriptions first so in-flight requests finish on a live database
	g.Go(func() error {
		<-gCtx.Done()
		healthServer.Shutdown()
		logger.Info("Draining NATS command subscriptions...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return rpcServer.Shutdown(shutdownCtx)
	})

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GRPC.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newPublisher returns a JetStream publisher bound to an ensured stream, or nil when events are disabled.
func newPublisher(ctx context.Context, nc *nats.Conn, cfg *config.Config) (messaging.Publisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	js, err := pnats.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	if err := pnats.EnsureStream(ctx, js, cfg.Events.Stream, cfg.Events.SubjectPrefix); err != nil {
		return nil, err
	}
	return pnats.NewNatsPublisher(js), nil
}

func shutdownWithTimeout(shutdown func(context.Context) error, timeout time.Duration, what string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("failed to shut down "+what, "error", err)
	}
}
