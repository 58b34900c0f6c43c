package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/logger"
	"github.com/eternalApril/moonkv/internal/metrics"
	"github.com/eternalApril/moonkv/internal/server"
	"github.com/eternalApril/moonkv/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configDir := pflag.String("config", ".", "directory containing config.yaml")
	pflag.Parse()

	if err := run(*configDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("moonkv starting",
		zap.String("port", cfg.Server.Port),
		zap.Uint("shards", cfg.Storage.Shards),
		zap.String("scope", cfg.Storage.Scope),
	)

	db, err := storage.New(storage.Config{Shards: cfg.Storage.Shards})
	if err != nil {
		log.Error("cant initialize storage", zap.Error(err))
		return err
	}

	var m *metrics.Registry
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	engine, err := server.NewEngine(db, cfg, log, m)
	if err != nil {
		log.Error("cant initialize engine", zap.Error(err))
		return err
	}
	defer engine.Shutdown()

	address := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Error("listener error", zap.Error(err))
		return err
	}
	log.Info("listening on", zap.String("address", address))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsLn net.Listener
	if m != nil {
		if metricsLn, err = net.Listen("tcp", cfg.Metrics.Address); err != nil {
			log.Error("metrics listener error", zap.Error(err))
			listener.Close() //nolint:errcheck
			return err
		}
		log.Info("metrics listening on", zap.String("address", cfg.Metrics.Address))
	}

	srv := server.NewServer(engine, cfg, log, m)
	err = serve(ctx, srv, listener, m, metricsLn)

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if waitErr := srv.Wait(shutdownCtx); waitErr != nil {
		log.Warn("Shutdown timed out, forcing exit", zap.Duration("timeout", shutdownTimeout))
	} else {
		log.Info("All connections closed gracefully")
	}

	log.Info("moonkv stopped")
	return err
}

// serve runs the RESP server and, when metricsLn is set, the metrics endpoint until ctx is
// cancelled or either of them stops. The other one is then shut down as well
func serve(ctx context.Context, srv *server.Server, ln net.Listener, m *metrics.Registry, metricsLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// the listener may also close on its own, which must stop the metrics endpoint too
		defer cancel()
		return srv.Serve(gctx, ln)
	})

	if metricsLn != nil {
		metricsSrv := &http.Server{
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			defer cancel()
			if err := metricsSrv.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
