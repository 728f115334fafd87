package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/sayit/internal/config"
	"github.com/verte-zerg/sayit/internal/health"
	"github.com/verte-zerg/sayit/internal/observe"
	"github.com/verte-zerg/sayit/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve practice sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", config.DefaultAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, s.file.Server.Addr)

	logger, err := newLogger(os.Stderr, s.logLevel)
	if err != nil {
		return err
	}

	provider, err := observe.NewPrometheusProvider(version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down metrics", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return err
	}

	rt, err := newRuntime(s, logger, metrics)
	if err != nil {
		logger.Error("startup failed", "err", err)
		return err
	}
	defer rt.Close(logger)

	setup := health.NewSetup(rt.models, s.datasetsDir,
		health.Checker{Name: "Audio", Check: rt.capture.Probe},
		health.Checker{Name: "Database", Check: rt.store.Ping},
	)
	srv := &http.Server{
		Addr: serveAddr,
		Handler: server.New(server.Options{
			Engine:      rt.engine,
			Leaderboard: rt.store,
			Setup:       setup,
			Metrics:     provider.Handler,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for lang, path := range rt.models.ModelPaths() {
		logger.Info("model", "lang", lang, "path", path)
	}
	logger.Info("datasets", "dir", s.datasetsDir, "db", s.dbPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", serveAddr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "err", err)
		return err
	}
	return nil
}
