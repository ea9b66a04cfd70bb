package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/wellbeing/db"
	"github.com/garnizeh/wellbeing/api"
	"github.com/garnizeh/wellbeing/internal/analysis"
	"github.com/garnizeh/wellbeing/internal/cache"
	"github.com/garnizeh/wellbeing/internal/config"
	"github.com/garnizeh/wellbeing/internal/db"
	"github.com/garnizeh/wellbeing/internal/repository/sqlite"
	"github.com/garnizeh/wellbeing/internal/stats"
	"github.com/garnizeh/wellbeing/pkg/scoring"
)

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// statsCache is the cache surface shared by the aggregator, the coordinator
// and the health check.
type statsCache interface {
	stats.Cache
	analysis.Invalidator
	api.Pinger
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	api.SetLogger(logger)
	scoring.SetLogger(logger)
	analysis.SetLogger(logger)
	stats.SetLogger(logger)

	logger.Info("starting wellbeing server", slog.String("version", version), slog.String("build_time", buildTime))

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("error closing db", slog.Any("err", err))
		}
	}()

	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	repo := sqlite.New(database, logger)

	var sc statsCache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		rc := cache.NewStatisticsCache(client, cfg.Redis.TTL)
		if err := rc.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup; statistics will be computed on demand", slog.Any("err", err))
		}
		sc = rc
	}

	scorer, err := scoring.New(cfg.Scoring, nil)
	if err != nil {
		return fmt.Errorf("scoring client: %w", err)
	}
	if c, ok := scorer.(interface{ Close() error }); ok {
		defer c.Close()
	}

	validator, err := analysis.NewValidator()
	if err != nil {
		return fmt.Errorf("analysis validator: %w", err)
	}

	handler := api.SetupRoutes(cfg, version, buildTime, api.Dependencies{
		Users:     repo,
		Questions: repo,
		Responses: repo,
		Analyzer:  analysis.NewCoordinator(repo, repo, scorer, validator, sc),
		Stats:     stats.NewAggregator(repo, sc),
		DB:        database,
		Cache:     sc,
	})

	server := newHTTPServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// newHTTPServer applies the request timeout. cfg.APITimeout is validated to
// outlast a scoring call that uses up every retry.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}
}
