// cmd/api/main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"

	"trendlens/internal/adapter/events"
	"trendlens/internal/adapter/llm"
	"trendlens/internal/adapter/storage"
	"trendlens/internal/config"
	"trendlens/internal/domain/trend"
	"trendlens/internal/server"
	"trendlens/internal/server/handlers"
	"trendlens/internal/service/explain"
	"trendlens/internal/service/refresh"
	"trendlens/internal/service/synthesis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("trendlens stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize the cache
	redisClient, err := storage.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	cache := storage.NewRedisCache(redisClient)
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("redis is not reachable yet, cache reads will miss", "error", err)
	}
	series := storage.NewSeriesStore(redisClient, logger)
	keywordStore := storage.NewKeywordStore(redisClient)

	// Optional explanation archive
	var archive trend.ExplanationArchive
	if cfg.Database.Enabled() {
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		store := storage.NewExplanationArchive(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		archive = store
		logger.Info("explanation archive enabled", "host", cfg.Database.Host)
	}

	// Optional event bus
	var publisher trend.EventPublisher
	var subscriber handlers.EventSubscriber
	eventsSubject := events.GeneratedSubject(cfg.NATS.EventsTopic)
	if cfg.NATS.URL != "" {
		natsConn, err := events.Connect(cfg.NATS, logger)
		if err != nil {
			return err
		}
		defer natsConn.Drain()

		natsPublisher := events.NewPublisher(natsConn, cfg.NATS.EventsTopic, logger)
		publisher = natsPublisher
		subscriber = events.NewSubscriber(natsConn)
		logger.Info("explanation events enabled", "subject", natsPublisher.Subject())
	}

	// Text generation
	generator, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}
	defer llm.Close(generator)

	// Services
	explainService := explain.NewService(
		cache,
		generator,
		archive,
		publisher,
		logger,
		explain.ServiceConfig{
			ExplanationTTL: cfg.Explain.ExplanationTTL,
			PeakSummaryTTL: cfg.Explain.PeakSummaryTTL,
			HistoryLimit:   cfg.Explain.HistoryLimit,
		},
	)

	tasks := synthesis.NewTaskGroup(logger, synthesis.TaskGroupConfig{
		Timeout:       cfg.Synthesis.TaskTimeout,
		RatePerSecond: cfg.Synthesis.TaskRate,
		Burst:         cfg.Synthesis.TaskBurst,
		MaxTracked:    cfg.Synthesis.MaxTrackedTasks,
	})

	orchestrator := synthesis.NewOrchestrator(
		cache,
		series,
		explainService,
		generator,
		tasks,
		logger,
		synthesis.OrchestratorConfig{
			LookupConcurrency: cfg.Synthesis.LookupConcurrency,
		},
	)

	refresher := refresh.NewRefresher(keywordStore, series, explainService, tasks, logger)
	if cfg.Refresh.Schedule != "" {
		if err := refresher.Start(cfg.Refresh.Schedule); err != nil {
			return err
		}
	}

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, server.Dependencies{
		Explainer:     explainService,
		Regenerator:   refresher,
		Synthesizer:   orchestrator,
		Tasks:         tasks,
		Subscriber:    subscriber,
		EventsSubject: eventsSubject,
		Cache:         cache,
	}, logger)

	// Start HTTP server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port, "llm_provider", cfg.LLM.Provider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-shutdown:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := refresher.Stop(shutdownCtx); err != nil {
		logger.Error("refresh schedule shutdown error", "error", err)
	}

	// Give background generations the rest of the timeout
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn("background tasks cancelled at shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
