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

	"github.com/coder/quartz"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/scrabble-score/internal/commentary"
	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/handler"
	"github.com/scrabble-score/internal/kafka"
	"github.com/scrabble-score/internal/postgres"
	"github.com/scrabble-score/internal/redis"
	"github.com/scrabble-score/internal/service"
	"github.com/scrabble-score/internal/snapshot"
	"github.com/scrabble-score/internal/websocket"
	"github.com/scrabble-score/internal/worker"
)

type ServeCmd struct {
	Config string `short:"c" default:"config.yaml" help:"Path to YAML configuration file"`
	Port   int    `short:"p" help:"HTTP port (overrides config)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(ctx, &cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": repo.Ping,
	}

	var snapshots service.SnapshotStore
	switch cfg.Snapshot.Backend {
	case config.SnapshotBackendRedis:
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		client, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer client.Close()
		checks["redis"] = pingRedis(client)
		snapshots = redis.NewSnapshotStore(client, cfg.Snapshot.Key, cfg.Snapshot.TTL, logger)
	default:
		snapshots = snapshot.NewFileStore(cfg.Snapshot.Path, logger)
	}

	var completer commentary.Completer
	if cfg.Commentary.APIKey != "" {
		completer = commentary.NewAnthropicClient(&cfg.Commentary)
	} else {
		logger.Info("no commentary API key configured, using canned commentary")
	}
	generator := commentary.NewGenerator(completer, logger)

	hub := websocket.NewHub(logger)
	go hub.Run()

	source := uuid.NewString()
	deps := service.Dependencies{
		Snapshots:   snapshots,
		Games:       repo,
		Commentary:  generator,
		Broadcaster: hub,
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(&cfg.Kafka, source, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without game events", "error", err)
		} else {
			deps.Events = producer
		}
	}

	svc := service.NewGameService(deps, &cfg.Game, quartz.NewReal(), logger)
	hub.SetStateProvider(func() any { return svc.View() })

	if svc.Restore(ctx) {
		logger.Info("restored in-progress session")
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer, err = kafka.NewConsumer(&cfg.Kafka, source, svc, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
			if err := consumer.Start(startCtx); err != nil {
				logger.Warn("Kafka consumer not ready, retrying in background", "error", err)
			}
			startCancel()
		}
	}

	var refresher *worker.HistoryRefresher
	if cfg.History.Enabled {
		refresher = worker.NewHistoryRefresher(svc, &cfg.History, quartz.NewReal(), logger)
		refresher.Start(ctx)
	}

	httpHandler := handler.NewHandler(svc, hub, checks, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	hub.Stop()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if refresher != nil {
		refresher.Stop()
	}

	svc.Close()

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close Kafka producer", "error", err)
		}
	}

	logger.Info("server stopped")
	return runErr
}

func pingRedis(client *goredis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
