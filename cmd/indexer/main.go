package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/indexer"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/providers/jetstream"
	"github.com/feral-file/ff-marketplace/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIndexerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "indexer",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Transfer Indexer")

	// Connect to database
	db, err := store.Open(cfg.Database.DSN(), "")
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	dataStore := store.NewPGStore(db)
	jsonAdapter := adapter.NewJSON()

	invalidator := cache.NewNoopInvalidator()
	if cfg.Redis.Enabled() {
		redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
		invalidator = cache.NewRedisInvalidator(redisClient)
		logger.InfoCtx(ctx, "Cache invalidation enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Transfers arrive already decoded, so the indexer needs no chain clients
	ledgerIndexer := indexer.NewIndexer(dataStore, ethereum.NewClients(), invalidator, jsonAdapter, indexer.Config{
		WorkerPoolSize:  cfg.Worker.WorkerPoolSize,
		WorkerQueueSize: cfg.Worker.WorkerQueueSize,
	})

	consumer, err := jetstream.NewConsumer(jetstream.ConsumerConfig{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		ConsumerName:   cfg.NATS.ConsumerName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		AckWaitTimeout: cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
	}, adapter.NewNatsJetStream(), jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS consumer", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer consumer.Close()
	logger.InfoCtx(ctx, "Connected to NATS JetStream",
		zap.String("stream", cfg.NATS.StreamName),
		zap.String("consumer", cfg.NATS.ConsumerName),
	)

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The consumer closes deliveries when it stops, which lets the indexer drain and return
	deliveries := make(chan *messaging.Delivery, cfg.Worker.WorkerQueueSize)
	errCh := make(chan error, 2)
	done := make(chan struct{})

	go func() {
		if err := consumer.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("consumer: %w", err)
		}
	}()
	go func() {
		defer close(done)
		if err := ledgerIndexer.Run(ctx, deliveries); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("indexer: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "indexer"))
		cancel()
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("Indexer did not drain in time")
	}

	logger.Info("Transfer Indexer stopped")
}
