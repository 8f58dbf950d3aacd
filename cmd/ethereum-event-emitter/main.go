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
	"github.com/feral-file/ff-marketplace/internal/block"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/emitter"
	"github.com/feral-file/ff-marketplace/internal/logger"
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
	cfg, err := config.LoadEthereumEmitterConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "ethereum-event-emitter",
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Ethereum Event Emitter", zap.Strings("contracts", cfg.Ethereum.Contracts))

	// Connect to database
	db, err := store.Open(cfg.Database.DSN(), "")
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}
	logger.InfoCtx(ctx, "Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()

	// Initialize ethereum client
	ethDialer := adapter.NewEthClientDialer()
	adapterEthClient, err := ethDialer.Dial(ctx, cfg.Ethereum.WebSocketURL)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to dial Ethereum RPC", zap.Error(err), zap.String("websocket_url", cfg.Ethereum.WebSocketURL))
	}
	blockProvider := block.NewBlockProvider(ethereum.NewBlockFetcher(adapterEthClient), block.DefaultConfig(), clockAdapter)
	ethereumClient := ethereum.NewClient(cfg.Ethereum.ChainID, adapterEthClient, blockProvider)

	// Initialize NATS publisher
	natsPublisher, err := jetstream.NewPublisher(
		ctx,
		jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, natsJS, jsonAdapter)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create NATS publisher", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	logger.InfoCtx(ctx, "Connected to NATS JetStream")

	// Initialize Ethereum subscriber
	ethSubscriber := ethereum.NewSubscriber(ethereum.Config{
		WebSocketURL: cfg.Ethereum.WebSocketURL,
		ChainID:      cfg.Ethereum.ChainID,
		Contracts:    cfg.Ethereum.Contracts,
	}, ethereumClient)

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	eventEmitter := emitter.NewEmitter(
		ethSubscriber,
		natsPublisher,
		store.NewCursorStore(dataStore),
		emitter.Config{
			ChainID:         cfg.Ethereum.ChainID,
			StartBlock:      cfg.Ethereum.StartBlock,
			CursorSaveFreq:  cfg.Cursor.SaveFreq,
			CursorSaveDelay: cfg.Cursor.SaveDelay,
		},
		clockAdapter,
	)
	// Closes the subscriber (and its ethereum client) and the publisher
	defer eventEmitter.Close()

	// Channel for emitter errors
	errCh := make(chan error, 1)

	// Start the emitter
	go func() {
		if err := eventEmitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "emitter"))
		cancel()
	}

	// Give some time for graceful shutdown
	time.Sleep(time.Second)

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Ethereum Event Emitter stopped")
}
