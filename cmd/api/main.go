package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/server"
	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/indexer"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/reconciler"
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
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
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
			"service": "marketplace-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Feral File Marketplace API")

	// Connect to database
	db, err := store.Open(cfg.Database.DSN(), cfg.Database.ReadDSN())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("host", cfg.Database.Host))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Bool("read_replica", cfg.Database.ReadHost != ""),
	)

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()

	// Connect to the ledgers
	endpoints := make(map[domain.Chain]string)
	for _, chain := range cfg.Chains() {
		endpoints[chain.ChainID] = chain.RPCURL
	}
	clients, err := ethereum.DialClients(ctx, adapter.NewEthClientDialer(), clockAdapter, endpoints)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to chain RPC", zap.Error(err))
	}
	defer clients.Close()
	if len(clients) == 0 {
		logger.WarnCtx(ctx, "No chain RPC configured, listings cannot be created")
	}

	// Redis backs cache invalidation and the shared rate limiter
	invalidator := cache.NewNoopInvalidator()
	var rateLimiter adapter.RedisRateLimiter
	if cfg.Redis.Enabled() {
		redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx); err != nil {
			logger.WarnCtx(ctx, "Redis is unreachable, rate limits fall back to process-local limiters", zap.Error(err))
		}
		invalidator = cache.NewRedisInvalidator(redisClient)
		rateLimiter = redisClient.NewRateLimiter()
		logger.InfoCtx(ctx, "Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Assemble services
	ledgerIndexer := indexer.NewIndexer(dataStore, clients, invalidator, jsonAdapter, indexer.Config{
		MonitorTimeout:         cfg.Marketplace.MonitorTimeout,
		MonitorInitialInterval: cfg.Marketplace.MonitorInitialInterval,
		MonitorMaxInterval:     cfg.Marketplace.MonitorMaxInterval,
	})
	ownership := reconciler.NewReconciler(dataStore, clients, invalidator, reconciler.Config{
		OwnershipTimeout: cfg.Marketplace.OwnershipTimeout,
	})
	market := marketplace.NewService(dataStore, ownership, ledgerIndexer, invalidator, clockAdapter)

	authService, err := auth.NewService(dataStore, clockAdapter, auth.Config{
		PrivateKeyPEM: cfg.Auth.JWTPrivateKey,
		PublicKeyPEM:  cfg.Auth.JWTPublicKey,
		Issuer:        cfg.Auth.JWTIssuer,
		TokenTTL:      cfg.Auth.TokenTTL,
		NonceTTL:      cfg.Auth.NonceTTL,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to initialize auth", zap.Error(err))
	}

	// Create server config
	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	if cfg.RateLimit.Enabled {
		serverConfig.RateLimit = middleware.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Period:   cfg.RateLimit.Period,
		}
	}

	srv := server.New(serverConfig, market, authService, rateLimiter)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
