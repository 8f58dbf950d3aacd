package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-marketplace/internal/adapter"
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

// app holds the services shared by every subcommand
type app struct {
	json        adapter.JSON
	clients     ethereum.Clients
	indexer     indexer.Indexer
	reconciler  reconciler.Reconciler
	marketplace marketplace.Service
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// print writes v to stdout as JSON
func (a *app) print(v interface{}) error {
	data, err := a.json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func newApp(ctx context.Context, configFile, envPath string) (*app, error) {
	cfg, err := config.LoadMarketctlConfig(configFile, envPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "marketctl",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{json: adapter.NewJSON()}
	a.closers = append(a.closers, func() { logger.Flush(2 * time.Second) })

	db, err := store.Open(cfg.Database.DSN(), "")
	if err != nil {
		a.Close()
		return nil, err
	}
	dataStore := store.NewPGStore(db)
	clockAdapter := adapter.NewClock()

	endpoints := make(map[domain.Chain]string)
	for _, chain := range cfg.Chains() {
		endpoints[chain.ChainID] = chain.RPCURL
	}
	a.clients, err = ethereum.DialClients(ctx, adapter.NewEthClientDialer(), clockAdapter, endpoints)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.clients.Close)

	invalidator := cache.NewNoopInvalidator()
	if cfg.Redis.Enabled() {
		redisClient := adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		invalidator = cache.NewRedisInvalidator(redisClient)
	}

	a.indexer = indexer.NewIndexer(dataStore, a.clients, invalidator, a.json, indexer.Config{
		MonitorTimeout:         cfg.Marketplace.MonitorTimeout,
		MonitorInitialInterval: cfg.Marketplace.MonitorInitialInterval,
		MonitorMaxInterval:     cfg.Marketplace.MonitorMaxInterval,
	})
	a.reconciler = reconciler.NewReconciler(dataStore, a.clients, invalidator, reconciler.Config{
		OwnershipTimeout: cfg.Marketplace.OwnershipTimeout,
	})
	a.marketplace = marketplace.NewService(dataStore, a.reconciler, a.indexer, invalidator, clockAdapter)

	return a, nil
}

// withApp wraps a subcommand so it runs with the shared services and a signal-aware context
func withApp(run func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		envPath, _ := cmd.Flags().GetString("env")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		config.ChdirRepoRoot()
		a, err := newApp(ctx, configFile, envPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := run(ctx, a, args); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("command", cmd.Name()))
			return err
		}
		return nil
	}
}

func main() {
	root := &cobra.Command{
		Use:          "marketctl",
		Short:        "Operator commands for the Feral File marketplace",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to configuration file")
	root.PersistentFlags().String("env", "config/", "Path to environment files")

	root.AddCommand(newSettleCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newIndexTxCmd())
	root.AddCommand(newMonitorTxCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
