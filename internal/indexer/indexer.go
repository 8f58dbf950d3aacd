package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/store"
)

const (
	DEFAULT_WORKER_POOL_SIZE  = 20
	DEFAULT_WORKER_QUEUE_SIZE = 2048
)

// ErrInvalidEvent is returned for transfer events missing required fields
var ErrInvalidEvent = errors.New("invalid transfer event")

// Config holds the configuration for the indexer
type Config struct {
	WorkerPoolSize  int
	WorkerQueueSize int

	// MonitorTimeout bounds how long MonitorTransaction waits for a receipt
	MonitorTimeout time.Duration
	// MonitorInitialInterval is the first wait between receipt polls
	MonitorInitialInterval time.Duration
	// MonitorMaxInterval caps the wait between receipt polls
	MonitorMaxInterval time.Duration
}

// Indexer maintains the local view of on-chain transfers
//
//go:generate mockgen -source=indexer.go -destination=../mocks/indexer.go -package=mocks -mock_names=Indexer=MockIndexer,TransactionMonitor=MockTransactionMonitor
type Indexer interface {
	TransactionMonitor

	// IndexTransfer records a transfer and advances the asset owner if the event is the newest seen.
	// Replays of an indexed event perform no write.
	IndexTransfer(ctx context.Context, event *domain.TransferEvent) error

	// IndexTransaction indexes every ERC-721 transfer emitted by a mined transaction
	IndexTransaction(ctx context.Context, chain domain.Chain, txHash string) (int, error)

	// Run indexes deliveries until the channel closes or ctx is cancelled.
	// Each delivery is settled with the result of indexing its event.
	Run(ctx context.Context, deliveries <-chan *messaging.Delivery) error
}

// TransactionMonitor waits for the on-chain outcome of a transaction
type TransactionMonitor interface {
	// MonitorTransaction polls for the receipt of a transaction until it is mined or the timeout elapses
	MonitorTransaction(ctx context.Context, chain domain.Chain, txHash string) (*domain.TransactionOutcome, error)
}

type indexer struct {
	store       store.Store
	clients     ethereum.Clients
	invalidator cache.Invalidator
	json        adapter.JSON
	config      Config
}

// NewIndexer creates a new indexer
func NewIndexer(
	st store.Store,
	clients ethereum.Clients,
	invalidator cache.Invalidator,
	jsonAdapter adapter.JSON,
	cfg Config,
) Indexer {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DEFAULT_WORKER_POOL_SIZE
	}
	if cfg.WorkerQueueSize <= 0 {
		cfg.WorkerQueueSize = DEFAULT_WORKER_QUEUE_SIZE
	}
	return &indexer{
		store:       st,
		clients:     clients,
		invalidator: invalidator,
		json:        jsonAdapter,
		config:      cfg,
	}
}

// IndexTransfer records a transfer and advances the asset owner if the event is the newest seen
func (i *indexer) IndexTransfer(ctx context.Context, event *domain.TransferEvent) error {
	if event == nil || !event.Valid() {
		return ErrInvalidEvent
	}

	ctx = logger.WithFields(ctx,
		zap.String("chain", string(event.Chain)),
		zap.String("txHash", event.TxHash),
		zap.Uint64("block", event.BlockNumber),
		zap.Uint("logIndex", event.LogIndex))

	raw, err := i.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := i.store.IndexTransfer(ctx, store.IndexTransferInput{
		Asset:       event.AssetRef(),
		FromAddress: domain.NormalizeAddress(event.FromAddress),
		ToAddress:   domain.NormalizeAddress(event.ToAddress),
		TxHash:      event.TxHash,
		BlockNumber: event.BlockNumber,
		LogIndex:    event.LogIndex,
		Type:        event.TransactionType(),
		Timestamp:   event.Timestamp,
		Raw:         raw,
	})
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to index transfer"))
		return fmt.Errorf("failed to index transfer: %w", err)
	}

	if !result.RecordCreated && !result.OwnerUpdated {
		logger.DebugCtx(ctx, "Transfer already indexed")
		return nil
	}

	logger.InfoCtx(ctx, "Indexed transfer",
		zap.String("asset", event.AssetRef().String()),
		zap.Bool("recordCreated", result.RecordCreated),
		zap.Bool("ownerUpdated", result.OwnerUpdated))

	patterns := []string{cache.PatternTransactions}
	if result.OwnerUpdated && result.Asset != nil {
		patterns = append(patterns, cache.AssetKey(result.Asset.ID))
		i.warnOnStaleListing(ctx, result.Asset.ID, result.Asset.Owner)
	}
	i.invalidator.Invalidate(ctx, patterns...)

	return nil
}

// warnOnStaleListing logs when an asset moved away from the seller of its active listing.
// Such listings are left active; buying them fails on chain and the seller can cancel.
func (i *indexer) warnOnStaleListing(ctx context.Context, assetID uint64, owner string) {
	listing, err := i.store.GetActiveListingByAssetID(ctx, assetID)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to check active listing", zap.Error(err), zap.Uint64("assetID", assetID))
		return
	}
	if listing == nil || domain.SameAddress(listing.Seller, owner) {
		return
	}
	logger.WarnCtx(ctx, "Active listing seller no longer owns the asset",
		zap.String("listingID", listing.ID),
		zap.String("seller", listing.Seller),
		zap.String("owner", owner))
}

// IndexTransaction indexes every ERC-721 transfer emitted by a mined transaction
func (i *indexer) IndexTransaction(ctx context.Context, chain domain.Chain, txHash string) (int, error) {
	client, err := i.clients.Get(chain)
	if err != nil {
		return 0, err
	}

	outcome, err := client.GetTransactionOutcome(ctx, txHash)
	if err != nil {
		return 0, err
	}
	if outcome == nil {
		return 0, fmt.Errorf("transaction %s is still pending", txHash)
	}

	logs, err := client.FilterTransferLogs(ctx, nil, outcome.BlockNumber, outcome.BlockNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to get transfer logs: %w", err)
	}

	hash := common.HexToHash(txHash)
	indexed := 0
	for _, vLog := range logs {
		if vLog.TxHash != hash {
			continue
		}
		event, err := client.ParseTransferLog(ctx, vLog)
		if err != nil {
			return indexed, fmt.Errorf("failed to parse log: %w", err)
		}
		if event == nil {
			continue
		}
		if err := i.IndexTransfer(ctx, event); err != nil {
			return indexed, err
		}
		indexed++
	}

	return indexed, nil
}

// Run indexes deliveries on a bounded worker pool until the channel closes or ctx is cancelled
func (i *indexer) Run(ctx context.Context, deliveries <-chan *messaging.Delivery) error {
	pool := pond.NewPool(
		i.config.WorkerPoolSize,
		pond.WithQueueSize(i.config.WorkerQueueSize),
		pond.WithContext(ctx),
	)

	logger.InfoCtx(ctx, "Indexer worker pool created",
		zap.Int("workers", i.config.WorkerPoolSize),
		zap.Int("queue_size", i.config.WorkerQueueSize))

	defer func() {
		pool.StopAndWait()
		logger.InfoCtx(ctx, "Indexer worker pool shutdown complete",
			zap.Uint64("total_submitted", pool.SubmittedTasks()),
			zap.Uint64("total_completed", pool.CompletedTasks()),
			zap.Uint64("total_failed", pool.FailedTasks()))
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			if delivery == nil {
				continue
			}
			// Submit blocks while the queue is full, which stops reading from the channel
			pool.Submit(func() {
				delivery.Settle(i.IndexTransfer(ctx, delivery.Event))
			})
		}
	}
}
