package emitter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/store"
)

// Config holds the configuration for the event emitter
type Config struct {
	ChainID         domain.Chain
	StartBlock      uint64
	CursorSaveFreq  uint64        // Save cursor every N blocks
	CursorSaveDelay time.Duration // Or save cursor every N seconds
}

// Emitter defines the interface for the event emitter
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Run starts the event emitter
	Run(ctx context.Context) error
	// Close closes the emitter and cleans up resources
	Close()
}

// emitter forwards on-chain transfer events to NATS and checkpoints the block it has reached
type emitter struct {
	subscriber messaging.Subscriber
	publisher  messaging.Publisher
	cursors    store.CursorStore
	config     Config
	clock      adapter.Clock
}

// NewEmitter creates a new event emitter
func NewEmitter(
	sub messaging.Subscriber,
	pub messaging.Publisher,
	cursors store.CursorStore,
	cfg Config,
	clock adapter.Clock,
) Emitter {
	return &emitter{
		subscriber: sub,
		publisher:  pub,
		cursors:    cursors,
		config:     cfg,
		clock:      clock,
	}
}

// startBlock resolves the block to subscribe from: configured, resumed from the cursor, or the chain head
func (e *emitter) startBlock(ctx context.Context) (uint64, error) {
	chain := string(e.config.ChainID)
	if e.config.StartBlock > 0 {
		logger.InfoCtx(ctx, "Starting from configured block", zap.String("chain", chain), zap.Uint64("block", e.config.StartBlock))
		return e.config.StartBlock, nil
	}

	lastBlock, err := e.cursors.GetBlockCursor(ctx, chain)
	if err != nil {
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}
	if lastBlock > 0 {
		// The cursor block may be only partially published; events are idempotent downstream
		logger.InfoCtx(ctx, "Resuming from last processed block", zap.String("chain", chain), zap.Uint64("block", lastBlock))
		return lastBlock, nil
	}

	latestBlock, err := e.subscriber.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	logger.InfoCtx(ctx, "Starting from latest block", zap.String("chain", chain), zap.Uint64("block", latestBlock))
	return latestBlock, nil
}

// Run starts the event emitter
func (e *emitter) Run(ctx context.Context) error {
	startBlock, err := e.startBlock(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		logger.InfoCtx(ctx, "Starting event subscription", zap.String("chain", string(e.config.ChainID)))

		lastSavedBlock := uint64(0)
		lastSaveTime := e.clock.Now()

		handler := func(event *domain.TransferEvent) error {
			if err := e.publisher.PublishEvent(ctx, event); err != nil {
				return fmt.Errorf("failed to publish event %s: %w", event.TxHash, err)
			}

			// Save cursor periodically (every N blocks or N seconds)
			shouldSave := event.BlockNumber-lastSavedBlock >= e.config.CursorSaveFreq ||
				e.clock.Since(lastSaveTime) >= e.config.CursorSaveDelay

			if shouldSave {
				if err := e.cursors.SetBlockCursor(ctx, string(e.config.ChainID), event.BlockNumber); err != nil {
					logger.WarnCtx(ctx, "Failed to save block cursor",
						zap.Error(err),
						zap.Uint64("block", event.BlockNumber))
				} else {
					lastSavedBlock = event.BlockNumber
					lastSaveTime = e.clock.Now()
				}
			}

			return nil
		}

		if err := e.subscriber.SubscribeEvents(ctx, startBlock, handler); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the emitter and cleans up resources
func (e *emitter) Close() {
	e.subscriber.Close()
	e.publisher.Close()
}
