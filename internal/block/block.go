package block

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// headInfo is the cached chain head
type headInfo struct {
	number    uint64
	fetchedAt time.Time
}

// BlockProvider provides cached access to the chain head and to block timestamps.
// Transfer logs of the same block share one timestamp lookup.
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockProvider=MockBlockProvider
type BlockProvider interface {
	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBlockTimestamp returns the timestamp for a given block number, potentially from cache
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// BlockFetcher fetches block information from the chain
//
//go:generate mockgen -source=block.go -destination=../mocks/block_provider.go -package=mocks -mock_names=BlockFetcher=MockBlockFetcher
type BlockFetcher interface {
	// FetchLatestBlock fetches the latest block from the chain
	FetchLatestBlock(ctx context.Context) (uint64, error)

	// FetchBlockTimestamp fetches the timestamp for a given block number
	FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// Config holds configuration for the BlockProvider
type Config struct {
	// TTL is how long to cache the head block number
	TTL time.Duration

	// StaleWindow is how long stale data may be served when fetching fails
	StaleWindow time.Duration

	// MaxTimestamps bounds the number of cached block timestamps; the lowest blocks are evicted first
	MaxTimestamps int
}

// DefaultConfig returns the configuration used by the chain clients
func DefaultConfig() Config {
	return Config{
		TTL:           2 * time.Second,
		StaleWindow:   30 * time.Second,
		MaxTimestamps: 1024,
	}
}

type blockProvider struct {
	fetcher BlockFetcher
	config  Config
	clock   adapter.Clock

	mu         sync.RWMutex
	head       *headInfo
	timestamps map[uint64]time.Time
}

// NewBlockProvider creates a new BlockProvider with caching
func NewBlockProvider(fetcher BlockFetcher, config Config, clock adapter.Clock) BlockProvider {
	return &blockProvider{
		fetcher:    fetcher,
		config:     config,
		clock:      clock,
		timestamps: make(map[uint64]time.Time),
	}
}

// GetLatestBlock returns the latest block number, using cache if valid
func (p *blockProvider) GetLatestBlock(ctx context.Context) (uint64, error) {
	p.mu.RLock()
	cached := p.head
	p.mu.RUnlock()

	now := p.clock.Now()
	if cached != nil && now.Sub(cached.fetchedAt) < p.config.TTL {
		return cached.number, nil
	}

	blockNumber, err := p.fetcher.FetchLatestBlock(ctx)
	if err != nil {
		if cached != nil && now.Sub(cached.fetchedAt) < p.config.StaleWindow {
			logger.WarnCtx(ctx, "Using stale block number", zap.Uint64("block_number", cached.number), zap.Error(err))
			return cached.number, nil
		}
		return 0, fmt.Errorf("failed to fetch latest block and no valid cache available: %w", err)
	}

	p.mu.Lock()
	p.head = &headInfo{number: blockNumber, fetchedAt: now}
	p.mu.Unlock()

	return blockNumber, nil
}

// GetBlockTimestamp returns the timestamp for a given block number, using cache if present.
// Timestamps of mined blocks never change, so entries only leave the cache by eviction.
func (p *blockProvider) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	p.mu.RLock()
	cached, ok := p.timestamps[blockNumber]
	p.mu.RUnlock()

	if ok {
		return cached, nil
	}

	logger.DebugCtx(ctx, "Fetching block timestamp", zap.Uint64("block_number", blockNumber))
	timestamp, err := p.fetcher.FetchBlockTimestamp(ctx, blockNumber)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to fetch block timestamp for block %d: %w", blockNumber, err)
	}

	p.mu.Lock()
	p.timestamps[blockNumber] = timestamp
	p.evictLocked()
	p.mu.Unlock()

	return timestamp, nil
}

// evictLocked drops the lowest block numbers until the cache fits MaxTimestamps
func (p *blockProvider) evictLocked() {
	if p.config.MaxTimestamps <= 0 {
		return
	}
	for len(p.timestamps) > p.config.MaxTimestamps {
		var lowest uint64
		first := true
		for number := range p.timestamps {
			if first || number < lowest {
				lowest = number
				first = false
			}
		}
		delete(p.timestamps, lowest)
	}
}
