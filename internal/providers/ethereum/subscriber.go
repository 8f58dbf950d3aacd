package ethereum

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
)

// Config holds the configuration for Ethereum subscription
type Config struct {
	WebSocketURL string       // WebSocket URL (e.g., wss://mainnet.infura.io/ws/v3/YOUR_PROJECT_ID)
	ChainID      domain.Chain // e.g., "eip155:1" for Ethereum mainnet
	// Contracts are the ERC-721 contracts whose transfers are streamed
	Contracts []string
	// MaxRetryInterval caps the wait between subscription restarts
	MaxRetryInterval time.Duration
}

// Transfer event signature shared by ERC-20 and ERC-721
// ERC-20: Transfer(address indexed from, address indexed to, uint256 value) - 3 topics
// ERC-721: Transfer(address indexed from, address indexed to, uint256 indexed tokenId) - 4 topics
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

type ethSubscriber struct {
	client EthereumClient
	config Config
}

// NewSubscriber creates a new Ethereum transfer subscriber
func NewSubscriber(cfg Config, ethereumClient EthereumClient) messaging.Subscriber {
	cfg.Contracts = domain.NormalizeAddresses(append([]string(nil), cfg.Contracts...))
	if cfg.MaxRetryInterval == 0 {
		cfg.MaxRetryInterval = time.Minute
	}
	return &ethSubscriber{
		client: ethereumClient,
		config: cfg,
	}
}

// SubscribeEvents streams ERC-721 transfers from fromBlock onwards.
// Logs between fromBlock and the head are backfilled before live logs are handled.
// A dropped subscription or a failing handler restarts the stream from the block of the last unhandled log,
// so events may be delivered more than once but none is skipped.
func (s *ethSubscriber) SubscribeEvents(ctx context.Context, fromBlock uint64, handler messaging.EventHandler) error {
	next := fromBlock

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = s.config.MaxRetryInterval
	if b.InitialInterval > b.MaxInterval {
		b.InitialInterval = b.MaxInterval
	}
	b.MaxElapsedTime = 0

	operation := func() error {
		progressed, err := s.stream(ctx, &next, handler)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if progressed {
			b.Reset()
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.WarnCtx(ctx, "Transfer subscription interrupted, restarting",
			zap.Error(err),
			zap.String("chain", string(s.config.ChainID)),
			zap.Uint64("fromBlock", next),
			zap.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return err
	}
	return nil
}

// stream runs one subscription until it fails, advancing next past every handled block
func (s *ethSubscriber) stream(ctx context.Context, next *uint64, handler messaging.EventHandler) (bool, error) {
	progressed := false

	// Subscribe before backfilling so no log between the head and the subscription start is missed
	logs := make(chan types.Log, 128)
	sub, err := s.client.SubscribeFilterLogs(ctx, transferQuery(s.config.Contracts, nil, nil), logs)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrSubscriptionFailed, err)
	}
	defer func() {
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from transfer logs", zap.String("chain", string(s.config.ChainID)))
	}()

	handle := func(vLog types.Log) error {
		if vLog.Removed {
			return nil
		}
		if *next == 0 {
			// Live-only stream: a restart must backfill from here
			*next = vLog.BlockNumber
		}
		event, err := s.client.ParseTransferLog(ctx, vLog)
		if err != nil {
			return fmt.Errorf("failed to parse log: %w", err)
		}
		if event != nil {
			if err := handler(event); err != nil {
				return fmt.Errorf("failed to handle event: %w", err)
			}
		}
		if vLog.BlockNumber > *next {
			*next = vLog.BlockNumber
			progressed = true
		}
		return nil
	}

	if *next > 0 {
		head, err := s.client.HeadBlock(ctx)
		if err != nil {
			return false, err
		}
		backfill, err := s.client.FilterTransferLogs(ctx, s.config.Contracts, *next, head)
		if err != nil {
			return false, err
		}
		for _, vLog := range backfill {
			if err := handle(vLog); err != nil {
				return progressed, err
			}
		}
		logger.InfoCtx(ctx, "Backfilled transfer logs",
			zap.String("chain", string(s.config.ChainID)),
			zap.Int("logs", len(backfill)),
			zap.Uint64("head", head))
	}

	for {
		select {
		case <-ctx.Done():
			return progressed, ctx.Err()
		case err := <-sub.Err():
			return progressed, fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			if vLog.BlockNumber < *next {
				// Already handled by the backfill
				continue
			}
			if err := handle(vLog); err != nil {
				return progressed, err
			}
		}
	}
}

// GetLatestBlock returns the latest block number
func (s *ethSubscriber) GetLatestBlock(ctx context.Context) (uint64, error) {
	number, err := s.client.GetLatestBlock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block: %w", err)
	}
	return number, nil
}

// Close closes the connection
func (s *ethSubscriber) Close() {
	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum WebSocket connection closed")
}
