package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

const (
	DEFAULT_MONITOR_TIMEOUT          = 2 * time.Minute
	DEFAULT_MONITOR_INITIAL_INTERVAL = time.Second
	DEFAULT_MONITOR_MAX_INTERVAL     = 15 * time.Second
)

// errTransactionPending signals a poll that found no receipt yet
var errTransactionPending = errors.New("transaction pending")

// monitorBackOff returns the polling schedule of MonitorTransaction; the timeout context bounds it
func (i *indexer) monitorBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = DEFAULT_MONITOR_INITIAL_INTERVAL
	if i.config.MonitorInitialInterval > 0 {
		b.InitialInterval = i.config.MonitorInitialInterval
	}
	b.MaxInterval = DEFAULT_MONITOR_MAX_INTERVAL
	if i.config.MonitorMaxInterval > 0 {
		b.MaxInterval = i.config.MonitorMaxInterval
	}
	b.MaxElapsedTime = 0
	return b
}

// MonitorTransaction polls for the receipt of a transaction with exponential backoff.
// It fails with domain.ErrTransactionNotFound when the node does not know the hash and with
// domain.ErrTransactionTimeout when no receipt arrives within the monitor timeout.
func (i *indexer) MonitorTransaction(ctx context.Context, chain domain.Chain, txHash string) (*domain.TransactionOutcome, error) {
	client, err := i.clients.Get(chain)
	if err != nil {
		return nil, err
	}

	timeout := i.config.MonitorTimeout
	if timeout <= 0 {
		timeout = DEFAULT_MONITOR_TIMEOUT
	}
	monitorCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempts := 0
	operation := func() (*domain.TransactionOutcome, error) {
		attempts++
		outcome, err := client.GetTransactionOutcome(monitorCtx, txHash)
		if err != nil {
			if errors.Is(err, domain.ErrTransactionNotFound) {
				return nil, backoff.Permanent(err)
			}
			// Node errors are retried until the timeout
			logger.WarnCtx(ctx, "Failed to poll transaction receipt", zap.String("txHash", txHash), zap.Error(err))
			return nil, err
		}
		if outcome == nil {
			return nil, errTransactionPending
		}
		return outcome, nil
	}

	outcome, err := backoff.RetryWithData(operation, backoff.WithContext(i.monitorBackOff(), monitorCtx))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case monitorCtx.Err() != nil:
			return nil, fmt.Errorf("%w: %s after %d attempts", domain.ErrTransactionTimeout, txHash, attempts)
		default:
			return nil, fmt.Errorf("failed to monitor transaction: %w", err)
		}
	}

	logger.InfoCtx(ctx, "Transaction mined",
		zap.String("txHash", txHash),
		zap.Bool("success", outcome.Success),
		zap.Uint64("block", outcome.BlockNumber))

	return outcome, nil
}
