package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

const (
	// PatternListings matches every cached listing collection response
	PatternListings = "cache:listings*"
	// PatternTransactions matches every cached transaction collection response
	PatternTransactions = "cache:transactions*"

	scanCount = 500
)

// ListingKey is the cache key of a single listing response
func ListingKey(listingID string) string {
	return fmt.Sprintf("cache:listing:%s", listingID)
}

// AssetKey is the cache key of a single asset response
func AssetKey(assetID uint64) string {
	return fmt.Sprintf("cache:asset:%d", assetID)
}

// ListingPatterns returns every key affected by a listing mutation
func ListingPatterns(listingID string, assetID uint64) []string {
	return []string{PatternListings, ListingKey(listingID), AssetKey(assetID), PatternTransactions}
}

// Invalidator drops cached HTTP responses after state changes.
// Invalidation is best effort: failures are logged and never returned.
//
//go:generate mockgen -source=cache.go -destination=../mocks/cache.go -package=mocks -mock_names=Invalidator=MockInvalidator
type Invalidator interface {
	// Invalidate deletes every key matching the glob patterns
	Invalidate(ctx context.Context, patterns ...string)
}

type redisInvalidator struct {
	client adapter.RedisClient
}

// NewRedisInvalidator creates an invalidator backed by Redis
func NewRedisInvalidator(client adapter.RedisClient) Invalidator {
	return &redisInvalidator{client: client}
}

// Invalidate deletes every key matching the glob patterns
func (r *redisInvalidator) Invalidate(ctx context.Context, patterns ...string) {
	var keys []string
	for _, pattern := range patterns {
		matched, err := r.client.ScanKeys(ctx, pattern, scanCount)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to scan cache keys", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		keys = append(keys, matched...)
	}

	if len(keys) == 0 {
		return
	}

	deleted, err := r.client.Del(ctx, keys...)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to delete cache keys", zap.Int("keys", len(keys)), zap.Error(err))
		return
	}

	logger.DebugCtx(ctx, "Invalidated cache", zap.Strings("patterns", patterns), zap.Int64("deleted", deleted))
}

type noopInvalidator struct{}

// NewNoopInvalidator creates an invalidator for deployments without Redis
func NewNoopInvalidator() Invalidator {
	return noopInvalidator{}
}

func (noopInvalidator) Invalidate(context.Context, ...string) {}
