package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/store"
)

const DEFAULT_OWNERSHIP_TIMEOUT = 10 * time.Second

// Config holds the configuration for the reconciler
type Config struct {
	// OwnershipTimeout bounds the ledger calls of a single ownership check
	OwnershipTimeout time.Duration
}

// Ownership is the owner of an asset observed on chain at a block
type Ownership struct {
	Owner       string `json:"owner"`
	BlockNumber uint64 `json:"block_number"`
	// Updated is true when the stored owner was refreshed by this observation
	Updated bool `json:"updated"`
}

// OwnershipVerifier checks wallet claims against the ledger
//
//go:generate mockgen -source=reconciler.go -destination=../mocks/reconciler.go -package=mocks -mock_names=OwnershipVerifier=MockOwnershipVerifier,Reconciler=MockReconciler
type OwnershipVerifier interface {
	// VerifyOwnership reports whether claimedOwner owns the asset at the current head block.
	// Any ledger failure yields false.
	VerifyOwnership(ctx context.Context, ref domain.AssetRef, claimedOwner string) bool
}

// Reconciler keeps the stored asset owners in line with the ledger
type Reconciler interface {
	OwnershipVerifier

	// Reconcile reads the owner at the head block and refreshes the stored owner when it lags
	Reconcile(ctx context.Context, ref domain.AssetRef) (*Ownership, error)
}

type reconciler struct {
	store       store.Store
	clients     ethereum.Clients
	invalidator cache.Invalidator
	config      Config
}

// NewReconciler creates a new reconciler
func NewReconciler(st store.Store, clients ethereum.Clients, invalidator cache.Invalidator, cfg Config) Reconciler {
	if cfg.OwnershipTimeout <= 0 {
		cfg.OwnershipTimeout = DEFAULT_OWNERSHIP_TIMEOUT
	}
	return &reconciler{
		store:       st,
		clients:     clients,
		invalidator: invalidator,
		config:      cfg,
	}
}

// VerifyOwnership compares the claimed owner with ownerOf at the head block.
// On a match the stored owner is refreshed; refresh failures do not change the answer.
func (r *reconciler) VerifyOwnership(ctx context.Context, ref domain.AssetRef, claimedOwner string) bool {
	ctx = logger.WithFields(ctx,
		zap.String("asset", ref.String()),
		zap.String("claimedOwner", claimedOwner))

	if !domain.IsValidAddress(claimedOwner) {
		return false
	}

	ownership, err := r.ownerAtHead(ctx, ref)
	if err != nil {
		logger.WarnCtx(ctx, "Ownership check failed, treating caller as non-owner", zap.Error(err))
		return false
	}

	if !domain.SameAddress(ownership.Owner, claimedOwner) {
		logger.InfoCtx(ctx, "Claimed owner does not own the asset",
			zap.String("owner", ownership.Owner),
			zap.Uint64("block", ownership.BlockNumber))
		return false
	}

	if _, err := r.refresh(ctx, ref, ownership); err != nil {
		logger.WarnCtx(ctx, "Failed to refresh stored owner", zap.Error(err))
	}

	return true
}

// Reconcile reads the owner at the head block and refreshes the stored owner when it lags
func (r *reconciler) Reconcile(ctx context.Context, ref domain.AssetRef) (*Ownership, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("invalid asset reference: %s", ref)
	}

	ownership, err := r.ownerAtHead(ctx, ref)
	if err != nil {
		return nil, err
	}

	ownership.Updated, err = r.refresh(ctx, ref, ownership)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Reconciled asset owner",
		zap.String("asset", ref.String()),
		zap.String("owner", ownership.Owner),
		zap.Uint64("block", ownership.BlockNumber),
		zap.Bool("updated", ownership.Updated))

	return ownership, nil
}

// ownerAtHead pins the head block first so the owner and its ordering key describe the same state
func (r *reconciler) ownerAtHead(ctx context.Context, ref domain.AssetRef) (*Ownership, error) {
	client, err := r.clients.Get(ref.Chain)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.OwnershipTimeout)
	defer cancel()

	head, err := client.HeadBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}

	owner, err := client.ERC721OwnerOf(ctx, ref.ContractAddress, ref.TokenID, head)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}

	return &Ownership{Owner: domain.NormalizeAddress(owner), BlockNumber: head}, nil
}

// refresh stores the observed owner and invalidates the cached asset when it changed
func (r *reconciler) refresh(ctx context.Context, ref domain.AssetRef, ownership *Ownership) (bool, error) {
	updated, err := r.store.RefreshAssetOwner(ctx, store.RefreshAssetOwnerInput{
		Asset:       ref,
		Owner:       ownership.Owner,
		BlockNumber: ownership.BlockNumber,
	})
	if err != nil {
		return false, fmt.Errorf("failed to refresh asset owner: %w", err)
	}
	if !updated {
		return false, nil
	}

	asset, err := r.store.GetAsset(ctx, ref)
	if err != nil {
		return true, fmt.Errorf("failed to get asset: %w", err)
	}
	if asset != nil {
		r.invalidator.Invalidate(ctx, cache.PatternListings, cache.AssetKey(asset.ID))
	}

	return true, nil
}
