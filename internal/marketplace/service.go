package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/indexer"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/reconciler"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

const (
	DEFAULT_PAGE_LIMIT = 20
	MAX_PAGE_LIMIT     = 100
)

// CreateListingInput represents a request to list an asset
type CreateListingInput struct {
	Asset          domain.AssetRef
	Seller         string
	Price          string
	Currency       string
	ListingType    domain.ListingType
	AuctionEndTime *time.Time
	TxHash         *string
}

// UpdateListingInput represents a request to change the price or the auction end time of a listing
type UpdateListingInput struct {
	ListingID      string
	Caller         string
	Price          *string
	AuctionEndTime *time.Time
}

// ListingFilter represents the listing search parameters.
// Only active listings are returned when Statuses is empty.
type ListingFilter struct {
	Statuses    []domain.ListingStatus
	ListingType *domain.ListingType
	Seller      *string
	Chain       *domain.Chain
	Contract    *string
	MinPrice    *string
	MaxPrice    *string
	SortBy      store.ListingSortField
	SortOrder   store.SortOrder
	Limit       int
	Offset      uint64
}

// TransactionFilter represents the transaction history search parameters
type TransactionFilter struct {
	Type   *domain.TransactionType
	Wallet *string
	// Asset limits the history to one asset
	Asset  *domain.AssetRef
	Limit  int
	Offset uint64
}

// Service is the listing lifecycle state machine
//
//go:generate mockgen -source=service.go -destination=../mocks/marketplace.go -package=mocks -mock_names=Service=MockMarketplaceService
type Service interface {
	// Create lists an asset after verifying on chain that the seller owns it
	Create(ctx context.Context, input CreateListingInput) (*schema.Listing, error)
	// UpdatePrice changes the price or the auction end time of an active listing
	UpdatePrice(ctx context.Context, input UpdateListingInput) (*schema.Listing, error)
	// Cancel cancels an active listing on behalf of its seller
	Cancel(ctx context.Context, listingID, caller string, txHash *string) (*schema.Listing, error)
	// Buy sells a fixed-price listing, waiting for the payment transaction when a hash is supplied
	Buy(ctx context.Context, listingID, buyer string, paymentTxHash *string) (*schema.Listing, error)
	// PlaceBid records a bid that is strictly greater than the current highest bid
	PlaceBid(ctx context.Context, listingID, bidder, amount string, txHash *string) (*schema.Listing, error)
	// Settle closes an ended auction, selling to the highest bidder or expiring it without bids
	Settle(ctx context.Context, listingID string, paymentTxHash *string) (*schema.Listing, error)

	GetListing(ctx context.Context, listingID string) (*schema.Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]*schema.Listing, uint64, error)
	GetAsset(ctx context.Context, ref domain.AssetRef) (*schema.Asset, error)
	GetTransaction(ctx context.Context, txHash string) (*schema.TransactionRecord, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*schema.TransactionRecord, uint64, error)
	// VerifyOwnership reports whether the wallet owns the asset on chain
	VerifyOwnership(ctx context.Context, ref domain.AssetRef, wallet string) (bool, error)
}

type service struct {
	store       store.Store
	verifier    reconciler.OwnershipVerifier
	monitor     indexer.TransactionMonitor
	invalidator cache.Invalidator
	clock       adapter.Clock
}

// NewService creates a new marketplace service
func NewService(
	st store.Store,
	verifier reconciler.OwnershipVerifier,
	monitor indexer.TransactionMonitor,
	invalidator cache.Invalidator,
	clock adapter.Clock,
) Service {
	return &service{
		store:       st,
		verifier:    verifier,
		monitor:     monitor,
		invalidator: invalidator,
		clock:       clock,
	}
}

// newListingID returns a ULID so listing ids sort by creation time
func (s *service) newListingID() string {
	return ulid.MustNew(ulid.Timestamp(s.clock.Now()), ulid.DefaultEntropy()).String()
}

func normalizeTxHash(txHash *string) *string {
	if txHash == nil {
		return nil
	}
	h := strings.ToLower(strings.TrimSpace(*txHash))
	if h == "" {
		return nil
	}
	return &h
}

func normalizeWallet(address string) (string, error) {
	if !domain.IsValidAddress(address) {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	return domain.NormalizeAddress(address), nil
}

// Create lists an asset after verifying on chain that the seller owns it
func (s *service) Create(ctx context.Context, input CreateListingInput) (*schema.Listing, error) {
	ref := domain.NewAssetRef(input.Asset.Chain, input.Asset.ContractAddress, input.Asset.TokenID)
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAsset, ref)
	}
	seller, err := normalizeWallet(input.Seller)
	if err != nil {
		return nil, err
	}
	price, err := domain.ParsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	listingType := input.ListingType
	if listingType == "" {
		listingType = domain.ListingTypeFixed
	}
	if !listingType.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidListingType, listingType)
	}

	now := s.clock.Now()
	var auctionEndTime *time.Time
	if listingType == domain.ListingTypeAuction {
		if input.AuctionEndTime == nil || !input.AuctionEndTime.After(now) {
			return nil, fmt.Errorf("%w: auctions require an end time in the future", domain.ErrInvalidAuctionEndTime)
		}
		endTime := input.AuctionEndTime.UTC()
		auctionEndTime = &endTime
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = domain.DEFAULT_CURRENCY
	}

	ctx = logger.WithFields(ctx, zap.String("asset", ref.String()), zap.String("seller", seller))

	// Ownership is checked against the ledger, never against the stored owner
	if !s.verifier.VerifyOwnership(ctx, ref, seller) {
		return nil, domain.ErrNotOwner
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *schema.TransactionRecord
	if txHash := normalizeTxHash(input.TxHash); txHash != nil {
		record = withPrice(
			newRecord(*txHash, domain.TransactionTypeListing, seller, ref.ContractAddress, now),
			price, currency)
	}

	listing, err := s.store.CreateListing(ctx, store.CreateListingInput{
		ID:             s.newListingID(),
		Asset:          ref,
		Seller:         seller,
		Price:          price,
		Currency:       currency,
		ListingType:    listingType,
		AuctionEndTime: auctionEndTime,
		Record:         record,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Listing created",
		zap.String("listingID", listing.ID),
		zap.String("type", string(listing.ListingType)),
		zap.String("price", listing.Price.String()))

	s.invalidator.Invalidate(ctx, cache.ListingPatterns(listing.ID, listing.AssetID)...)

	return listing, nil
}

// UpdatePrice changes the price or the auction end time of an active listing
func (s *service) UpdatePrice(ctx context.Context, input UpdateListingInput) (*schema.Listing, error) {
	if input.Price == nil && input.AuctionEndTime == nil {
		return nil, fmt.Errorf("%w: price or auction end time is required", domain.ErrInvalidPrice)
	}

	var price *decimal.Decimal
	if input.Price != nil {
		p, err := domain.ParsePrice(*input.Price)
		if err != nil {
			return nil, err
		}
		price = &p
	}

	return s.transition(ctx, input.ListingID, "Listing updated",
		updateTransition(input.Caller, price, input.AuctionEndTime, s.clock.Now()))
}

// Cancel cancels an active listing on behalf of its seller
func (s *service) Cancel(ctx context.Context, listingID, caller string, txHash *string) (*schema.Listing, error) {
	return s.transition(ctx, listingID, "Listing cancelled",
		cancelTransition(caller, normalizeTxHash(txHash), s.clock.Now()))
}

// Buy sells a fixed-price listing.
// The payment transaction is monitored before any lock is taken; the guards run again under the lock.
func (s *service) Buy(ctx context.Context, listingID, buyer string, paymentTxHash *string) (*schema.Listing, error) {
	buyer, err := normalizeWallet(buyer)
	if err != nil {
		return nil, err
	}

	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(listing); err != nil {
		return nil, err
	}
	if err := requireType(listing, domain.ListingTypeFixed); err != nil {
		return nil, err
	}

	txHash := normalizeTxHash(paymentTxHash)
	outcome, err := s.confirmPayment(ctx, listing, txHash)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, listingID, "Listing sold",
		buyTransition(buyer, txHash, outcome, s.clock.Now()))
}

// PlaceBid records a bid that is strictly greater than the current highest bid.
// The comparison and the write happen under the listing row lock so concurrent bids are serialized.
func (s *service) PlaceBid(ctx context.Context, listingID, bidder, amount string, txHash *string) (*schema.Listing, error) {
	bidder, err := normalizeWallet(bidder)
	if err != nil {
		return nil, err
	}
	bid, err := domain.ParsePrice(amount)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, listingID, "Bid placed",
		bidTransition(bidder, bid, normalizeTxHash(txHash), s.clock.Now()))
}

// Settle closes an ended auction, selling to the highest bidder or expiring it without bids
func (s *service) Settle(ctx context.Context, listingID string, paymentTxHash *string) (*schema.Listing, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(listing); err != nil {
		return nil, err
	}
	if err := requireType(listing, domain.ListingTypeAuction); err != nil {
		return nil, err
	}
	if !auctionEnded(listing, s.clock.Now()) {
		return nil, domain.ErrAuctionNotEnded
	}

	txHash := normalizeTxHash(paymentTxHash)
	var outcome *domain.TransactionOutcome
	if listing.HighestBidder != nil {
		outcome, err = s.confirmPayment(ctx, listing, txHash)
		if err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, listingID, "Auction settled",
		settleTransition(txHash, outcome, s.clock.Now()))
}

// confirmPayment waits for the payment transaction on the listing's chain and requires it to succeed
func (s *service) confirmPayment(ctx context.Context, listing *schema.Listing, txHash *string) (*domain.TransactionOutcome, error) {
	if txHash == nil {
		return nil, nil
	}
	if listing.Asset == nil {
		return nil, fmt.Errorf("listing %s has no asset", listing.ID)
	}

	outcome, err := s.monitor.MonitorTransaction(ctx, listing.Asset.Chain, *txHash)
	if err != nil {
		return nil, err
	}
	if !outcome.Success {
		logger.WarnCtx(ctx, "Payment transaction reverted",
			zap.String("listingID", listing.ID),
			zap.String("txHash", *txHash),
			zap.Uint64("block", outcome.BlockNumber))
		return nil, domain.ErrPaymentFailed
	}
	return outcome, nil
}

// transition applies a guarded transition under the store's row locks and invalidates the cached views
func (s *service) transition(ctx context.Context, listingID, message string, transition store.ListingTransition) (*schema.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listing, err := s.store.UpdateListing(ctx, listingID, transition)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, message,
		zap.String("listingID", listing.ID),
		zap.String("status", string(listing.Status)),
		zap.Uint64("version", listing.Version))

	s.invalidator.Invalidate(ctx, cache.ListingPatterns(listing.ID, listing.AssetID)...)

	return listing, nil
}

// GetListing retrieves a listing with its asset
func (s *service) GetListing(ctx context.Context, listingID string) (*schema.Listing, error) {
	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrListingNotFound
	}
	return listing, nil
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return DEFAULT_PAGE_LIMIT
	}
	if limit > MAX_PAGE_LIMIT {
		return MAX_PAGE_LIMIT
	}
	return limit
}

func parseOptionalPrice(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, *s)
	}
	return &d, nil
}

// ListListings retrieves listings with filtering, sorting and pagination
func (s *service) ListListings(ctx context.Context, filter ListingFilter) ([]*schema.Listing, uint64, error) {
	minPrice, err := parseOptionalPrice(filter.MinPrice)
	if err != nil {
		return nil, 0, err
	}
	maxPrice, err := parseOptionalPrice(filter.MaxPrice)
	if err != nil {
		return nil, 0, err
	}

	statuses := filter.Statuses
	if len(statuses) == 0 {
		statuses = []domain.ListingStatus{domain.ListingStatusActive}
	}

	var seller *string
	if filter.Seller != nil {
		normalized := domain.NormalizeAddress(*filter.Seller)
		seller = &normalized
	}
	var contract *string
	if filter.Contract != nil {
		normalized := domain.NormalizeAddress(*filter.Contract)
		contract = &normalized
	}

	return s.store.GetListingsByFilter(ctx, store.ListingQueryFilter{
		Statuses:    statuses,
		ListingType: filter.ListingType,
		Seller:      seller,
		Chain:       filter.Chain,
		Contract:    contract,
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		SortBy:      filter.SortBy,
		SortOrder:   filter.SortOrder,
		Limit:       pageLimit(filter.Limit),
		Offset:      filter.Offset,
	})
}

// GetAsset retrieves an indexed asset
func (s *service) GetAsset(ctx context.Context, ref domain.AssetRef) (*schema.Asset, error) {
	ref = domain.NewAssetRef(ref.Chain, ref.ContractAddress, ref.TokenID)
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAsset, ref)
	}

	asset, err := s.store.GetAsset(ctx, ref)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, domain.ErrAssetNotFound
	}
	return asset, nil
}

// GetTransaction retrieves a transaction record by hash
func (s *service) GetTransaction(ctx context.Context, txHash string) (*schema.TransactionRecord, error) {
	record, err := s.store.GetTransactionByHash(ctx, strings.ToLower(strings.TrimSpace(txHash)))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrTransactionRecordNotFound
	}
	return record, nil
}

// ListTransactions retrieves the trade and transfer history, newest first
func (s *service) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*schema.TransactionRecord, uint64, error) {
	query := store.TransactionQueryFilter{
		Limit:  pageLimit(filter.Limit),
		Offset: filter.Offset,
	}
	if filter.Type != nil {
		query.Types = []domain.TransactionType{*filter.Type}
	}
	if filter.Wallet != nil {
		wallet := domain.NormalizeAddress(*filter.Wallet)
		query.Wallet = &wallet
	}
	if filter.Asset != nil {
		asset, err := s.GetAsset(ctx, *filter.Asset)
		if err != nil {
			return nil, 0, err
		}
		query.AssetID = &asset.ID
	}

	return s.store.GetTransactionsByFilter(ctx, query)
}

// VerifyOwnership checks the wallet against the ledger owner of the asset.
// Ledger failures report false rather than an error.
func (s *service) VerifyOwnership(ctx context.Context, ref domain.AssetRef, wallet string) (bool, error) {
	ref = domain.NewAssetRef(ref.Chain, ref.ContractAddress, ref.TokenID)
	if !ref.Valid() {
		return false, fmt.Errorf("%w: %s", domain.ErrInvalidAsset, ref)
	}
	owner, err := normalizeWallet(wallet)
	if err != nil {
		return false, err
	}

	return s.verifier.VerifyOwnership(ctx, ref, owner), nil
}
