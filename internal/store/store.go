package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// Store defines the interface for database operations
type Store interface {
	// GetAsset retrieves an asset by its chain reference, nil if not indexed
	GetAsset(ctx context.Context, ref domain.AssetRef) (*schema.Asset, error)
	// IndexTransfer records an indexed transfer and advances the asset owner when the event is newer
	IndexTransfer(ctx context.Context, input IndexTransferInput) (*IndexTransferResult, error)
	// RefreshAssetOwner sets the asset owner observed on chain at a given block
	RefreshAssetOwner(ctx context.Context, input RefreshAssetOwnerInput) (bool, error)

	// CreateListing creates an active listing, failing with domain.ErrAlreadyListed when one exists
	CreateListing(ctx context.Context, input CreateListingInput) (*schema.Listing, error)
	// UpdateListing applies a transition to a listing and its asset under row locks
	UpdateListing(ctx context.Context, listingID string, transition ListingTransition) (*schema.Listing, error)
	// GetListingByID retrieves a listing with its asset, nil if not found
	GetListingByID(ctx context.Context, listingID string) (*schema.Listing, error)
	// GetActiveListingByAssetID retrieves the active listing of an asset, nil if none
	GetActiveListingByAssetID(ctx context.Context, assetID uint64) (*schema.Listing, error)
	// GetListingsByFilter retrieves listings with filtering and pagination
	GetListingsByFilter(ctx context.Context, filter ListingQueryFilter) ([]*schema.Listing, uint64, error)

	// GetTransactionByHash retrieves a transaction record by hash, nil if not found
	GetTransactionByHash(ctx context.Context, txHash string) (*schema.TransactionRecord, error)
	// GetTransactionsByFilter retrieves transaction records with filtering and pagination
	GetTransactionsByFilter(ctx context.Context, filter TransactionQueryFilter) ([]*schema.TransactionRecord, uint64, error)

	// SetKeyValue sets a key-value pair
	SetKeyValue(ctx context.Context, key string, value string) error
	// GetKeyValue retrieves a value by key, empty if not found
	GetKeyValue(ctx context.Context, key string) (string, error)
	// DeleteKeyValue removes a key and reports whether it existed
	DeleteKeyValue(ctx context.Context, key string) (bool, error)

	// GetBlockCursor retrieves the last processed block number for a chain
	GetBlockCursor(ctx context.Context, chain string) (uint64, error)
	// SetBlockCursor stores the last processed block number for a chain
	SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error
}

// IndexTransferInput represents the data needed to index a transfer log
type IndexTransferInput struct {
	Asset       domain.AssetRef
	FromAddress string
	ToAddress   string
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
	Type        domain.TransactionType
	Timestamp   time.Time
	Raw         datatypes.JSON
}

// IndexTransferResult describes the effect of IndexTransfer
type IndexTransferResult struct {
	// Asset is the asset row after the write
	Asset *schema.Asset
	// RecordCreated is false when a record with the same hash already existed
	RecordCreated bool
	// OwnerUpdated is false when the stored owner was already newer than the event
	OwnerUpdated bool
}

// RefreshAssetOwnerInput represents an owner observed through a point query at a block
type RefreshAssetOwnerInput struct {
	Asset       domain.AssetRef
	Owner       string
	BlockNumber uint64
}

// CreateListingInput represents the data needed to create a listing
type CreateListingInput struct {
	ID             string
	Asset          domain.AssetRef
	Seller         string
	Price          decimal.Decimal
	Currency       string
	ListingType    domain.ListingType
	AuctionEndTime *time.Time
	// Record is the listing transaction to persist, when a hash was supplied
	Record *schema.TransactionRecord
}

// ListingTransition mutates a locked listing and its locked asset.
// It returns the transaction record to persist along with the change, or nil.
// Returning an error rolls the transaction back and leaves both rows untouched.
type ListingTransition func(listing *schema.Listing, asset *schema.Asset) (*schema.TransactionRecord, error)

// SortOrder represents the direction of a sort
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// ListingSortField represents the field listings are sorted by
type ListingSortField string

const (
	ListingSortCreatedAt      ListingSortField = "created_at"
	ListingSortPrice          ListingSortField = "price"
	ListingSortAuctionEndTime ListingSortField = "auction_end_time"
)

// ListingQueryFilter represents filters for listing queries
type ListingQueryFilter struct {
	Statuses    []domain.ListingStatus
	ListingType *domain.ListingType
	Seller      *string
	Chain       *domain.Chain
	Contract    *string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	SortBy      ListingSortField
	SortOrder   SortOrder
	Limit       int
	Offset      uint64
}

// TransactionQueryFilter represents filters for transaction record queries
type TransactionQueryFilter struct {
	Types   []domain.TransactionType
	Wallet  *string
	AssetID *uint64
	Limit   int
	Offset  uint64
}
