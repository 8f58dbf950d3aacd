package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Listing represents the listings table - an offer to sell an asset at a fixed price or by auction
type Listing struct {
	// ID is a ULID generated when the listing is created
	ID string `gorm:"column:id;primaryKey;type:text"`
	// AssetID references the listed asset
	AssetID uint64 `gorm:"column:asset_id;not null;index"`
	// Seller is the wallet that created the listing (lowercase hex)
	Seller string `gorm:"column:seller;not null;type:text;index"`
	// Price is the asking price for fixed listings and the reserve for auctions
	Price decimal.Decimal `gorm:"column:price;not null;type:numeric"`
	// Currency of the price, e.g. ETH
	Currency string `gorm:"column:currency;not null;type:text;default:'ETH'"`
	// ListingType is fixed or auction
	ListingType domain.ListingType `gorm:"column:listing_type;not null;type:text;index"`
	// AuctionEndTime is required for auctions and nil for fixed listings
	AuctionEndTime *time.Time `gorm:"column:auction_end_time"`
	// HighestBid and HighestBidder hold the current leading bid of an auction
	HighestBid    *decimal.Decimal `gorm:"column:highest_bid;type:numeric"`
	HighestBidder *string          `gorm:"column:highest_bidder;type:text"`
	// Status is active, sold, cancelled or expired
	Status domain.ListingStatus `gorm:"column:status;not null;type:text;index"`
	// Buyer is set when the listing is sold
	Buyer *string `gorm:"column:buyer;type:text"`
	// TransactionHash is the settlement transaction hash, when supplied
	TransactionHash *string `gorm:"column:transaction_hash;type:text"`
	// Version is incremented by every mutation
	Version uint64 `gorm:"column:version;not null;default:1"`
	// CreatedAt is the timestamp when the listing was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last mutation
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`

	// Associations
	Asset *Asset `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Listing model
func (Listing) TableName() string {
	return "listings"
}

// HighestBidString returns the highest bid as a decimal string, or nil when there is no bid
func (l *Listing) HighestBidString() *string {
	if l.HighestBid == nil {
		return nil
	}
	s := l.HighestBid.String()
	return &s
}
