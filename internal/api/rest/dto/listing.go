package dto

import (
	"time"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// CreateListingRequest is the body of POST /listings
type CreateListingRequest struct {
	Chain           string             `json:"chain" binding:"required"`
	ContractAddress string             `json:"contract_address" binding:"required"`
	TokenID         string             `json:"token_id" binding:"required"`
	Price           string             `json:"price" binding:"required"`
	Currency        string             `json:"currency"`
	ListingType     domain.ListingType `json:"listing_type"`
	AuctionEndTime  *time.Time         `json:"auction_end_time"`
	TransactionHash *string            `json:"transaction_hash"`
}

// UpdateListingRequest is the body of PUT /listings/:id
type UpdateListingRequest struct {
	Price          *string    `json:"price"`
	AuctionEndTime *time.Time `json:"auction_end_time"`
}

// TransactionRequest is the optional body of cancel, buy and settle requests
type TransactionRequest struct {
	TransactionHash *string `json:"transaction_hash"`
}

// BidRequest is the body of POST /listings/:id/bid
type BidRequest struct {
	Amount          string  `json:"amount" binding:"required"`
	TransactionHash *string `json:"transaction_hash"`
}

// VerifyRequest is the body of POST /auth/verify
type VerifyRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// NonceResponse is returned by GET /auth/nonce/:address
type NonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// AssetResponse represents an indexed asset
type AssetResponse struct {
	ID               uint64       `json:"id"`
	Chain            domain.Chain `json:"chain"`
	ContractAddress  string       `json:"contract_address"`
	TokenID          string       `json:"token_id"`
	Owner            string       `json:"owner"`
	Creator          *string      `json:"creator,omitempty"`
	IsListed         bool         `json:"is_listed"`
	OwnerBlockNumber uint64       `json:"owner_block_number"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// OwnershipResponse reports whether a wallet owns an asset on chain
type OwnershipResponse struct {
	Chain           domain.Chain `json:"chain"`
	ContractAddress string       `json:"contract_address"`
	TokenID         string       `json:"token_id"`
	Wallet          string       `json:"wallet"`
	IsOwner         bool         `json:"is_owner"`
}

// ListingResponse represents a listing with its asset
type ListingResponse struct {
	ID              string               `json:"id"`
	Seller          string               `json:"seller"`
	Price           string               `json:"price"`
	Currency        string               `json:"currency"`
	ListingType     domain.ListingType   `json:"listing_type"`
	AuctionEndTime  *time.Time           `json:"auction_end_time,omitempty"`
	HighestBid      *string              `json:"highest_bid,omitempty"`
	HighestBidder   *string              `json:"highest_bidder,omitempty"`
	Status          domain.ListingStatus `json:"status"`
	Buyer           *string              `json:"buyer,omitempty"`
	TransactionHash *string              `json:"transaction_hash,omitempty"`
	Version         uint64               `json:"version"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Asset           *AssetResponse       `json:"asset,omitempty"`
}

// TransactionResponse represents a transaction record
type TransactionResponse struct {
	TransactionHash string                   `json:"transaction_hash"`
	Type            domain.TransactionType   `json:"type"`
	FromAddress     string                   `json:"from_address"`
	ToAddress       string                   `json:"to_address"`
	Chain           domain.Chain             `json:"chain"`
	ContractAddress string                   `json:"contract_address"`
	TokenID         string                   `json:"token_id"`
	Price           *string                  `json:"price,omitempty"`
	Currency        *string                  `json:"currency,omitempty"`
	Status          domain.TransactionStatus `json:"status"`
	BlockNumber     *uint64                  `json:"block_number,omitempty"`
	GasUsed         *uint64                  `json:"gas_used,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
}

// Pagination describes a page of a list response
type Pagination struct {
	Limit  int    `json:"limit"`
	Offset uint64 `json:"offset"`
	Total  uint64 `json:"total"`
}

// ListingListResponse is returned by GET /listings
type ListingListResponse struct {
	Listings   []ListingResponse `json:"listings"`
	Pagination Pagination        `json:"pagination"`
}

// TransactionListResponse is returned by GET /transactions
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
}

// MapAssetToDTO maps a schema.Asset to an AssetResponse
func MapAssetToDTO(asset *schema.Asset) *AssetResponse {
	if asset == nil {
		return nil
	}
	return &AssetResponse{
		ID:               asset.ID,
		Chain:            asset.Chain,
		ContractAddress:  asset.ContractAddress,
		TokenID:          asset.TokenID,
		Owner:            asset.Owner,
		Creator:          asset.Creator,
		IsListed:         asset.IsListed,
		OwnerBlockNumber: asset.OwnerBlockNumber,
		UpdatedAt:        asset.UpdatedAt,
	}
}

// MapListingToDTO maps a schema.Listing to a ListingResponse
func MapListingToDTO(listing *schema.Listing) ListingResponse {
	return ListingResponse{
		ID:              listing.ID,
		Seller:          listing.Seller,
		Price:           listing.Price.String(),
		Currency:        listing.Currency,
		ListingType:     listing.ListingType,
		AuctionEndTime:  listing.AuctionEndTime,
		HighestBid:      listing.HighestBidString(),
		HighestBidder:   listing.HighestBidder,
		Status:          listing.Status,
		Buyer:           listing.Buyer,
		TransactionHash: listing.TransactionHash,
		Version:         listing.Version,
		CreatedAt:       listing.CreatedAt,
		UpdatedAt:       listing.UpdatedAt,
		Asset:           MapAssetToDTO(listing.Asset),
	}
}

// MapTransactionToDTO maps a schema.TransactionRecord to a TransactionResponse
func MapTransactionToDTO(record *schema.TransactionRecord) TransactionResponse {
	var price *string
	if record.Price != nil {
		s := record.Price.String()
		price = &s
	}
	return TransactionResponse{
		TransactionHash: record.TransactionHash,
		Type:            record.Type,
		FromAddress:     record.FromAddress,
		ToAddress:       record.ToAddress,
		Chain:           record.Chain,
		ContractAddress: record.ContractAddress,
		TokenID:         record.TokenID,
		Price:           price,
		Currency:        record.Currency,
		Status:          record.Status,
		BlockNumber:     record.BlockNumber,
		GasUsed:         record.GasUsed,
		Timestamp:       record.Timestamp,
	}
}
