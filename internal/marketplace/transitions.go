package marketplace

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// Transitions are applied by the store to a listing and its asset while both rows are locked,
// so every guard below sees the latest committed state.

func requireSeller(listing *schema.Listing, caller string) error {
	if !domain.SameAddress(listing.Seller, caller) {
		return domain.ErrNotAuthorized
	}
	return nil
}

func requireActive(listing *schema.Listing) error {
	if listing.Status.Terminal() {
		return fmt.Errorf("%w: %s", domain.ErrNotActive, listing.Status)
	}
	return nil
}

func requireType(listing *schema.Listing, listingType domain.ListingType) error {
	if listing.ListingType != listingType {
		return fmt.Errorf("%w: %s", domain.ErrWrongListingType, listing.ListingType)
	}
	return nil
}

// auctionEnded reports whether bids are no longer accepted at now
func auctionEnded(listing *schema.Listing, now time.Time) bool {
	return listing.AuctionEndTime != nil && now.After(*listing.AuctionEndTime)
}

// requireOpenAuction rejects seller changes to an auction past its end time; only settlement remains
func requireOpenAuction(listing *schema.Listing, now time.Time) error {
	if listing.ListingType == domain.ListingTypeAuction && auctionEnded(listing, now) {
		return domain.ErrAuctionEnded
	}
	return nil
}

// transferOwner hands the asset to the new owner and advances the ordering key to the sale's transfer log.
// Without a transfer of the asset in the receipt the key stops just before the receipt block.
func transferOwner(asset *schema.Asset, owner string, outcome *domain.TransactionOutcome) {
	asset.Owner = owner
	asset.IsListed = false
	if outcome == nil {
		return
	}

	blockNumber, logIndex := outcome.BlockNumber, uint(store.PointQueryLogIndex)
	if index, ok := outcome.TransferLogIndex(asset.ContractAddress, asset.TokenID); ok {
		logIndex = index
	} else if blockNumber > 0 {
		blockNumber--
	}
	if asset.OwnedBefore(blockNumber, logIndex) {
		asset.OwnerBlockNumber = blockNumber
		asset.OwnerLogIndex = logIndex
	}
}

// newRecord builds a marketplace transaction record; the store fills the asset reference
func newRecord(txHash string, txType domain.TransactionType, from, to string, now time.Time) *schema.TransactionRecord {
	return &schema.TransactionRecord{
		TransactionHash: txHash,
		FromAddress:     from,
		ToAddress:       to,
		Type:            txType,
		Status:          domain.TransactionStatusConfirmed,
		Timestamp:       now,
	}
}

// withOutcome copies the receipt outcome onto a record
func withOutcome(record *schema.TransactionRecord, outcome *domain.TransactionOutcome) *schema.TransactionRecord {
	if outcome == nil {
		return record
	}
	blockNumber, gasUsed := outcome.BlockNumber, outcome.GasUsed
	record.BlockNumber = &blockNumber
	record.GasUsed = &gasUsed
	record.Status = outcome.Status()
	return record
}

func withPrice(record *schema.TransactionRecord, price decimal.Decimal, currency string) *schema.TransactionRecord {
	record.Price = &price
	record.Currency = &currency
	return record
}

func updateTransition(caller string, price *decimal.Decimal, auctionEndTime *time.Time, now time.Time) store.ListingTransition {
	return func(listing *schema.Listing, _ *schema.Asset) (*schema.TransactionRecord, error) {
		if err := requireSeller(listing, caller); err != nil {
			return nil, err
		}
		if err := requireActive(listing); err != nil {
			return nil, err
		}
		if err := requireOpenAuction(listing, now); err != nil {
			return nil, err
		}

		if auctionEndTime != nil {
			if err := requireType(listing, domain.ListingTypeAuction); err != nil {
				return nil, err
			}
			if !auctionEndTime.After(now) {
				return nil, fmt.Errorf("%w: must be in the future", domain.ErrInvalidAuctionEndTime)
			}
			endTime := *auctionEndTime
			listing.AuctionEndTime = &endTime
		}
		if price != nil {
			listing.Price = *price
		}

		return nil, nil
	}
}

func cancelTransition(caller string, txHash *string, now time.Time) store.ListingTransition {
	return func(listing *schema.Listing, asset *schema.Asset) (*schema.TransactionRecord, error) {
		if err := requireSeller(listing, caller); err != nil {
			return nil, err
		}
		if err := requireActive(listing); err != nil {
			return nil, err
		}
		if err := requireOpenAuction(listing, now); err != nil {
			return nil, err
		}

		listing.Status = domain.ListingStatusCancelled
		asset.IsListed = false

		if txHash == nil {
			return nil, nil
		}
		return newRecord(*txHash, domain.TransactionTypeDelisting, listing.Seller, asset.ContractAddress, now), nil
	}
}

func buyTransition(buyer string, txHash *string, outcome *domain.TransactionOutcome, now time.Time) store.ListingTransition {
	return func(listing *schema.Listing, asset *schema.Asset) (*schema.TransactionRecord, error) {
		if err := requireActive(listing); err != nil {
			return nil, err
		}
		if err := requireType(listing, domain.ListingTypeFixed); err != nil {
			return nil, err
		}

		listing.Status = domain.ListingStatusSold
		listing.Buyer = &buyer
		listing.TransactionHash = txHash
		transferOwner(asset, buyer, outcome)

		if txHash == nil {
			return nil, nil
		}
		record := newRecord(*txHash, domain.TransactionTypeSale, buyer, listing.Seller, now)
		return withOutcome(withPrice(record, listing.Price, listing.Currency), outcome), nil
	}
}

func bidTransition(bidder string, amount decimal.Decimal, txHash *string, now time.Time) store.ListingTransition {
	return func(listing *schema.Listing, asset *schema.Asset) (*schema.TransactionRecord, error) {
		if err := requireType(listing, domain.ListingTypeAuction); err != nil {
			return nil, err
		}
		if err := requireActive(listing); err != nil {
			return nil, err
		}
		if auctionEnded(listing, now) {
			return nil, domain.ErrAuctionEnded
		}
		if !domain.OutbidsHighest(amount, listing.HighestBidString()) {
			return nil, fmt.Errorf("%w: current highest bid is %s",
				domain.ErrBidTooLow, domain.CurrentHighest(listing.HighestBidString()))
		}

		bid := amount
		listing.HighestBid = &bid
		listing.HighestBidder = &bidder

		if txHash == nil {
			return nil, nil
		}
		record := newRecord(*txHash, domain.TransactionTypeBid, bidder, asset.ContractAddress, now)
		return withPrice(record, amount, listing.Currency), nil
	}
}

func settleTransition(txHash *string, outcome *domain.TransactionOutcome, now time.Time) store.ListingTransition {
	return func(listing *schema.Listing, asset *schema.Asset) (*schema.TransactionRecord, error) {
		if err := requireActive(listing); err != nil {
			return nil, err
		}
		if err := requireType(listing, domain.ListingTypeAuction); err != nil {
			return nil, err
		}
		if !auctionEnded(listing, now) {
			return nil, domain.ErrAuctionNotEnded
		}

		if listing.HighestBidder == nil || listing.HighestBid == nil {
			listing.Status = domain.ListingStatusExpired
			asset.IsListed = false
			return nil, nil
		}

		winner := *listing.HighestBidder
		listing.Status = domain.ListingStatusSold
		listing.Buyer = &winner
		listing.TransactionHash = txHash
		transferOwner(asset, winner, outcome)

		if txHash == nil {
			return nil, nil
		}
		record := newRecord(*txHash, domain.TransactionTypeSale, winner, listing.Seller, now)
		return withOutcome(withPrice(record, *listing.HighestBid, listing.Currency), outcome), nil
	}
}
