package domain

import "errors"

var (
	// ErrSubscriptionFailed is returned when subscription to events fails
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrNotOwner is returned when the caller is not the on-chain owner of the asset
	ErrNotOwner = errors.New("caller is not the owner of the asset")

	// ErrNotAuthorized is returned when the caller is not the seller of the listing
	ErrNotAuthorized = errors.New("caller is not authorized for this listing")

	// ErrAlreadyListed is returned when the asset already has an active listing
	ErrAlreadyListed = errors.New("asset is already listed")

	// ErrNotActive is returned when a listing is no longer active
	ErrNotActive = errors.New("listing is not active")

	// ErrBidTooLow is returned when a bid does not exceed the current highest bid
	ErrBidTooLow = errors.New("bid must be higher than current highest bid")

	// ErrAuctionEnded is returned when a bid arrives after the auction end time
	ErrAuctionEnded = errors.New("auction has ended")

	// ErrAuctionNotEnded is returned when settling an auction before its end time
	ErrAuctionNotEnded = errors.New("auction has not ended")

	// ErrWrongListingType is returned when an operation does not apply to the listing type
	ErrWrongListingType = errors.New("operation not supported for listing type")

	// ErrTransactionNotFound is returned when the ledger does not know the transaction hash
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrTransactionTimeout is returned when a transaction is not confirmed in time
	ErrTransactionTimeout = errors.New("transaction confirmation timed out")

	// ErrPaymentFailed is returned when the payment transaction did not succeed on chain
	ErrPaymentFailed = errors.New("payment transaction failed")

	// ErrTransactionAlreadyRecorded is returned when a transaction hash is already in the history
	ErrTransactionAlreadyRecorded = errors.New("transaction already recorded")

	// ErrListingNotFound is returned when a listing is not found
	ErrListingNotFound = errors.New("listing not found")

	// ErrAssetNotFound is returned when an asset is not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTransactionRecordNotFound is returned when no transaction record exists for a hash
	ErrTransactionRecordNotFound = errors.New("transaction record not found")

	// ErrInvalidPrice is returned when a price is not a positive decimal
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidAuctionEndTime is returned when an auction end time is missing or in the past
	ErrInvalidAuctionEndTime = errors.New("invalid auction end time")

	// ErrInvalidAsset is returned when an asset reference is malformed
	ErrInvalidAsset = errors.New("invalid asset reference")

	// ErrInvalidListingType is returned for listing types other than fixed and auction
	ErrInvalidListingType = errors.New("invalid listing type")

	// ErrInvalidAddress is returned when a wallet or contract address is malformed
	ErrInvalidAddress = errors.New("invalid address")

	// ErrUnsupportedChain is returned when no ledger client is configured for a chain
	ErrUnsupportedChain = errors.New("unsupported chain")
)
