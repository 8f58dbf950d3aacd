package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// StoreTestSuite provides the interface for running store tests against different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

const (
	testSeller = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testBuyer  = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testBidder = "0xcccccccccccccccccccccccccccccccccccccccc"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestAssetRef creates an asset reference on Ethereum mainnet
func buildTestAssetRef(contract, tokenID string) domain.AssetRef {
	return domain.NewAssetRef(domain.ChainEthereumMainnet, contract, tokenID)
}

// buildTestTransfer creates an index transfer input
func buildTestTransfer(ref domain.AssetRef, from, to, txHash string, block uint64, logIndex uint) IndexTransferInput {
	rawBytes, _ := json.Marshal(map[string]interface{}{
		"tx_hash":      txHash,
		"block_number": block,
		"log_index":    logIndex,
	})
	txType := domain.TransactionTypeTransfer
	if from == domain.ETHEREUM_ZERO_ADDRESS {
		txType = domain.TransactionTypeMint
	}
	return IndexTransferInput{
		Asset:       ref,
		FromAddress: from,
		ToAddress:   to,
		TxHash:      txHash,
		BlockNumber: block,
		LogIndex:    logIndex,
		Type:        txType,
		Timestamp:   time.Now().UTC(),
		Raw:         rawBytes,
	}
}

// buildTestListing creates a fixed price listing input
func buildTestListing(ref domain.AssetRef, price string) CreateListingInput {
	return CreateListingInput{
		ID:          ulid.Make().String(),
		Asset:       ref,
		Seller:      testSeller,
		Price:       decimal.RequireFromString(price),
		ListingType: domain.ListingTypeFixed,
	}
}

// buildTestAuction creates an auction listing input
func buildTestAuction(ref domain.AssetRef, reserve string, endTime time.Time) CreateListingInput {
	input := buildTestListing(ref, reserve)
	input.ListingType = domain.ListingTypeAuction
	input.AuctionEndTime = &endTime
	return input
}

// =============================================================================
// Test: IndexTransfer
// =============================================================================

func testIndexTransfer(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("mint creates asset and record", func(t *testing.T) {
		ref := buildTestAssetRef("0x1111111111111111111111111111111111111111", "1")
		input := buildTestTransfer(ref, domain.ETHEREUM_ZERO_ADDRESS, testSeller, "0xmint1", 100, 0)

		result, err := store.IndexTransfer(ctx, input)
		require.NoError(t, err)
		assert.True(t, result.RecordCreated)
		assert.True(t, result.OwnerUpdated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		require.NotNil(t, asset)
		assert.Equal(t, testSeller, asset.Owner)
		require.NotNil(t, asset.Creator)
		assert.Equal(t, testSeller, *asset.Creator)
		assert.False(t, asset.IsListed)

		record, err := store.GetTransactionByHash(ctx, "0xmint1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, domain.TransactionTypeMint, record.Type)
		assert.Equal(t, domain.TransactionStatusConfirmed, record.Status)
		require.NotNil(t, record.AssetID)
		assert.Equal(t, asset.ID, *record.AssetID)
	})

	t.Run("replay performs no write", func(t *testing.T) {
		ref := buildTestAssetRef("0x2222222222222222222222222222222222222222", "1")
		input := buildTestTransfer(ref, testSeller, testBuyer, "0xreplay", 200, 1)

		_, err := store.IndexTransfer(ctx, input)
		require.NoError(t, err)
		before, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)

		result, err := store.IndexTransfer(ctx, input)
		require.NoError(t, err)
		assert.False(t, result.RecordCreated)
		assert.False(t, result.OwnerUpdated)

		after, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

		records, total, err := store.GetTransactionsByFilter(ctx, TransactionQueryFilter{AssetID: &after.ID})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		assert.Len(t, records, 1)
	})

	t.Run("older event does not move owner back", func(t *testing.T) {
		ref := buildTestAssetRef("0x3333333333333333333333333333333333333333", "7")

		_, err := store.IndexTransfer(ctx, buildTestTransfer(ref, testSeller, testBuyer, "0xnewer", 300, 0))
		require.NoError(t, err)

		result, err := store.IndexTransfer(ctx, buildTestTransfer(ref, testBidder, testSeller, "0xolder", 299, 5))
		require.NoError(t, err)
		assert.True(t, result.RecordCreated)
		assert.False(t, result.OwnerUpdated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, testBuyer, asset.Owner)
		assert.Equal(t, uint64(300), asset.OwnerBlockNumber)
	})

	t.Run("later log in the same block wins", func(t *testing.T) {
		ref := buildTestAssetRef("0x4444444444444444444444444444444444444444", "7")

		_, err := store.IndexTransfer(ctx, buildTestTransfer(ref, testSeller, testBuyer, "0xlog1", 400, 1))
		require.NoError(t, err)
		result, err := store.IndexTransfer(ctx, buildTestTransfer(ref, testBuyer, testBidder, "0xlog2", 400, 2))
		require.NoError(t, err)
		assert.True(t, result.OwnerUpdated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, testBidder, asset.Owner)
		assert.Equal(t, uint(2), asset.OwnerLogIndex)
	})
}

// =============================================================================
// Test: RefreshAssetOwner
// =============================================================================

func testRefreshAssetOwner(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates unknown asset", func(t *testing.T) {
		ref := buildTestAssetRef("0x5555555555555555555555555555555555555555", "1")

		updated, err := store.RefreshAssetOwner(ctx, RefreshAssetOwnerInput{Asset: ref, Owner: testSeller, BlockNumber: 10})
		require.NoError(t, err)
		assert.True(t, updated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, testSeller, asset.Owner)
		assert.Equal(t, uint(PointQueryLogIndex), asset.OwnerLogIndex)
	})

	t.Run("advances lagging owner", func(t *testing.T) {
		ref := buildTestAssetRef("0x6666666666666666666666666666666666666666", "1")
		_, err := store.IndexTransfer(ctx, buildTestTransfer(ref, domain.ETHEREUM_ZERO_ADDRESS, testSeller, "0xrefresh-mint", 10, 0))
		require.NoError(t, err)

		updated, err := store.RefreshAssetOwner(ctx, RefreshAssetOwnerInput{Asset: ref, Owner: testBuyer, BlockNumber: 20})
		require.NoError(t, err)
		assert.True(t, updated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, testBuyer, asset.Owner)
		assert.Equal(t, uint64(20), asset.OwnerBlockNumber)

		// A transfer log from the refreshed block is already reflected by the point query
		result, err := store.IndexTransfer(ctx, buildTestTransfer(ref, testSeller, testBuyer, "0xrefresh-transfer", 20, 3))
		require.NoError(t, err)
		assert.False(t, result.OwnerUpdated)
	})

	t.Run("ignores older observation", func(t *testing.T) {
		ref := buildTestAssetRef("0x7777777777777777777777777777777777777777", "1")
		_, err := store.IndexTransfer(ctx, buildTestTransfer(ref, domain.ETHEREUM_ZERO_ADDRESS, testSeller, "0xstale-mint", 50, 0))
		require.NoError(t, err)

		updated, err := store.RefreshAssetOwner(ctx, RefreshAssetOwnerInput{Asset: ref, Owner: testBuyer, BlockNumber: 40})
		require.NoError(t, err)
		assert.False(t, updated)

		asset, err := store.GetAsset(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, testSeller, asset.Owner)
	})
}

// =============================================================================
// Test: CreateListing
// =============================================================================

func testCreateListing(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates active listing and marks asset listed", func(t *testing.T) {
		ref := buildTestAssetRef("0x8888888888888888888888888888888888888888", "1")
		input := buildTestListing(ref, "1.5")
		input.Record = &schema.TransactionRecord{
			TransactionHash: "0xlisting1",
			FromAddress:     testSeller,
			ToAddress:       testSeller,
			Type:            domain.TransactionTypeListing,
			Status:          domain.TransactionStatusConfirmed,
		}

		listing, err := store.CreateListing(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingStatusActive, listing.Status)
		assert.Equal(t, domain.DEFAULT_CURRENCY, listing.Currency)
		assert.Equal(t, uint64(1), listing.Version)
		require.NotNil(t, listing.Asset)
		assert.True(t, listing.Asset.IsListed)

		got, err := store.GetListingByID(ctx, input.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Price.Equal(decimal.RequireFromString("1.5")))
		assert.True(t, got.Asset.IsListed)

		record, err := store.GetTransactionByHash(ctx, "0xlisting1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, domain.TransactionTypeListing, record.Type)
		assert.Equal(t, ref.ContractAddress, record.ContractAddress)
	})

	t.Run("second active listing is rejected", func(t *testing.T) {
		ref := buildTestAssetRef("0x9999999999999999999999999999999999999999", "1")

		_, err := store.CreateListing(ctx, buildTestListing(ref, "1"))
		require.NoError(t, err)

		_, err = store.CreateListing(ctx, buildTestListing(ref, "2"))
		assert.ErrorIs(t, err, domain.ErrAlreadyListed)

		listings, total, err := store.GetListingsByFilter(ctx, ListingQueryFilter{
			Statuses: []domain.ListingStatus{domain.ListingStatusActive},
			Contract: &ref.ContractAddress,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		assert.Len(t, listings, 1)
	})

	t.Run("asset can be relisted after cancellation", func(t *testing.T) {
		ref := buildTestAssetRef("0xabababababababababababababababababababab", "1")

		first, err := store.CreateListing(ctx, buildTestListing(ref, "1"))
		require.NoError(t, err)

		_, err = store.UpdateListing(ctx, first.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			l.Status = domain.ListingStatusCancelled
			a.IsListed = false
			return nil, nil
		})
		require.NoError(t, err)

		second, err := store.CreateListing(ctx, buildTestListing(ref, "3"))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

// =============================================================================
// Test: UpdateListing
// =============================================================================

func testUpdateListing(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("unknown listing", func(t *testing.T) {
		_, err := store.UpdateListing(ctx, ulid.Make().String(), func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			return nil, nil
		})
		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})

	t.Run("failed transition leaves rows untouched", func(t *testing.T) {
		ref := buildTestAssetRef("0xcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcdcd", "1")
		listing, err := store.CreateListing(ctx, buildTestListing(ref, "1"))
		require.NoError(t, err)

		_, err = store.UpdateListing(ctx, listing.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			l.Status = domain.ListingStatusSold
			a.Owner = testBuyer
			return nil, domain.ErrPaymentFailed
		})
		assert.ErrorIs(t, err, domain.ErrPaymentFailed)

		got, err := store.GetListingByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingStatusActive, got.Status)
		assert.Equal(t, uint64(1), got.Version)
		assert.Equal(t, testSeller, got.Asset.Owner)
	})

	t.Run("sale updates listing, asset and history", func(t *testing.T) {
		ref := buildTestAssetRef("0xefefefefefefefefefefefefefefefefefefefef", "1")
		listing, err := store.CreateListing(ctx, buildTestListing(ref, "2"))
		require.NoError(t, err)

		// The indexer saw the transfer of the same transaction first
		_, err = store.IndexTransfer(ctx, buildTestTransfer(ref, testSeller, testBuyer, "0xsale1", 500, 0))
		require.NoError(t, err)

		updated, err := store.UpdateListing(ctx, listing.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			l.Status = domain.ListingStatusSold
			buyer := testBuyer
			l.Buyer = &buyer
			a.Owner = testBuyer
			a.IsListed = false
			price := l.Price
			currency := l.Currency
			return &schema.TransactionRecord{
				TransactionHash: "0xsale1",
				FromAddress:     testSeller,
				ToAddress:       testBuyer,
				Type:            domain.TransactionTypeSale,
				Price:           &price,
				Currency:        &currency,
				Status:          domain.TransactionStatusConfirmed,
			}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ListingStatusSold, updated.Status)
		assert.Equal(t, uint64(2), updated.Version)
		assert.False(t, updated.Asset.IsListed)

		record, err := store.GetTransactionByHash(ctx, "0xsale1")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeSale, record.Type)
		require.NotNil(t, record.Price)
		assert.True(t, record.Price.Equal(decimal.RequireFromString("2")))
		assert.Equal(t, domain.DEFAULT_CURRENCY, *record.Currency)
		assert.Equal(t, ref.ContractAddress, record.ContractAddress)
	})

	t.Run("existing history is never rewritten", func(t *testing.T) {
		saleRef := buildTestAssetRef("0x5656565656565656565656565656565656565656", "1")
		sold, err := store.CreateListing(ctx, buildTestListing(saleRef, "2"))
		require.NoError(t, err)
		_, err = store.UpdateListing(ctx, sold.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
			l.Status = domain.ListingStatusSold
			a.Owner = testBuyer
			price := l.Price
			return &schema.TransactionRecord{
				TransactionHash: "0xsale2",
				FromAddress:     testBuyer,
				ToAddress:       testSeller,
				Type:            domain.TransactionTypeSale,
				Price:           &price,
				Status:          domain.TransactionStatusConfirmed,
			}, nil
		})
		require.NoError(t, err)

		auctionRef := buildTestAssetRef("0x7878787878787878787878787878787878787878", "1")
		auction, err := store.CreateListing(ctx, buildTestAuction(auctionRef, "1", time.Now().Add(time.Hour)))
		require.NoError(t, err)

		for _, txType := range []domain.TransactionType{domain.TransactionTypeBid, domain.TransactionTypeSale} {
			_, err = store.UpdateListing(ctx, auction.ID, func(l *schema.Listing, a *schema.Asset) (*schema.TransactionRecord, error) {
				bid := decimal.RequireFromString("9")
				bidder := testBidder
				l.HighestBid = &bid
				l.HighestBidder = &bidder
				return &schema.TransactionRecord{
					TransactionHash: "0xsale2",
					FromAddress:     testBidder,
					ToAddress:       auctionRef.ContractAddress,
					Type:            txType,
					Price:           &bid,
					Status:          domain.TransactionStatusConfirmed,
				}, nil
			})
			assert.ErrorIs(t, err, domain.ErrTransactionAlreadyRecorded)
		}

		record, err := store.GetTransactionByHash(ctx, "0xsale2")
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeSale, record.Type)
		assert.Equal(t, testBuyer, record.FromAddress)
		assert.True(t, record.Price.Equal(decimal.RequireFromString("2")))
		assert.Equal(t, saleRef.ContractAddress, record.ContractAddress)
		require.NotNil(t, record.AssetID)
		assert.Equal(t, sold.AssetID, *record.AssetID)

		got, err := store.GetListingByID(ctx, auction.ID)
		require.NoError(t, err)
		assert.Nil(t, got.HighestBid)
		assert.Equal(t, uint64(1), got.Version)
	})
}

// =============================================================================
// Test: Queries
// =============================================================================

func testGetListingsByFilter(t *testing.T, store Store) {
	ctx := context.Background()
	contract := domain.NormalizeAddress("0x1212121212121212121212121212121212121212")

	prices := []string{"9", "10", "0.5"}
	for i, price := range prices {
		_, err := store.CreateListing(ctx, buildTestListing(buildTestAssetRef(contract, fmt.Sprintf("%d", i)), price))
		require.NoError(t, err)
	}
	_, err := store.CreateListing(ctx, buildTestAuction(buildTestAssetRef(contract, "99"), "1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	t.Run("numeric price range", func(t *testing.T) {
		minPrice := decimal.RequireFromString("1")
		maxPrice := decimal.RequireFromString("9.5")
		listings, total, err := store.GetListingsByFilter(ctx, ListingQueryFilter{
			Contract: &contract,
			MinPrice: &minPrice,
			MaxPrice: &maxPrice,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		assert.Len(t, listings, 2)
	})

	t.Run("filter by type", func(t *testing.T) {
		listingType := domain.ListingTypeAuction
		listings, total, err := store.GetListingsByFilter(ctx, ListingQueryFilter{
			Contract:    &contract,
			ListingType: &listingType,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, listings, 1)
		assert.NotNil(t, listings[0].AuctionEndTime)
	})

	t.Run("sort by price ascending with pagination", func(t *testing.T) {
		listingType := domain.ListingTypeFixed
		listings, total, err := store.GetListingsByFilter(ctx, ListingQueryFilter{
			Contract:    &contract,
			ListingType: &listingType,
			SortBy:      ListingSortPrice,
			SortOrder:   SortOrderAsc,
			Limit:       2,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), total)
		require.Len(t, listings, 2)
		assert.Equal(t, "0.5", listings[0].Price.String())
		assert.Equal(t, "9", listings[1].Price.String())
		require.NotNil(t, listings[0].Asset)
	})
}

func testGetTransactionsByFilter(t *testing.T, store Store) {
	ctx := context.Background()
	ref := buildTestAssetRef("0x3434343434343434343434343434343434343434", "1")

	_, err := store.IndexTransfer(ctx, buildTestTransfer(ref, domain.ETHEREUM_ZERO_ADDRESS, testSeller, "0xhist-mint", 1, 0))
	require.NoError(t, err)
	_, err = store.IndexTransfer(ctx, buildTestTransfer(ref, testSeller, testBuyer, "0xhist-transfer", 2, 0))
	require.NoError(t, err)

	t.Run("by wallet", func(t *testing.T) {
		wallet := testBuyer
		records, total, err := store.GetTransactionsByFilter(ctx, TransactionQueryFilter{Wallet: &wallet})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, "0xhist-transfer", records[0].TransactionHash)
	})

	t.Run("by type", func(t *testing.T) {
		wallet := testSeller
		records, _, err := store.GetTransactionsByFilter(ctx, TransactionQueryFilter{
			Types:  []domain.TransactionType{domain.TransactionTypeMint},
			Wallet: &wallet,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "0xhist-mint", records[0].TransactionHash)
	})

	t.Run("unknown hash", func(t *testing.T) {
		record, err := store.GetTransactionByHash(ctx, "0xnope")
		require.NoError(t, err)
		assert.Nil(t, record)
	})
}

// =============================================================================
// Test: Key-value store and block cursor
// =============================================================================

func testKeyValueStore(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.SetKeyValue(ctx, "auth_nonce:0xabc", "nonce-1"))
	value, err := store.GetKeyValue(ctx, "auth_nonce:0xabc")
	require.NoError(t, err)
	assert.Equal(t, "nonce-1", value)

	deleted, err := store.DeleteKeyValue(ctx, "auth_nonce:0xabc")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteKeyValue(ctx, "auth_nonce:0xabc")
	require.NoError(t, err)
	assert.False(t, deleted)

	value, err = store.GetKeyValue(ctx, "auth_nonce:0xabc")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func testBlockCursor(t *testing.T, store Store) {
	ctx := context.Background()
	chain := string(domain.ChainPolygonMainnet)

	cursor, err := store.GetBlockCursor(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)

	require.NoError(t, store.SetBlockCursor(ctx, chain, 12345))
	cursor, err = store.GetBlockCursor(ctx, chain)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), cursor)
}

// RunStoreTests runs all store tests
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"IndexTransfer", testIndexTransfer},
		{"RefreshAssetOwner", testRefreshAssetOwner},
		{"CreateListing", testCreateListing},
		{"UpdateListing", testUpdateListing},
		{"GetListingsByFilter", testGetListingsByFilter},
		{"GetTransactionsByFilter", testGetTransactionsByFilter},
		{"KeyValueStore", testKeyValueStore},
		{"BlockCursor", testBlockCursor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
