package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// PointQueryLogIndex is the log index recorded for owners observed through an ownerOf call at a block.
// A point query reflects the state after every log of that block, so it sorts after all of them.
const PointQueryLogIndex = math.MaxInt32

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations
const pgUniqueViolation = "23505"

type pgStore struct {
	db *gorm.DB
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// Zero values fall back to the defaults of NormalizeConnectionPoolSettings.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// MaxIdleConns must not exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// isUniqueViolation checks whether err was caused by a unique index
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// assetScope restricts a query to the asset identified by ref
func assetScope(ref domain.AssetRef) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("chain = ? AND contract_address = ? AND token_id = ?", ref.Chain, ref.ContractAddress, ref.TokenID)
	}
}

// GetAsset retrieves an asset by its chain reference
func (s *pgStore) GetAsset(ctx context.Context, ref domain.AssetRef) (*schema.Asset, error) {
	var asset schema.Asset
	err := s.db.WithContext(ctx).Scopes(assetScope(ref)).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// lockOrCreateAsset inserts the asset if it is missing and returns the row locked for update.
// The returned bool is true when the row was created by this call.
func lockOrCreateAsset(tx *gorm.DB, seed schema.Asset) (*schema.Asset, bool, error) {
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}, {Name: "contract_address"}, {Name: "token_id"}},
		DoNothing: true,
	}).Clauses(clause.Returning{Columns: []clause.Column{}}).
		Create(&seed).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create asset: %w", err)
	}
	if seed.ID != 0 {
		return &seed, true, nil
	}

	var asset schema.Asset
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(assetScope(seed.Ref())).
		First(&asset).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock asset: %w", err)
	}
	return &asset, false, nil
}

// IndexTransfer records an indexed transfer.
// The transaction record is created only if no record exists for the hash, and the asset owner
// advances only when the event's (block number, log index) is newer than the stored one.
// Replaying an already indexed event performs no write.
func (s *pgStore) IndexTransfer(ctx context.Context, input IndexTransferInput) (*IndexTransferResult, error) {
	result := &IndexTransferResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Create or lock the asset
		seed := schema.Asset{
			Chain:            input.Asset.Chain,
			ContractAddress:  input.Asset.ContractAddress,
			TokenID:          input.Asset.TokenID,
			Owner:            input.ToAddress,
			OwnerBlockNumber: input.BlockNumber,
			OwnerLogIndex:    input.LogIndex,
		}
		if input.Type == domain.TransactionTypeMint {
			seed.Creator = &input.ToAddress
		}

		asset, created, err := lockOrCreateAsset(tx, seed)
		if err != nil {
			return err
		}
		result.OwnerUpdated = created

		// 2. Advance the owner if the event is newer than the stored ordering key
		if !created && asset.OwnedBefore(input.BlockNumber, input.LogIndex) {
			updates := map[string]interface{}{
				"owner":              input.ToAddress,
				"owner_block_number": input.BlockNumber,
				"owner_log_index":    input.LogIndex,
				"updated_at":         time.Now(),
			}
			if input.Type == domain.TransactionTypeMint && asset.Creator == nil {
				updates["creator"] = input.ToAddress
			}
			if err := tx.Model(asset).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update asset owner: %w", err)
			}
			asset.Owner = input.ToAddress
			asset.OwnerBlockNumber = input.BlockNumber
			asset.OwnerLogIndex = input.LogIndex
			result.OwnerUpdated = true
		}

		// 3. Create the transaction record, skipping duplicates by hash
		blockNumber := input.BlockNumber
		record := schema.TransactionRecord{
			TransactionHash: input.TxHash,
			FromAddress:     input.FromAddress,
			ToAddress:       input.ToAddress,
			AssetID:         &asset.ID,
			Chain:           input.Asset.Chain,
			ContractAddress: input.Asset.ContractAddress,
			TokenID:         input.Asset.TokenID,
			Type:            input.Type,
			Status:          domain.TransactionStatusConfirmed,
			BlockNumber:     &blockNumber,
			Timestamp:       input.Timestamp,
			Raw:             input.Raw,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_hash"}},
			DoNothing: true,
		}).Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		result.RecordCreated = record.ID != 0
		result.Asset = asset

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RefreshAssetOwner sets the owner observed through an ownerOf call at blockNumber.
// It never moves the owner back to an older chain position and reports whether a write happened.
func (s *pgStore) RefreshAssetOwner(ctx context.Context, input RefreshAssetOwnerInput) (bool, error) {
	updated := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, created, err := lockOrCreateAsset(tx, schema.Asset{
			Chain:            input.Asset.Chain,
			ContractAddress:  input.Asset.ContractAddress,
			TokenID:          input.Asset.TokenID,
			Owner:            input.Owner,
			OwnerBlockNumber: input.BlockNumber,
			OwnerLogIndex:    PointQueryLogIndex,
		})
		if err != nil {
			return err
		}
		if created {
			updated = true
			return nil
		}

		if asset.Owner == input.Owner || !asset.OwnedBefore(input.BlockNumber, PointQueryLogIndex) {
			return nil
		}

		if err := tx.Model(asset).Updates(map[string]interface{}{
			"owner":              input.Owner,
			"owner_block_number": input.BlockNumber,
			"owner_log_index":    PointQueryLogIndex,
			"updated_at":         time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to refresh asset owner: %w", err)
		}
		updated = true

		return nil
	})
	if err != nil {
		return false, err
	}

	return updated, nil
}

// indexedTransactionTypes are the record types written by the transfer indexer
var indexedTransactionTypes = []string{string(domain.TransactionTypeMint), string(domain.TransactionTypeTransfer)}

// saveTransactionRecord appends a marketplace transaction record to the history.
// A sale takes over the indexed transfer or mint record of the same transaction, so a sale settled
// through the API is not shadowed by the transfer log. Any other existing record is left untouched
// and ErrTransactionAlreadyRecorded is returned.
func saveTransactionRecord(tx *gorm.DB, record *schema.TransactionRecord) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}
	if record.Type == domain.TransactionTypeSale {
		onConflict = clause.OnConflict{
			Columns: []clause.Column{{Name: "transaction_hash"}},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "transaction_records.type IN ?", Vars: []interface{}{indexedTransactionTypes}},
			}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type", "from_address", "to_address", "asset_id", "chain", "contract_address", "token_id",
				"price", "currency", "status", "block_number", "gas_used",
			}),
		}
	}

	result := tx.Clauses(onConflict).Create(record)
	if result.Error != nil {
		return fmt.Errorf("failed to save transaction record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionAlreadyRecorded, record.TransactionHash)
	}
	return nil
}

// fillRecordAsset copies the asset reference onto a record
func fillRecordAsset(record *schema.TransactionRecord, asset *schema.Asset) {
	record.AssetID = &asset.ID
	record.Chain = asset.Chain
	record.ContractAddress = asset.ContractAddress
	record.TokenID = asset.TokenID
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
}

// CreateListing creates an active listing for an asset.
// The asset row is locked while checking for an existing active listing; the partial unique index
// on active listings rejects concurrent writers that slip past the check.
func (s *pgStore) CreateListing(ctx context.Context, input CreateListingInput) (*schema.Listing, error) {
	var listing schema.Listing

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Create or lock the asset
		asset, _, err := lockOrCreateAsset(tx, schema.Asset{
			Chain:            input.Asset.Chain,
			ContractAddress:  input.Asset.ContractAddress,
			TokenID:          input.Asset.TokenID,
			// Block zero sorts the seller before every indexed transfer
			Owner:         input.Seller,
			OwnerLogIndex: PointQueryLogIndex,
		})
		if err != nil {
			return err
		}

		// 2. Reject if an active listing exists
		var count int64
		if err := tx.Model(&schema.Listing{}).
			Where("asset_id = ? AND status = ?", asset.ID, domain.ListingStatusActive).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check active listing: %w", err)
		}
		if count > 0 {
			return domain.ErrAlreadyListed
		}

		// 3. Create the listing
		currency := input.Currency
		if currency == "" {
			currency = domain.DEFAULT_CURRENCY
		}
		listing = schema.Listing{
			ID:             input.ID,
			AssetID:        asset.ID,
			Seller:         input.Seller,
			Price:          input.Price,
			Currency:       currency,
			ListingType:    input.ListingType,
			AuctionEndTime: input.AuctionEndTime,
			Status:         domain.ListingStatusActive,
			Version:        1,
		}
		if err := tx.Create(&listing).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyListed
			}
			return fmt.Errorf("failed to create listing: %w", err)
		}

		// 4. Mark the asset as listed
		if err := tx.Model(asset).Updates(map[string]interface{}{
			"is_listed":  true,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to mark asset listed: %w", err)
		}
		asset.IsListed = true

		// 5. Record the listing transaction
		if input.Record != nil {
			fillRecordAsset(input.Record, asset)
			if err := saveTransactionRecord(tx, input.Record); err != nil {
				return err
			}
		}

		listing.Asset = asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &listing, nil
}

// UpdateListing locks the listing and then its asset, applies the transition and persists both rows
// together with the returned transaction record. The listing version is incremented on every
// successful transition.
func (s *pgStore) UpdateListing(ctx context.Context, listingID string, transition ListingTransition) (*schema.Listing, error) {
	var listing schema.Listing

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the listing
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", listingID).
			First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrListingNotFound
			}
			return fmt.Errorf("failed to lock listing: %w", err)
		}

		// 2. Lock the asset
		var asset schema.Asset
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", listing.AssetID).
			First(&asset).Error; err != nil {
			return fmt.Errorf("failed to lock asset: %w", err)
		}

		// 3. Apply the transition
		record, err := transition(&listing, &asset)
		if err != nil {
			return err
		}

		// 4. Persist the listing and the asset
		now := time.Now()
		listing.Version++
		listing.UpdatedAt = now
		if err := tx.Omit(clause.Associations).Save(&listing).Error; err != nil {
			return fmt.Errorf("failed to save listing: %w", err)
		}
		asset.UpdatedAt = now
		if err := tx.Save(&asset).Error; err != nil {
			return fmt.Errorf("failed to save asset: %w", err)
		}

		// 5. Record the transaction
		if record != nil {
			fillRecordAsset(record, &asset)
			if err := saveTransactionRecord(tx, record); err != nil {
				return err
			}
		}

		listing.Asset = &asset
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &listing, nil
}

// GetListingByID retrieves a listing with its asset.
// The primary is consulted when the replica has not caught up with a freshly created listing.
func (s *pgStore) GetListingByID(ctx context.Context, listingID string) (*schema.Listing, error) {
	query := func(db *gorm.DB) (*schema.Listing, error) {
		var listing schema.Listing
		err := db.WithContext(ctx).Preload("Asset").Where("id = ?", listingID).First(&listing).Error
		if err != nil {
			return nil, err
		}
		return &listing, nil
	}

	listing, err := query(s.db)
	if err == nil {
		return listing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	if !hasDBResolver(s.db) {
		return nil, nil
	}

	// Replica can lag behind primary; retry on primary before returning not found.
	listing, err = query(s.db.Clauses(dbresolver.Write))
	if err == nil {
		return listing, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to get listing: %w", err)
}

// GetActiveListingByAssetID retrieves the active listing of an asset
func (s *pgStore) GetActiveListingByAssetID(ctx context.Context, assetID uint64) (*schema.Listing, error) {
	var listing schema.Listing
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND status = ?", assetID, domain.ListingStatusActive).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active listing: %w", err)
	}
	return &listing, nil
}

// GetListingsByFilter retrieves listings with filtering and pagination
func (s *pgStore) GetListingsByFilter(ctx context.Context, filter ListingQueryFilter) ([]*schema.Listing, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Listing{}).
		Joins("JOIN assets ON assets.id = listings.asset_id")

	// Apply filters
	if len(filter.Statuses) > 0 {
		query = query.Where("listings.status IN ?", filter.Statuses)
	}
	if filter.ListingType != nil {
		query = query.Where("listings.listing_type = ?", *filter.ListingType)
	}
	if filter.Seller != nil {
		query = query.Where("listings.seller = ?", *filter.Seller)
	}
	if filter.Chain != nil {
		query = query.Where("assets.chain = ?", *filter.Chain)
	}
	if filter.Contract != nil {
		query = query.Where("assets.contract_address = ?", *filter.Contract)
	}
	if filter.MinPrice != nil {
		query = query.Where("listings.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("listings.price <= ?", *filter.MaxPrice)
	}

	// Get total count
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}
	query = query.Select("listings.*")

	// Apply sorting
	sortBy := ListingSortCreatedAt
	switch filter.SortBy {
	case ListingSortPrice, ListingSortAuctionEndTime:
		sortBy = filter.SortBy
	}
	sortOrder := SortOrderDesc
	if filter.SortOrder == SortOrderAsc {
		sortOrder = SortOrderAsc
	}
	query = query.Order(fmt.Sprintf("listings.%s %s, listings.id %s", sortBy, sortOrder, sortOrder))

	// Apply pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(int(filter.Offset)) //nolint:gosec,G115
	}

	var listings []*schema.Listing
	if err := query.Preload("Asset").Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get listings: %w", err)
	}

	return listings, uint64(total), nil //nolint:gosec,G115
}

// GetTransactionByHash retrieves a transaction record by hash
func (s *pgStore) GetTransactionByHash(ctx context.Context, txHash string) (*schema.TransactionRecord, error) {
	var record schema.TransactionRecord
	err := s.db.WithContext(ctx).Where("transaction_hash = ?", txHash).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction record: %w", err)
	}
	return &record, nil
}

// GetTransactionsByFilter retrieves transaction records with filtering and pagination, newest first
func (s *pgStore) GetTransactionsByFilter(ctx context.Context, filter TransactionQueryFilter) ([]*schema.TransactionRecord, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.TransactionRecord{})

	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.Wallet != nil {
		query = query.Where("from_address = ? OR to_address = ?", *filter.Wallet, *filter.Wallet)
	}
	if filter.AssetID != nil {
		query = query.Where("asset_id = ?", *filter.AssetID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transaction records: %w", err)
	}

	query = query.Order("timestamp DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(int(filter.Offset)) //nolint:gosec,G115
	}

	var records []*schema.TransactionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get transaction records: %w", err)
	}

	return records, uint64(total), nil //nolint:gosec,G115
}

// SetKeyValue sets a key-value pair in the key-value store
func (s *pgStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetKeyValue retrieves a value by key from the key-value store
func (s *pgStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key-value: %w", err)
	}

	return kv.Value, nil
}

// DeleteKeyValue removes a key from the key-value store.
// Only one of several concurrent callers observes true for the same key.
func (s *pgStore) DeleteKeyValue(ctx context.Context, key string) (bool, error) {
	result := s.db.WithContext(ctx).Where("key = ?", key).Delete(&schema.KeyValueStore{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete key-value: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetBlockCursor retrieves the last processed block number for a chain
func (s *pgStore) GetBlockCursor(ctx context.Context, chain string) (uint64, error) {
	value, err := s.GetKeyValue(ctx, blockCursorKey(chain))
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}

	blockNumber, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		logger.WarnCtx(ctx, "Malformed block cursor", zap.String("chain", chain), zap.String("value", value))
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last processed block number for a chain
func (s *pgStore) SetBlockCursor(ctx context.Context, chain string, blockNumber uint64) error {
	return s.SetKeyValue(ctx, blockCursorKey(chain), strconv.FormatUint(blockNumber, 10))
}
