package schema

import (
	"time"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Asset represents the assets table - one row per ERC-721 token known to the marketplace
type Asset struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Chain identifies the blockchain network (e.g., "eip155:1" for Ethereum mainnet)
	Chain domain.Chain `gorm:"column:chain;not null;type:text;uniqueIndex:idx_assets_chain_contract_token,priority:1"`
	// ContractAddress is the lowercase hex address of the token contract
	ContractAddress string `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_assets_chain_contract_token,priority:2"`
	// TokenID is the token ID within the contract (string to support very large numbers)
	TokenID string `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_assets_chain_contract_token,priority:3"`
	// Owner is the last indexed on-chain owner (lowercase hex)
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// Creator is the first recipient of the token (minter), when known
	Creator *string `gorm:"column:creator;type:text"`
	// IsListed is true iff an active listing exists for this asset
	IsListed bool `gorm:"column:is_listed;not null;default:false"`
	// OwnerBlockNumber and OwnerLogIndex order owner writes (last writer wins by chain position)
	OwnerBlockNumber uint64 `gorm:"column:owner_block_number;not null;default:0"`
	OwnerLogIndex    uint   `gorm:"column:owner_log_index;not null;default:0"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp of the last write
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Asset model
func (Asset) TableName() string {
	return "assets"
}

// Ref returns the chain reference of the asset
func (a *Asset) Ref() domain.AssetRef {
	return domain.AssetRef{Chain: a.Chain, ContractAddress: a.ContractAddress, TokenID: a.TokenID}
}

// OwnedBefore reports whether the stored owner is older than the given chain position
func (a *Asset) OwnedBefore(blockNumber uint64, logIndex uint) bool {
	if a.OwnerBlockNumber != blockNumber {
		return a.OwnerBlockNumber < blockNumber
	}
	return a.OwnerLogIndex < logIndex
}
