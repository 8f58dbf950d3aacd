package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// TransactionRecord represents the transaction_records table - the trade and transfer history
type TransactionRecord struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TransactionHash is unique across all records
	TransactionHash string `gorm:"column:transaction_hash;not null;uniqueIndex;type:text"`
	// FromAddress and ToAddress are lowercase hex wallet addresses
	FromAddress string `gorm:"column:from_address;not null;type:text;index"`
	ToAddress   string `gorm:"column:to_address;not null;type:text;index"`
	// AssetID references the asset involved, when known
	AssetID *uint64 `gorm:"column:asset_id;index"`
	// Chain, ContractAddress and TokenID denormalize the asset reference
	Chain           domain.Chain `gorm:"column:chain;not null;type:text"`
	ContractAddress string       `gorm:"column:contract_address;not null;type:text"`
	TokenID         string       `gorm:"column:token_id;not null;type:text"`
	// Type is mint, transfer, sale, listing, delisting, bid or offer
	Type domain.TransactionType `gorm:"column:type;not null;type:text;index"`
	// Price and Currency are set for sale and bid records
	Price    *decimal.Decimal `gorm:"column:price;type:numeric"`
	Currency *string          `gorm:"column:currency;type:text"`
	// Status is pending, confirmed or failed
	Status domain.TransactionStatus `gorm:"column:status;not null;type:text"`
	// BlockNumber and GasUsed come from the receipt or the indexed log
	BlockNumber *uint64 `gorm:"column:block_number"`
	GasUsed     *uint64 `gorm:"column:gas_used"`
	// Timestamp is the block time for indexed records and the write time otherwise
	Timestamp time.Time `gorm:"column:timestamp;not null;index"`
	// Raw stores the source payload (indexed event or request) as JSON
	Raw datatypes.JSON `gorm:"column:raw;type:jsonb"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the TransactionRecord model
func (TransactionRecord) TableName() string {
	return "transaction_records"
}
