package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainPolygonMainnet  Chain = "eip155:137"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// chainAliases maps the human readable network names accepted by the API to CAIP-2 identifiers
var chainAliases = map[string]Chain{
	"ethereum": ChainEthereumMainnet,
	"mainnet":  ChainEthereumMainnet,
	"polygon":  ChainPolygonMainnet,
	"sepolia":  ChainEthereumSepolia,
}

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainPolygonMainnet ||
		chain == ChainEthereumSepolia
}

// ParseChain resolves either a CAIP-2 identifier or a network alias into a Chain
func ParseChain(s string) (Chain, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := chainAliases[s]; ok {
		return c, true
	}
	c := Chain(s)
	return c, IsValidChain(c)
}

// AssetRef identifies a token by chain, contract address and token id
type AssetRef struct {
	Chain           Chain  `json:"chain"`
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
}

// NewAssetRef creates an AssetRef with a normalized contract address
func NewAssetRef(chain Chain, contractAddress, tokenID string) AssetRef {
	return AssetRef{
		Chain:           chain,
		ContractAddress: NormalizeAddress(contractAddress),
		TokenID:         tokenID,
	}
}

// String returns the canonical form "chain:contract:tokenID" (e.g. "eip155:1:0xabc...:1234")
func (a AssetRef) String() string {
	return fmt.Sprintf("%s:%s:%s", a.Chain, a.ContractAddress, a.TokenID)
}

// Valid checks the chain, the contract address and the token id
func (a AssetRef) Valid() bool {
	if !IsValidChain(a.Chain) {
		return false
	}
	if !common.IsHexAddress(a.ContractAddress) {
		return false
	}
	return validTokenNumber(a.TokenID)
}

// ParseAssetRef parses the canonical "chain:contract:tokenID" form
func ParseAssetRef(s string) (AssetRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return AssetRef{}, fmt.Errorf("malformed asset reference: %s", s)
	}
	ref := NewAssetRef(Chain(fmt.Sprintf("%s:%s", parts[0], parts[1])), parts[2], parts[3])
	if !ref.Valid() {
		return AssetRef{}, fmt.Errorf("invalid asset reference: %s", s)
	}
	return ref, nil
}

// TransferEvent represents an ERC-721 Transfer log observed on chain
// This is the standard format published to NATS
type TransferEvent struct {
	Chain           Chain     `json:"chain"`            // e.g., "eip155:1"
	ContractAddress string    `json:"contract_address"` // contract address
	TokenID         string    `json:"token_id"`         // token ID
	FromAddress     string    `json:"from_address"`     // zero address for mint
	ToAddress       string    `json:"to_address"`       // recipient address
	TxHash          string    `json:"tx_hash"`          // transaction hash
	BlockNumber     uint64    `json:"block_number"`     // block number
	LogIndex        uint      `json:"log_index"`        // log index in the block (for ordering)
	Timestamp       time.Time `json:"timestamp"`        // block timestamp
}

// Valid checks that the event carries everything the indexer needs
func (e *TransferEvent) Valid() bool {
	if !e.AssetRef().Valid() {
		return false
	}
	if !common.IsHexAddress(e.FromAddress) || !common.IsHexAddress(e.ToAddress) {
		return false
	}
	return e.TxHash != ""
}

// AssetRef returns the reference of the transferred token
func (e *TransferEvent) AssetRef() AssetRef {
	return NewAssetRef(e.Chain, e.ContractAddress, e.TokenID)
}

// TransactionType returns mint when the sender is the zero address, transfer otherwise
func (e *TransferEvent) TransactionType() TransactionType {
	if NormalizeAddress(e.FromAddress) == ETHEREUM_ZERO_ADDRESS {
		return TransactionTypeMint
	}
	return TransactionTypeTransfer
}

// ListingType represents how a listing is sold
type ListingType string

const (
	ListingTypeFixed   ListingType = "fixed"
	ListingTypeAuction ListingType = "auction"
)

// Valid checks if the listing type is known
func (t ListingType) Valid() bool {
	return t == ListingTypeFixed || t == ListingTypeAuction
}

// ListingStatus represents the lifecycle state of a listing
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusCancelled ListingStatus = "cancelled"
	ListingStatusExpired   ListingStatus = "expired"
)

// Terminal reports whether no further transition is allowed
func (s ListingStatus) Terminal() bool {
	return s != ListingStatusActive
}

// TransactionType represents the kind of a transaction record
type TransactionType string

const (
	TransactionTypeMint      TransactionType = "mint"
	TransactionTypeTransfer  TransactionType = "transfer"
	TransactionTypeSale      TransactionType = "sale"
	TransactionTypeListing   TransactionType = "listing"
	TransactionTypeDelisting TransactionType = "delisting"
	TransactionTypeBid       TransactionType = "bid"
	TransactionTypeOffer     TransactionType = "offer"
)

// TransactionStatus represents the confirmation state of a transaction record
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// TransactionOutcome is the confirmed result of a monitored transaction
type TransactionOutcome struct {
	Success     bool   `json:"success"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	From        string `json:"from"`
	To          string `json:"to"`
	// Transfers lists the ERC-721 transfers emitted by the transaction
	Transfers []TransferLog `json:"transfers,omitempty"`
}

// TransferLog is an ERC-721 transfer found in a transaction receipt
type TransferLog struct {
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
	FromAddress     string `json:"from_address"`
	ToAddress       string `json:"to_address"`
	LogIndex        uint   `json:"log_index"`
}

// TransferLogIndex returns the log index of the last transfer of a token in the transaction
func (o *TransactionOutcome) TransferLogIndex(contractAddress, tokenID string) (uint, bool) {
	var (
		index uint
		found bool
	)
	for _, t := range o.Transfers {
		if SameAddress(t.ContractAddress, contractAddress) && t.TokenID == tokenID {
			index, found = t.LogIndex, true
		}
	}
	return index, found
}

// Status maps the outcome to a transaction record status
func (o *TransactionOutcome) Status() TransactionStatus {
	if o.Success {
		return TransactionStatusConfirmed
	}
	return TransactionStatusFailed
}

// IsValidAddress checks if the address is a hex encoded EVM address
func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddresses normalizes a list of addresses in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}

// NormalizeAddress converts an address to lowercase hex so comparisons are case-insensitive.
// Invalid addresses are returned lowercased and trimmed.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return strings.ToLower(common.HexToAddress(address).Hex())
	}
	return strings.ToLower(address)
}

// SameAddress compares two addresses case-insensitively
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

var tokenNumberRegexp = regexp.MustCompile(`^[0-9]+$`)

// validTokenNumber checks if a token number is valid
func validTokenNumber(tokenNumber string) bool {
	return tokenNumberRegexp.MatchString(tokenNumber)
}
