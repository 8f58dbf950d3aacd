package rest

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/store"
)

const MAX_PAGE_SIZE = marketplace.MAX_PAGE_LIMIT

// ListListingsQueryParams holds query parameters for GET /listings
type ListListingsQueryParams struct {
	// Filters
	Statuses    []string `form:"status"`
	ListingType string   `form:"listing_type"`
	Seller      string   `form:"seller"`
	Chain       string   `form:"chain"`
	Contract    string   `form:"contract"`
	MinPrice    string   `form:"min_price"`
	MaxPrice    string   `form:"max_price"`

	// Sorting
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ListTransactionsQueryParams holds query parameters for GET /transactions
type ListTransactionsQueryParams struct {
	Type   string `form:"type"`
	Wallet string `form:"wallet"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ParseListListingsQuery parses query parameters for GET /listings
func ParseListListingsQuery(c *gin.Context) (*ListListingsQueryParams, error) {
	var params ListListingsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limit
	if params.Limit <= 0 {
		params.Limit = marketplace.DEFAULT_PAGE_LIMIT
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	switch store.ListingSortField(params.SortBy) {
	case store.ListingSortCreatedAt, store.ListingSortPrice, store.ListingSortAuctionEndTime:
	default:
		return nil, fmt.Errorf("unsupported sort_by: %s", params.SortBy)
	}
	if params.SortOrder != string(store.SortOrderAsc) && params.SortOrder != string(store.SortOrderDesc) {
		params.SortOrder = string(store.SortOrderDesc)
	}

	for _, s := range params.Statuses {
		switch domain.ListingStatus(s) {
		case domain.ListingStatusActive, domain.ListingStatusSold, domain.ListingStatusCancelled, domain.ListingStatusExpired:
		default:
			return nil, fmt.Errorf("unsupported status: %s", s)
		}
	}
	if params.ListingType != "" && !domain.ListingType(params.ListingType).Valid() {
		return nil, fmt.Errorf("unsupported listing_type: %s", params.ListingType)
	}
	if params.Chain != "" {
		if _, ok := domain.ParseChain(params.Chain); !ok {
			return nil, fmt.Errorf("unsupported chain: %s", params.Chain)
		}
	}

	return &params, nil
}

// Filter converts the query parameters to a marketplace listing filter
func (p *ListListingsQueryParams) Filter() marketplace.ListingFilter {
	filter := marketplace.ListingFilter{
		SortBy:    store.ListingSortField(p.SortBy),
		SortOrder: store.SortOrder(p.SortOrder),
		Limit:     p.Limit,
		Offset:    p.Offset,
	}
	for _, s := range p.Statuses {
		filter.Statuses = append(filter.Statuses, domain.ListingStatus(s))
	}
	if p.ListingType != "" {
		t := domain.ListingType(p.ListingType)
		filter.ListingType = &t
	}
	if p.Chain != "" {
		chain, _ := domain.ParseChain(p.Chain)
		filter.Chain = &chain
	}
	filter.Seller = optional(p.Seller)
	filter.Contract = optional(p.Contract)
	filter.MinPrice = optional(p.MinPrice)
	filter.MaxPrice = optional(p.MaxPrice)
	return filter
}

// ParseListTransactionsQuery parses query parameters for GET /transactions
func ParseListTransactionsQuery(c *gin.Context) (*ListTransactionsQueryParams, error) {
	var params ListTransactionsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = marketplace.DEFAULT_PAGE_LIMIT
	}
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// Filter converts the query parameters to a marketplace transaction filter
func (p *ListTransactionsQueryParams) Filter() marketplace.TransactionFilter {
	filter := marketplace.TransactionFilter{
		Wallet: optional(p.Wallet),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if p.Type != "" {
		t := domain.TransactionType(p.Type)
		filter.Type = &t
	}
	return filter
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
