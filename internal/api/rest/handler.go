package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest/dto"
	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// CreateListing lists an asset owned by the authenticated wallet
	// POST /api/v1/listings
	CreateListing(c *gin.Context)

	// ListListings retrieves listings with optional filters
	// GET /api/v1/listings?status=<status>&listing_type=<type>&seller=<address>&chain=<chain>&contract=<address>&min_price=<price>&max_price=<price>&sort_by=<field>&sort_order=<order>&limit=<limit>&offset=<offset>
	ListListings(c *gin.Context)

	// GetListing retrieves a single listing with its asset
	// GET /api/v1/listings/:id
	GetListing(c *gin.Context)

	// UpdateListing changes the price or the auction end time of a listing
	// PUT /api/v1/listings/:id
	UpdateListing(c *gin.Context)

	// CancelListing cancels a listing on behalf of its seller
	// DELETE /api/v1/listings/:id
	CancelListing(c *gin.Context)

	// BuyListing buys a fixed-price listing
	// POST /api/v1/listings/:id/buy
	BuyListing(c *gin.Context)

	// PlaceBid places a bid on an auction
	// POST /api/v1/listings/:id/bid
	PlaceBid(c *gin.Context)

	// SettleListing closes an ended auction
	// POST /api/v1/listings/:id/settle
	SettleListing(c *gin.Context)

	// GetAsset retrieves an indexed asset
	// GET /api/v1/assets/:chain/:contract/:token
	GetAsset(c *gin.Context)

	// VerifyAssetOwnership checks on chain whether the authenticated wallet owns an asset
	// GET /api/v1/assets/:chain/:contract/:token/verify
	VerifyAssetOwnership(c *gin.Context)

	// GetAssetHistory retrieves the transaction records of an asset, newest first
	// GET /api/v1/assets/:chain/:contract/:token/history?type=<type>&wallet=<address>&limit=<limit>&offset=<offset>
	GetAssetHistory(c *gin.Context)

	// ListTransactions retrieves transaction records, newest first
	// GET /api/v1/transactions?type=<type>&wallet=<address>&limit=<limit>&offset=<offset>
	ListTransactions(c *gin.Context)

	// GetTransaction retrieves a transaction record by hash
	// GET /api/v1/transactions/:hash
	GetTransaction(c *gin.Context)

	// GetNonce issues a login nonce for a wallet
	// GET /api/v1/auth/nonce/:address
	GetNonce(c *gin.Context)

	// VerifySignature exchanges a signed nonce for an access token
	// POST /api/v1/auth/verify
	VerifySignature(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	marketplace marketplace.Service
	auth        auth.Service
}

// NewHandler creates a new REST API handler
func NewHandler(market marketplace.Service, authService auth.Service) Handler {
	return &handler{
		marketplace: market,
		auth:        authService,
	}
}

// bindOptionalJSON binds the request body when there is one
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func respondListing(c *gin.Context, status int, listing *schema.Listing) {
	c.JSON(status, dto.MapListingToDTO(listing))
}

// CreateListing lists an asset owned by the authenticated wallet
func (h *handler) CreateListing(c *gin.Context) {
	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	chain, ok := domain.ParseChain(req.Chain)
	if !ok {
		respondValidationError(c, "unsupported chain: "+req.Chain)
		return
	}

	listing, err := h.marketplace.Create(c.Request.Context(), marketplace.CreateListingInput{
		Asset:          domain.NewAssetRef(chain, req.ContractAddress, req.TokenID),
		Seller:         middleware.Wallet(c),
		Price:          req.Price,
		Currency:       req.Currency,
		ListingType:    req.ListingType,
		AuctionEndTime: req.AuctionEndTime,
		TxHash:         req.TransactionHash,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusCreated, listing)
}

// ListListings retrieves listings with optional filters
func (h *handler) ListListings(c *gin.Context) {
	params, err := ParseListListingsQuery(c)
	if err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	listings, total, err := h.marketplace.ListListings(c.Request.Context(), params.Filter())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.ListingListResponse{
		Listings:   make([]dto.ListingResponse, 0, len(listings)),
		Pagination: dto.Pagination{Limit: params.Limit, Offset: params.Offset, Total: total},
	}
	for _, listing := range listings {
		resp.Listings = append(resp.Listings, dto.MapListingToDTO(listing))
	}

	c.JSON(http.StatusOK, resp)
}

// GetListing retrieves a single listing with its asset
func (h *handler) GetListing(c *gin.Context) {
	listing, err := h.marketplace.GetListing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// UpdateListing changes the price or the auction end time of a listing
func (h *handler) UpdateListing(c *gin.Context) {
	var req dto.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if req.Price == nil && req.AuctionEndTime == nil {
		respondValidationError(c, "price or auction_end_time is required")
		return
	}

	listing, err := h.marketplace.UpdatePrice(c.Request.Context(), marketplace.UpdateListingInput{
		ListingID:      c.Param("id"),
		Caller:         middleware.Wallet(c),
		Price:          req.Price,
		AuctionEndTime: req.AuctionEndTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// CancelListing cancels a listing on behalf of its seller
func (h *handler) CancelListing(c *gin.Context) {
	var req dto.TransactionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	listing, err := h.marketplace.Cancel(c.Request.Context(), c.Param("id"), middleware.Wallet(c), req.TransactionHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// BuyListing buys a fixed-price listing
func (h *handler) BuyListing(c *gin.Context) {
	var req dto.TransactionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	listing, err := h.marketplace.Buy(c.Request.Context(), c.Param("id"), middleware.Wallet(c), req.TransactionHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// PlaceBid places a bid on an auction
func (h *handler) PlaceBid(c *gin.Context) {
	var req dto.BidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	listing, err := h.marketplace.PlaceBid(c.Request.Context(), c.Param("id"), middleware.Wallet(c), req.Amount, req.TransactionHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// SettleListing closes an ended auction
func (h *handler) SettleListing(c *gin.Context) {
	var req dto.TransactionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	listing, err := h.marketplace.Settle(c.Request.Context(), c.Param("id"), req.TransactionHash)
	if err != nil {
		respondError(c, err)
		return
	}

	respondListing(c, http.StatusOK, listing)
}

// assetParam reads the asset reference from the path, responding with 400 on an unsupported chain
func assetParam(c *gin.Context) (domain.AssetRef, bool) {
	chain, ok := domain.ParseChain(c.Param("chain"))
	if !ok {
		respondValidationError(c, "unsupported chain: "+c.Param("chain"))
		return domain.AssetRef{}, false
	}
	return domain.NewAssetRef(chain, c.Param("contract"), c.Param("token")), true
}

// GetAsset retrieves an indexed asset
func (h *handler) GetAsset(c *gin.Context) {
	ref, ok := assetParam(c)
	if !ok {
		return
	}

	asset, err := h.marketplace.GetAsset(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssetToDTO(asset))
}

// VerifyAssetOwnership checks on chain whether the authenticated wallet owns an asset
func (h *handler) VerifyAssetOwnership(c *gin.Context) {
	ref, ok := assetParam(c)
	if !ok {
		return
	}

	wallet := middleware.Wallet(c)
	owned, err := h.marketplace.VerifyOwnership(c.Request.Context(), ref, wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipResponse{
		Chain:           ref.Chain,
		ContractAddress: ref.ContractAddress,
		TokenID:         ref.TokenID,
		Wallet:          domain.NormalizeAddress(wallet),
		IsOwner:         owned,
	})
}

// GetAssetHistory retrieves the transaction records of an asset, newest first
func (h *handler) GetAssetHistory(c *gin.Context) {
	ref, ok := assetParam(c)
	if !ok {
		return
	}
	params, err := ParseListTransactionsQuery(c)
	if err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	filter := params.Filter()
	filter.Asset = &ref
	h.respondTransactions(c, params, filter)
}

// ListTransactions retrieves transaction records, newest first
func (h *handler) ListTransactions(c *gin.Context) {
	params, err := ParseListTransactionsQuery(c)
	if err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	h.respondTransactions(c, params, params.Filter())
}

func (h *handler) respondTransactions(c *gin.Context, params *ListTransactionsQueryParams, filter marketplace.TransactionFilter) {
	records, total, err := h.marketplace.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(records)),
		Pagination:   dto.Pagination{Limit: params.Limit, Offset: params.Offset, Total: total},
	}
	for _, record := range records {
		resp.Transactions = append(resp.Transactions, dto.MapTransactionToDTO(record))
	}

	c.JSON(http.StatusOK, resp)
}

// GetTransaction retrieves a transaction record by hash
func (h *handler) GetTransaction(c *gin.Context) {
	record, err := h.marketplace.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransactionToDTO(record))
}

// GetNonce issues a login nonce for a wallet
func (h *handler) GetNonce(c *gin.Context) {
	nonce, err := h.auth.IssueNonce(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NonceResponse{
		Nonce:   nonce,
		Message: auth.SignMessage(nonce),
	})
}

// VerifySignature exchanges a signed nonce for an access token
func (h *handler) VerifySignature(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-marketplace-api",
	})
}
