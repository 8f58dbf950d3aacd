package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest"
	"github.com/feral-file/ff-marketplace/internal/api/rest/dto"
	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/auth"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

const (
	testToken    = "test-token"
	testSeller   = "0x1111111111111111111111111111111111111111"
	testBuyer    = "0x2222222222222222222222222222222222222222"
	testContract = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

type testAPI struct {
	router      *gin.Engine
	marketplace *mocks.MockMarketplaceService
	auth        *mocks.MockAuthService
}

func setupTestAPI(t *testing.T) *testAPI {
	ctrl := gomock.NewController(t)
	market := mocks.NewMockMarketplaceService(ctrl)
	authService := mocks.NewMockAuthService(ctrl)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(market, authService), middleware.Auth(authService))

	return &testAPI{
		router:      router,
		marketplace: market,
		auth:        authService,
	}
}

// authenticate makes the test token resolve to wallet
func (a *testAPI) authenticate(wallet string) {
	a.auth.EXPECT().VerifyToken(testToken).Return(wallet, nil)
}

func (a *testAPI) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *apierrors.APIError {
	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func testListing(status domain.ListingStatus) *schema.Listing {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &schema.Listing{
		ID:          "01JX0000000000000000000000",
		AssetID:     7,
		Seller:      testSeller,
		Price:       decimal.RequireFromString("1.5"),
		Currency:    "ETH",
		ListingType: domain.ListingTypeFixed,
		Status:      status,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Asset: &schema.Asset{
			ID:              7,
			Chain:           domain.ChainEthereumMainnet,
			ContractAddress: testContract,
			TokenID:         "42",
			Owner:           testSeller,
			IsListed:        true,
		},
	}
}

func TestHealthCheck(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"ff-marketplace-api"}`, w.Body.String())
}

func TestCreateListing(t *testing.T) {
	t.Run("creates a listing for the authenticated wallet", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)
		api.marketplace.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, input marketplace.CreateListingInput) (*schema.Listing, error) {
				assert.Equal(t, testSeller, input.Seller)
				assert.Equal(t, domain.ChainEthereumMainnet, input.Asset.Chain)
				assert.Equal(t, testContract, input.Asset.ContractAddress)
				assert.Equal(t, "42", input.Asset.TokenID)
				assert.Equal(t, "1.5", input.Price)
				assert.Equal(t, domain.ListingTypeFixed, input.ListingType)
				require.NotNil(t, input.TxHash)
				assert.Equal(t, "0xaaaa", *input.TxHash)
				return testListing(domain.ListingStatusActive), nil
			})

		body := `{"chain":"ethereum","contract_address":"0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD","token_id":"42","price":"1.5","listing_type":"fixed","transaction_hash":"0xaaaa"}`
		w := api.do(http.MethodPost, "/api/v1/listings", body, true)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp dto.ListingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "01JX0000000000000000000000", resp.ID)
		assert.Equal(t, "1.5", resp.Price)
		assert.Equal(t, domain.ListingStatusActive, resp.Status)
		require.NotNil(t, resp.Asset)
		assert.Equal(t, "42", resp.Asset.TokenID)
	})

	t.Run("requires authentication", func(t *testing.T) {
		api := setupTestAPI(t)

		w := api.do(http.MethodPost, "/api/v1/listings", `{}`, false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apierrors.ErrCodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("rejects an unsupported chain", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)

		body := `{"chain":"tezos","contract_address":"KT1","token_id":"1","price":"1"}`
		w := api.do(http.MethodPost, "/api/v1/listings", body, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrCodeValidationFailed, decodeError(t, w).Code)
	})

	t.Run("rejects a missing price", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)

		body := `{"chain":"ethereum","contract_address":"` + testContract + `","token_id":"1"}`
		w := api.do(http.MethodPost, "/api/v1/listings", body, true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps not owner to forbidden", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)
		api.marketplace.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrNotOwner)

		body := `{"chain":"ethereum","contract_address":"` + testContract + `","token_id":"1","price":"1"}`
		w := api.do(http.MethodPost, "/api/v1/listings", body, true)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apierrors.ErrCodeForbidden, decodeError(t, w).Code)
	})

	t.Run("maps already listed to conflict", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)
		api.marketplace.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("asset 7: %w", domain.ErrAlreadyListed))

		body := `{"chain":"ethereum","contract_address":"` + testContract + `","token_id":"1","price":"1"}`
		w := api.do(http.MethodPost, "/api/v1/listings", body, true)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestListingMutations(t *testing.T) {
	listingID := "01JX0000000000000000000000"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(m *mocks.MockMarketplaceService)
		wantStatus int
	}{
		{
			name:   "update price",
			method: http.MethodPut,
			path:   "/api/v1/listings/" + listingID,
			body:   `{"price":"2.5"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().
					UpdatePrice(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, input marketplace.UpdateListingInput) (*schema.Listing, error) {
						assert.Equal(t, listingID, input.ListingID)
						assert.Equal(t, testBuyer, input.Caller)
						require.NotNil(t, input.Price)
						assert.Equal(t, "2.5", *input.Price)
						return testListing(domain.ListingStatusActive), nil
					})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "update without fields",
			method:     http.MethodPut,
			path:       "/api/v1/listings/" + listingID,
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "cancel by another wallet",
			method: http.MethodDelete,
			path:   "/api/v1/listings/" + listingID,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().Cancel(gomock.Any(), listingID, testBuyer, nil).Return(nil, domain.ErrNotAuthorized)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "buy without a payment hash",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/buy",
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().Buy(gomock.Any(), listingID, testBuyer, nil).Return(testListing(domain.ListingStatusSold), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "buy with a failed payment",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/buy",
			body:   `{"transaction_hash":"0xbeef"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().Buy(gomock.Any(), listingID, testBuyer, gomock.Any()).Return(nil, domain.ErrPaymentFailed)
			},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:   "buy with an unknown payment",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/buy",
			body:   `{"transaction_hash":"0xbeef"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().Buy(gomock.Any(), listingID, testBuyer, gomock.Any()).Return(nil, domain.ErrTransactionNotFound)
			},
			wantStatus: http.StatusFailedDependency,
		},
		{
			name:   "buy with a slow payment",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/buy",
			body:   `{"transaction_hash":"0xbeef"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().Buy(gomock.Any(), listingID, testBuyer, gomock.Any()).Return(nil, domain.ErrTransactionTimeout)
			},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:   "bid too low",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/bid",
			body:   `{"amount":"1.0"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().
					PlaceBid(gomock.Any(), listingID, testBuyer, "1.0", nil).
					Return(nil, fmt.Errorf("%w: current highest bid is 2", domain.ErrBidTooLow))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "bid without amount",
			method:     http.MethodPost,
			path:       "/api/v1/listings/" + listingID + "/bid",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "internal error is hidden",
			method: http.MethodPost,
			path:   "/api/v1/listings/" + listingID + "/bid",
			body:   `{"amount":"3"}`,
			setup: func(m *mocks.MockMarketplaceService) {
				m.EXPECT().PlaceBid(gomock.Any(), listingID, testBuyer, "3", nil).Return(nil, errors.New("pq: connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t)
			api.authenticate(testBuyer)
			if tt.setup != nil {
				tt.setup(api.marketplace)
			}

			w := api.do(tt.method, tt.path, tt.body, true)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestSettleListing(t *testing.T) {
	t.Run("is open to any caller", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().Settle(gomock.Any(), "abc", nil).Return(testListing(domain.ListingStatusExpired), nil)

		w := api.do(http.MethodPost, "/api/v1/listings/abc/settle", "", false)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.ListingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, domain.ListingStatusExpired, resp.Status)
	})

	t.Run("auction not ended", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().Settle(gomock.Any(), "abc", nil).Return(nil, domain.ErrAuctionNotEnded)

		w := api.do(http.MethodPost, "/api/v1/listings/abc/settle", "", false)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetListing(t *testing.T) {
	api := setupTestAPI(t)
	api.marketplace.EXPECT().GetListing(gomock.Any(), "missing").Return(nil, domain.ErrListingNotFound)

	w := api.do(http.MethodGet, "/api/v1/listings/missing", "", false)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierrors.ErrCodeNotFound, decodeError(t, w).Code)
}

func TestListListings(t *testing.T) {
	t.Run("parses filters and caps the limit", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().
			ListListings(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter marketplace.ListingFilter) ([]*schema.Listing, uint64, error) {
				assert.Equal(t, []domain.ListingStatus{domain.ListingStatusSold}, filter.Statuses)
				require.NotNil(t, filter.ListingType)
				assert.Equal(t, domain.ListingTypeAuction, *filter.ListingType)
				require.NotNil(t, filter.Chain)
				assert.Equal(t, domain.ChainPolygonMainnet, *filter.Chain)
				require.NotNil(t, filter.MinPrice)
				assert.Equal(t, "0.5", *filter.MinPrice)
				assert.Nil(t, filter.MaxPrice)
				assert.Equal(t, "price", string(filter.SortBy))
				assert.Equal(t, "asc", string(filter.SortOrder))
				assert.Equal(t, rest.MAX_PAGE_SIZE, filter.Limit)
				assert.Equal(t, uint64(10), filter.Offset)
				return []*schema.Listing{testListing(domain.ListingStatusSold)}, 11, nil
			})

		w := api.do(http.MethodGet, "/api/v1/listings?status=sold&listing_type=auction&chain=polygon&min_price=0.5&sort_by=price&sort_order=asc&limit=500&offset=10", "", false)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.ListingListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Listings, 1)
		assert.Equal(t, uint64(11), resp.Pagination.Total)
		assert.Equal(t, rest.MAX_PAGE_SIZE, resp.Pagination.Limit)
	})

	t.Run("defaults", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().
			ListListings(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter marketplace.ListingFilter) ([]*schema.Listing, uint64, error) {
				assert.Empty(t, filter.Statuses)
				assert.Equal(t, marketplace.DEFAULT_PAGE_LIMIT, filter.Limit)
				assert.Equal(t, "created_at", string(filter.SortBy))
				assert.Equal(t, "desc", string(filter.SortOrder))
				return nil, 0, nil
			})

		w := api.do(http.MethodGet, "/api/v1/listings", "", false)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"listings":[],"pagination":{"limit":20,"offset":0,"total":0}}`, w.Body.String())
	})

	for _, query := range []string{"sort_by=seller", "status=pending", "listing_type=raffle", "chain=tezos", "limit=abc"} {
		t.Run("rejects "+query, func(t *testing.T) {
			api := setupTestAPI(t)

			w := api.do(http.MethodGet, "/api/v1/listings?"+query, "", false)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetAsset(t *testing.T) {
	api := setupTestAPI(t)
	ref := domain.NewAssetRef(domain.ChainEthereumMainnet, testContract, "42")
	api.marketplace.EXPECT().GetAsset(gomock.Any(), ref).Return(testListing(domain.ListingStatusActive).Asset, nil)

	w := api.do(http.MethodGet, "/api/v1/assets/ethereum/0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD/42", "", false)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testSeller, resp.Owner)
	assert.True(t, resp.IsListed)
}

func TestVerifyAssetOwnership(t *testing.T) {
	path := "/api/v1/assets/ethereum/" + testContract + "/42/verify"
	ref := domain.NewAssetRef(domain.ChainEthereumMainnet, testContract, "42")

	t.Run("reports the caller's ownership", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)
		api.marketplace.EXPECT().VerifyOwnership(gomock.Any(), ref, testSeller).Return(true, nil)

		w := api.do(http.MethodGet, path, "", true)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.OwnershipResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.IsOwner)
		assert.Equal(t, testSeller, resp.Wallet)
		assert.Equal(t, "42", resp.TokenID)
	})

	t.Run("not owner", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testBuyer)
		api.marketplace.EXPECT().VerifyOwnership(gomock.Any(), ref, testBuyer).Return(false, nil)

		w := api.do(http.MethodGet, path, "", true)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.OwnershipResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.IsOwner)
	})

	t.Run("requires authentication", func(t *testing.T) {
		api := setupTestAPI(t)

		w := api.do(http.MethodGet, path, "", false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unsupported chain", func(t *testing.T) {
		api := setupTestAPI(t)
		api.authenticate(testSeller)

		w := api.do(http.MethodGet, "/api/v1/assets/solana/"+testContract+"/42/verify", "", true)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetAssetHistory(t *testing.T) {
	ref := domain.NewAssetRef(domain.ChainEthereumMainnet, testContract, "42")

	t.Run("filters by asset", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().
			ListTransactions(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter marketplace.TransactionFilter) ([]*schema.TransactionRecord, uint64, error) {
				require.NotNil(t, filter.Asset)
				assert.Equal(t, ref, *filter.Asset)
				assert.Nil(t, filter.Wallet)
				require.NotNil(t, filter.Type)
				assert.Equal(t, domain.TransactionTypeTransfer, *filter.Type)
				return []*schema.TransactionRecord{{
					TransactionHash: "0xfeed",
					Type:            domain.TransactionTypeTransfer,
					FromAddress:     testSeller,
					ToAddress:       testBuyer,
					Status:          domain.TransactionStatusConfirmed,
				}}, 1, nil
			})

		w := api.do(http.MethodGet, "/api/v1/assets/ethereum/"+testContract+"/42/history?type=transfer", "", false)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.TransactionListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Transactions, 1)
		assert.Equal(t, "0xfeed", resp.Transactions[0].TransactionHash)
		assert.Equal(t, uint64(1), resp.Pagination.Total)
	})

	t.Run("unknown asset", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, uint64(0), domain.ErrAssetNotFound)

		w := api.do(http.MethodGet, "/api/v1/assets/ethereum/"+testContract+"/7/history", "", false)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransactions(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		api := setupTestAPI(t)
		price := decimal.RequireFromString("1.25")
		currency := "ETH"
		api.marketplace.EXPECT().
			ListTransactions(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter marketplace.TransactionFilter) ([]*schema.TransactionRecord, uint64, error) {
				require.NotNil(t, filter.Type)
				assert.Equal(t, domain.TransactionTypeSale, *filter.Type)
				require.NotNil(t, filter.Wallet)
				assert.Equal(t, testBuyer, *filter.Wallet)
				return []*schema.TransactionRecord{{
					TransactionHash: "0xbeef",
					Type:            domain.TransactionTypeSale,
					FromAddress:     testBuyer,
					ToAddress:       testSeller,
					Price:           &price,
					Currency:        &currency,
					Status:          domain.TransactionStatusConfirmed,
				}}, 1, nil
			})

		w := api.do(http.MethodGet, "/api/v1/transactions?type=sale&wallet="+testBuyer, "", false)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.TransactionListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Transactions, 1)
		require.NotNil(t, resp.Transactions[0].Price)
		assert.Equal(t, "1.25", *resp.Transactions[0].Price)
	})

	t.Run("get missing", func(t *testing.T) {
		api := setupTestAPI(t)
		api.marketplace.EXPECT().GetTransaction(gomock.Any(), "0xdead").Return(nil, domain.ErrTransactionRecordNotFound)

		w := api.do(http.MethodGet, "/api/v1/transactions/0xdead", "", false)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("nonce", func(t *testing.T) {
		api := setupTestAPI(t)
		api.auth.EXPECT().IssueNonce(gomock.Any(), testSeller).Return("nonce-1", nil)

		w := api.do(http.MethodGet, "/api/v1/auth/nonce/"+testSeller, "", false)

		require.Equal(t, http.StatusOK, w.Code)
		var resp dto.NonceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "nonce-1", resp.Nonce)
		assert.Equal(t, auth.SignMessage("nonce-1"), resp.Message)
	})

	t.Run("nonce for an invalid address", func(t *testing.T) {
		api := setupTestAPI(t)
		api.auth.EXPECT().IssueNonce(gomock.Any(), "bogus").Return("", domain.ErrInvalidAddress)

		w := api.do(http.MethodGet, "/api/v1/auth/nonce/bogus", "", false)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("verify", func(t *testing.T) {
		api := setupTestAPI(t)
		expiresAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
		api.auth.EXPECT().
			Login(gomock.Any(), testSeller, "0xsig").
			Return(&auth.Token{Token: "jwt", Address: testSeller, ExpiresAt: expiresAt}, nil)

		w := api.do(http.MethodPost, "/api/v1/auth/verify", `{"address":"`+testSeller+`","signature":"0xsig"}`, false)

		require.Equal(t, http.StatusOK, w.Code)
		var token auth.Token
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &token))
		assert.Equal(t, "jwt", token.Token)
		assert.True(t, expiresAt.Equal(token.ExpiresAt))
	})

	t.Run("verify with a bad signature", func(t *testing.T) {
		api := setupTestAPI(t)
		api.auth.EXPECT().Login(gomock.Any(), testSeller, "0xsig").Return(nil, auth.ErrInvalidSignature)

		w := api.do(http.MethodPost, "/api/v1/auth/verify", `{"address":"`+testSeller+`","signature":"0xsig"}`, false)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
