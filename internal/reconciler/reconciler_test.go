package reconciler_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/cache"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/reconciler"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

const (
	testContract = "0x1111111111111111111111111111111111111111"
	testOwner    = "0x2222222222222222222222222222222222222222"
	testOther    = "0x3333333333333333333333333333333333333333"
)

type testReconcilerMocks struct {
	store       *mocks.MockStore
	client      *mocks.MockEthereumClient
	invalidator *mocks.MockInvalidator
	reconciler  reconciler.Reconciler
}

func setupTestReconciler(t *testing.T) *testReconcilerMocks {
	ctrl := gomock.NewController(t)

	tm := &testReconcilerMocks{
		store:       mocks.NewMockStore(ctrl),
		client:      mocks.NewMockEthereumClient(ctrl),
		invalidator: mocks.NewMockInvalidator(ctrl),
	}
	tm.client.EXPECT().Chain().Return(domain.ChainEthereumMainnet).AnyTimes()
	tm.reconciler = reconciler.NewReconciler(
		tm.store,
		ethereum.NewClients(tm.client),
		tm.invalidator,
		reconciler.Config{OwnershipTimeout: time.Second},
	)
	return tm
}

func testRef() domain.AssetRef {
	return domain.NewAssetRef(domain.ChainEthereumMainnet, testContract, "42")
}

func TestVerifyOwnership(t *testing.T) {
	tests := []struct {
		name     string
		claimed  string
		setup    func(tm *testReconcilerMocks)
		expected bool
	}{
		{
			name:    "owner matches and stored owner is refreshed",
			claimed: "0x2222222222222222222222222222222222222222",
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(500), nil)
				tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(500)).Return(testOwner, nil)
				tm.store.EXPECT().RefreshAssetOwner(gomock.Any(), store.RefreshAssetOwnerInput{
					Asset:       testRef(),
					Owner:       testOwner,
					BlockNumber: 500,
				}).Return(true, nil)
				tm.store.EXPECT().GetAsset(gomock.Any(), testRef()).Return(&schema.Asset{ID: 9}, nil)
				tm.invalidator.EXPECT().Invalidate(gomock.Any(), cache.PatternListings, cache.AssetKey(9))
			},
			expected: true,
		},
		{
			name:    "comparison is case-insensitive",
			claimed: "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD",
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(500), nil)
				tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(500)).
					Return("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", nil)
				tm.store.EXPECT().RefreshAssetOwner(gomock.Any(), gomock.Any()).Return(false, nil)
			},
			expected: true,
		},
		{
			name:    "stale local owner does not grant ownership",
			claimed: testOther,
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(500), nil)
				tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(500)).Return(testOwner, nil)
			},
			expected: false,
		},
		{
			name:    "ledger error fails closed",
			claimed: testOwner,
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(500), nil)
				tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(500)).Return("", assert.AnError)
			},
			expected: false,
		},
		{
			name:    "head block error fails closed",
			claimed: testOwner,
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(0), assert.AnError)
			},
			expected: false,
		},
		{
			name:    "refresh failure keeps a positive answer",
			claimed: testOwner,
			setup: func(tm *testReconcilerMocks) {
				tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(500), nil)
				tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(500)).Return(testOwner, nil)
				tm.store.EXPECT().RefreshAssetOwner(gomock.Any(), gomock.Any()).Return(false, assert.AnError)
			},
			expected: true,
		},
		{
			name:     "malformed claim",
			claimed:  "not-an-address",
			setup:    func(tm *testReconcilerMocks) {},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTestReconciler(t)
			tt.setup(tm)

			assert.Equal(t, tt.expected, tm.reconciler.VerifyOwnership(context.Background(), testRef(), tt.claimed))
		})
	}
}

func TestVerifyOwnership_UnsupportedChain(t *testing.T) {
	tm := setupTestReconciler(t)

	ref := domain.NewAssetRef(domain.ChainPolygonMainnet, testContract, "42")
	assert.False(t, tm.reconciler.VerifyOwnership(context.Background(), ref, testOwner))
}

func TestVerifyOwnership_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	client := mocks.NewMockEthereumClient(ctrl)
	client.EXPECT().Chain().Return(domain.ChainEthereumMainnet).AnyTimes()

	r := reconciler.NewReconciler(st, ethereum.NewClients(client), cache.NewNoopInvalidator(),
		reconciler.Config{OwnershipTimeout: 10 * time.Millisecond})

	client.EXPECT().HeadBlock(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (uint64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

	assert.False(t, r.VerifyOwnership(context.Background(), testRef(), testOwner))
}

func TestReconcile(t *testing.T) {
	t.Run("refreshes lagging owner", func(t *testing.T) {
		tm := setupTestReconciler(t)
		tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(700), nil)
		tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(700)).Return(testOther, nil)
		tm.store.EXPECT().RefreshAssetOwner(gomock.Any(), store.RefreshAssetOwnerInput{
			Asset:       testRef(),
			Owner:       testOther,
			BlockNumber: 700,
		}).Return(true, nil)
		tm.store.EXPECT().GetAsset(gomock.Any(), testRef()).Return(&schema.Asset{ID: 3}, nil)
		tm.invalidator.EXPECT().Invalidate(gomock.Any(), cache.PatternListings, cache.AssetKey(3))

		ownership, err := tm.reconciler.Reconcile(context.Background(), testRef())
		require.NoError(t, err)
		assert.Equal(t, testOther, ownership.Owner)
		assert.Equal(t, uint64(700), ownership.BlockNumber)
		assert.True(t, ownership.Updated)
	})

	t.Run("ledger errors are returned", func(t *testing.T) {
		tm := setupTestReconciler(t)
		tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(700), nil)
		tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(700)).Return("", assert.AnError)

		_, err := tm.reconciler.Reconcile(context.Background(), testRef())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("store errors are returned", func(t *testing.T) {
		tm := setupTestReconciler(t)
		tm.client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(700), nil)
		tm.client.EXPECT().ERC721OwnerOf(gomock.Any(), testContract, "42", uint64(700)).Return(testOwner, nil)
		tm.store.EXPECT().RefreshAssetOwner(gomock.Any(), gomock.Any()).Return(false, assert.AnError)

		_, err := tm.reconciler.Reconcile(context.Background(), testRef())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("invalid reference", func(t *testing.T) {
		tm := setupTestReconciler(t)
		_, err := tm.reconciler.Reconcile(context.Background(), domain.AssetRef{Chain: domain.ChainEthereumMainnet, TokenID: "1"})
		assert.Error(t, err)
	})
}
