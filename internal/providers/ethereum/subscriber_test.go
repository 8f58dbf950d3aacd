package ethereum_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/mocks"
	ethprovider "github.com/feral-file/ff-marketplace/internal/providers/ethereum"
)

// testSubscription is an ethereum.Subscription whose error channel the test controls
type testSubscription struct {
	errCh chan error
	once  sync.Once
}

func newTestSubscription() *testSubscription {
	return &testSubscription{errCh: make(chan error, 1)}
}

func (s *testSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.errCh) })
}

func (s *testSubscription) Err() <-chan error {
	return s.errCh
}

func eventForLog(vLog types.Log) *domain.TransferEvent {
	return &domain.TransferEvent{
		Chain:       domain.ChainEthereumMainnet,
		TxHash:      vLog.TxHash.Hex(),
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,
	}
}

func TestSubscriber_SubscribeEvents_BackfillThenLive(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthereumClient(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := newTestSubscription()
	live := buildTransferLog(102, 0, 3)
	client.EXPECT().
		SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
			assert.Equal(t, []common.Address{testContract}, q.Addresses)
			go func() {
				// A log of an already backfilled block is skipped
				ch <- buildTransferLog(100, 1, 1)
				ch <- live
			}()
			return sub, nil
		})
	client.EXPECT().HeadBlock(gomock.Any()).Return(uint64(101), nil)
	client.EXPECT().
		FilterTransferLogs(gomock.Any(), []string{domain.NormalizeAddress(testContract.Hex())}, uint64(100), uint64(101)).
		Return([]types.Log{buildTransferLog(100, 1, 1), buildTransferLog(101, 0, 2)}, nil)
	client.EXPECT().
		ParseTransferLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, vLog types.Log) (*domain.TransferEvent, error) {
			return eventForLog(vLog), nil
		}).
		Times(3)

	var blocks []uint64
	handler := func(event *domain.TransferEvent) error {
		blocks = append(blocks, event.BlockNumber)
		if event.BlockNumber == 102 {
			cancel()
		}
		return nil
	}

	subscriber := ethprovider.NewSubscriber(ethprovider.Config{
		ChainID:   domain.ChainEthereumMainnet,
		Contracts: []string{testContract.Hex()},
	}, client)
	err := subscriber.SubscribeEvents(ctx, 100, handler)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{100, 101, 102}, blocks)
}

func TestSubscriber_SubscribeEvents_RestartsAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthereumClient(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := newTestSubscription()
	gomock.InOrder(
		client.EXPECT().
			SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, assert.AnError),
		client.EXPECT().
			SubscribeFilterLogs(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
				go func() { ch <- buildTransferLog(10, 0, 1) }()
				return sub, nil
			}),
	)
	client.EXPECT().
		ParseTransferLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, vLog types.Log) (*domain.TransferEvent, error) {
			return eventForLog(vLog), nil
		})

	handled := make(chan struct{})
	handler := func(event *domain.TransferEvent) error {
		close(handled)
		cancel()
		return nil
	}

	subscriber := ethprovider.NewSubscriber(ethprovider.Config{
		ChainID:          domain.ChainEthereumMainnet,
		MaxRetryInterval: 10 * time.Millisecond,
	}, client)
	err := subscriber.SubscribeEvents(ctx, 0, handler)
	assert.ErrorIs(t, err, context.Canceled)

	select {
	case <-handled:
	default:
		t.Fatal("event was not handled after restart")
	}
}

func TestSubscriber_GetLatestBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockEthereumClient(ctrl)
	client.EXPECT().GetLatestBlock(gomock.Any()).Return(uint64(1234), nil)

	subscriber := ethprovider.NewSubscriber(ethprovider.Config{ChainID: domain.ChainEthereumMainnet}, client)
	got, err := subscriber.GetLatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), got)

	client.EXPECT().Close()
	subscriber.Close()
}
