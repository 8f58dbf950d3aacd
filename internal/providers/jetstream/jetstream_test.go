package jetstream_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	mockspkg "github.com/feral-file/ff-marketplace/internal/mocks"
	js "github.com/feral-file/ff-marketplace/internal/providers/jetstream"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

type testJetStreamMocks struct {
	ctrl      *gomock.Controller
	natsJS    *mockspkg.MockNatsJetStream
	natsConn  *mockspkg.MockNatsConn
	jetStream *mockspkg.MockJetStream
}

func setupTestJetStream(t *testing.T) *testJetStreamMocks {
	ctrl := gomock.NewController(t)

	return &testJetStreamMocks{
		ctrl:      ctrl,
		natsJS:    mockspkg.NewMockNatsJetStream(ctrl),
		natsConn:  mockspkg.NewMockNatsConn(ctrl),
		jetStream: mockspkg.NewMockJetStream(ctrl),
	}
}

func testTransferEvent() *domain.TransferEvent {
	return &domain.TransferEvent{
		Chain:           domain.ChainEthereumMainnet,
		ContractAddress: "0x1111111111111111111111111111111111111111",
		TokenID:         "42",
		FromAddress:     domain.ETHEREUM_ZERO_ADDRESS,
		ToAddress:       "0x2222222222222222222222222222222222222222",
		TxHash:          "0xabc",
		BlockNumber:     100,
		LogIndex:        3,
		Timestamp:       time.Unix(1700000000, 0).UTC(),
	}
}

func TestBuildSubject(t *testing.T) {
	assert.Equal(t, "events.eip155_1.transfer", js.BuildSubject(domain.ChainEthereumMainnet))
	assert.Equal(t, "events.eip155_137.transfer", js.BuildSubject(domain.ChainPolygonMainnet))
}

func TestPublisher_NewPublisher(t *testing.T) {
	cfg := js.Config{
		URL:            "nats://localhost:4222",
		StreamName:     "MARKETPLACE_EVENTS",
		MaxReconnects:  10,
		ReconnectWait:  time.Second,
		ConnectionName: "test-emitter",
	}

	t.Run("creates stream", func(t *testing.T) {
		mocks := setupTestJetStream(t)
		mocks.natsJS.EXPECT().
			Connect(cfg.URL, gomock.Any()).
			Return(mocks.natsConn, mocks.jetStream, nil)
		mocks.jetStream.EXPECT().
			CreateOrUpdateStream(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, streamCfg jetstream.StreamConfig) error {
				assert.Equal(t, "MARKETPLACE_EVENTS", streamCfg.Name)
				assert.Equal(t, []string{js.SubjectWildcard}, streamCfg.Subjects)
				return nil
			})

		p, err := js.NewPublisher(context.Background(), cfg, mocks.natsJS, adapter.NewJSON())
		require.NoError(t, err)
		assert.NotNil(t, p)
	})

	t.Run("connect error", func(t *testing.T) {
		mocks := setupTestJetStream(t)
		mocks.natsJS.EXPECT().
			Connect(gomock.Any(), gomock.Any()).
			Return(nil, nil, assert.AnError)

		p, err := js.NewPublisher(context.Background(), cfg, mocks.natsJS, adapter.NewJSON())
		assert.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "failed to connect to NATS")
	})

	t.Run("stream error closes connection", func(t *testing.T) {
		mocks := setupTestJetStream(t)
		mocks.natsJS.EXPECT().
			Connect(gomock.Any(), gomock.Any()).
			Return(mocks.natsConn, mocks.jetStream, nil)
		mocks.jetStream.EXPECT().
			CreateOrUpdateStream(gomock.Any(), gomock.Any()).
			Return(assert.AnError)
		mocks.natsConn.EXPECT().Close()

		p, err := js.NewPublisher(context.Background(), cfg, mocks.natsJS, adapter.NewJSON())
		assert.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "failed to create/update stream")
	})
}

func TestPublisher_PublishEvent(t *testing.T) {
	mocks := setupTestJetStream(t)
	mocks.natsJS.EXPECT().
		Connect(gomock.Any(), gomock.Any()).
		Return(mocks.natsConn, mocks.jetStream, nil)
	mocks.jetStream.EXPECT().
		CreateOrUpdateStream(gomock.Any(), gomock.Any()).
		Return(nil)

	p, err := js.NewPublisher(context.Background(), js.Config{StreamName: "MARKETPLACE_EVENTS"}, mocks.natsJS, adapter.NewJSON())
	require.NoError(t, err)

	event := testTransferEvent()
	mocks.jetStream.EXPECT().
		Publish(gomock.Any(), "events.eip155_1.transfer", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
			var decoded domain.TransferEvent
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, *event, decoded)
			return &jetstream.PubAck{Stream: "MARKETPLACE_EVENTS"}, nil
		})
	require.NoError(t, p.PublishEvent(context.Background(), event))

	mocks.jetStream.EXPECT().
		Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, assert.AnError)
	err = p.PublishEvent(context.Background(), event)
	assert.ErrorIs(t, err, assert.AnError)

	mocks.natsConn.EXPECT().Close()
	p.Close()
}

func newTestConsumer(t *testing.T, mocks *testJetStreamMocks) messaging.Consumer {
	mocks.natsJS.EXPECT().
		Connect(gomock.Any(), gomock.Any()).
		Return(mocks.natsConn, mocks.jetStream, nil)

	c, err := js.NewConsumer(js.ConsumerConfig{
		URL:            "nats://localhost:4222",
		StreamName:     "MARKETPLACE_EVENTS",
		ConsumerName:   "indexer",
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
	}, mocks.natsJS, adapter.NewJSON())
	require.NoError(t, err)
	return c
}

func TestConsumer_Run_CreateConsumerError(t *testing.T) {
	mocks := setupTestJetStream(t)
	c := newTestConsumer(t, mocks)

	mocks.jetStream.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), "MARKETPLACE_EVENTS", jetstream.ConsumerConfig{
			Durable:       "indexer",
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			FilterSubject: js.SubjectWildcard,
		}).
		Return(nil, assert.AnError)

	out := make(chan *messaging.Delivery)
	err := c.Run(context.Background(), out)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create/update consumer")

	_, open := <-out
	assert.False(t, open)
}

func TestConsumer_Run_DeliversAndSettles(t *testing.T) {
	mocks := setupTestJetStream(t)
	c := newTestConsumer(t, mocks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload, err := json.Marshal(testTransferEvent())
	require.NoError(t, err)

	good := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	good.EXPECT().Data().Return(payload).AnyTimes()
	good.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 1}, nil).AnyTimes()
	good.EXPECT().Ack().Return(nil)

	retry := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	retry.EXPECT().Data().Return(payload).AnyTimes()
	retry.EXPECT().Metadata().Return(&jetstream.MsgMetadata{NumDelivered: 2}, nil).AnyTimes()
	retry.EXPECT().Nak().Return(nil)

	garbage := mockspkg.NewMockJetStreamMessage(mocks.ctrl)
	garbage.EXPECT().Data().Return([]byte("not json")).AnyTimes()
	garbage.EXPECT().Term().Return(nil)

	consumeContext := mockspkg.NewMockConsumeContext(mocks.ctrl)
	consumeContext.EXPECT().Stop().AnyTimes()

	natsConsumer := mockspkg.NewMockNatsConsumer(mocks.ctrl)
	natsConsumer.EXPECT().
		Info(gomock.Any()).
		Return(&jetstream.ConsumerInfo{Name: "indexer"}, nil)
	natsConsumer.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(handler adapter.MessageHandler, opts ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
			go func() {
				handler(garbage)
				handler(good)
				handler(retry)
			}()
			return consumeContext, nil
		})
	mocks.jetStream.EXPECT().
		CreateOrUpdateConsumer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(natsConsumer, nil)

	out := make(chan *messaging.Delivery)
	errChan := make(chan error, 1)
	go func() {
		errChan <- c.Run(ctx, out)
	}()

	first := <-out
	require.NotNil(t, first)
	assert.Equal(t, "0xabc", first.Event.TxHash)
	first.Settle(nil)

	second := <-out
	require.NotNil(t, second)
	second.Settle(assert.AnError)

	cancel()
	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out")
	}

	_, open := <-out
	assert.False(t, open)
}

func TestConsumer_Close(t *testing.T) {
	mocks := setupTestJetStream(t)
	c := newTestConsumer(t, mocks)

	mocks.natsConn.EXPECT().Close()
	c.Close()
}
