package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
)

// ConsumerConfig holds the configuration of the durable transfer event consumer
type ConsumerConfig struct {
	URL            string
	StreamName     string
	ConsumerName   string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	AckWaitTimeout time.Duration
	MaxDeliver     int
}

type consumer struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	json   adapter.JSON
	config ConsumerConfig
}

// NewConsumer creates a new NATS JetStream consumer
func NewConsumer(cfg ConsumerConfig, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Consumer, error) {
	nc, js, err := natsJS.Connect(cfg.URL, connectionOptions(cfg.ConnectionName, cfg.MaxReconnects, cfg.ReconnectWait)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &consumer{
		nc:     nc,
		js:     js,
		json:   jsonAdapter,
		config: cfg,
	}, nil
}

// Run pushes every received transfer event into out until ctx is cancelled
func (c *consumer) Run(ctx context.Context, out chan<- *messaging.Delivery) error {
	defer close(out)

	logger.InfoCtx(ctx, "Starting transfer consumer",
		zap.String("stream", c.config.StreamName),
		zap.String("consumer", c.config.ConsumerName))

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWaitTimeout,
		MaxDeliver:    c.config.MaxDeliver,
		FilterSubject: SubjectWildcard,
	}

	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := cons.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.InfoCtx(ctx, "Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := cons.Consume(func(msg adapter.Message) {
		select {
		case msgChan <- msg:
		case <-ctx.Done():
			// Unacknowledged messages are redelivered after the ack wait
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Shutting down transfer consumer")
			return ctx.Err()
		case msg := <-msgChan:
			delivery := c.toDelivery(ctx, msg)
			if delivery == nil {
				continue
			}
			select {
			case out <- delivery:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// toDelivery decodes a message, terminating it when the payload can never be processed
func (c *consumer) toDelivery(ctx context.Context, msg adapter.Message) *messaging.Delivery {
	var event domain.TransferEvent
	if err := c.json.Unmarshal(msg.Data(), &event); err != nil || !event.Valid() {
		if err == nil {
			err = errors.New("invalid transfer event")
		}
		logger.ErrorCtx(ctx, err, zap.String("message", "Failed to decode event"))
		if err := msg.Term(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Failed to terminate message"))
		}
		return nil
	}

	var deliveryCount uint64
	if metadata, err := msg.Metadata(); err == nil && metadata != nil {
		deliveryCount = metadata.NumDelivered
	}
	logger.DebugCtx(ctx, "Received event",
		zap.String("chain", string(event.Chain)),
		zap.String("txHash", event.TxHash),
		zap.Uint("logIndex", event.LogIndex),
		zap.Uint64("deliveryCount", deliveryCount),
	)

	return &messaging.Delivery{
		Event: &event,
		Settle: func(err error) {
			if err != nil {
				if err := msg.Nak(); err != nil {
					logger.ErrorCtx(ctx, err, zap.String("message", "Failed to NAK message"))
				}
				return
			}
			if err := msg.Ack(); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("message", "Failed to ACK message"))
			}
		},
	}
}

// Close closes the NATS connection
func (c *consumer) Close() {
	if c.nc == nil {
		return
	}

	c.nc.Close()
}
