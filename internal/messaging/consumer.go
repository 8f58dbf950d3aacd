package messaging

import (
	"context"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Delivery is an event received from the broker together with its settlement callback
type Delivery struct {
	Event *domain.TransferEvent
	// Settle acknowledges the delivery when err is nil and requests redelivery otherwise
	Settle func(err error)
}

// Consumer defines the interface for receiving transfer events from the message broker.
// Events are delivered at least once, so receivers must be idempotent.
//
//go:generate mockgen -source=consumer.go -destination=../mocks/consumer.go -package=mocks -mock_names=Consumer=MockConsumer
type Consumer interface {
	// Run pushes deliveries into out until ctx is cancelled or the broker fails.
	// out is closed when Run returns.
	Run(ctx context.Context, out chan<- *Delivery) error
	// Close closes the connection
	Close()
}
