// Package broker abstracts the shared message broker used to fan chat
// messages out between client processes.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a Subscription that can no longer deliver.
var ErrClosed = errors.New("broker subscription closed")

// Record is an outgoing payload.
type Record struct {
	Topic  string
	Key    string
	Value  []byte
	Time   time.Time
	Origin string
}

// Delivery is an incoming payload with its transport metadata.
type Delivery struct {
	Topic     string
	Key       string
	Value     []byte
	Time      time.Time
	Origin    string
	Partition int
	Offset    int64
}

// Publisher hands records to the broker.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// Subscriber opens a subscription on a topic.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription yields deliveries in broker order. Next blocks until a
// delivery arrives, ctx is done, or the subscription fails. Errors other
// than ErrClosed and context errors are transient.
type Subscription interface {
	Next(ctx context.Context) (Delivery, error)
	Close() error
}

// Client is a broker connection able to publish and subscribe.
type Client interface {
	Publisher
	Subscriber
	Close() error
}

// IsFatal reports whether err ends a subscription.
func IsFatal(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
