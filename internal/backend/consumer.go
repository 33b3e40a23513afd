package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/broker"
	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
	"github.com/atomicstack/wiggle-chat/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultRetryInterval = 200 * time.Millisecond
	defaultRetryBurst    = 1
)

// ConsumerConfig describes the subscription a Consumer maintains.
type ConsumerConfig struct {
	Topic string
	// Origin identifies this process on published records.
	Origin string
	// ExcludeSelf drops deliveries whose origin equals Origin.
	ExcludeSelf bool
	// RetryInterval paces reads after transient errors.
	RetryInterval time.Duration
	Metrics       *metrics.Metrics
}

// Consumer relays broker deliveries into a Mailbox from its own goroutine.
type Consumer struct {
	cfg     ConsumerConfig
	sub     broker.Subscriber
	inbox   *Mailbox
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer subscribes to cfg.Topic and starts relaying into inbox. The
// subscription is opened once; if it cannot be opened, or later reports
// broker.ErrClosed, the consumer exits and closes inbox with the cause.
func NewConsumer(cfg ConsumerConfig, sub broker.Subscriber, inbox *Mailbox) *Consumer {
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:     cfg,
		sub:     sub,
		inbox:   inbox,
		limiter: rate.NewLimiter(rate.Every(interval), defaultRetryBurst),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Stop cancels the consumer. Use Wait to block until it has exited.
func (c *Consumer) Stop() {
	c.cancel()
}

// Wait blocks until the consumer goroutine has exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run() {
	defer c.wg.Done()

	subscription, err := c.sub.Subscribe(c.ctx, c.cfg.Topic)
	if err != nil {
		c.finish(fmt.Errorf("subscribe %s: %w", c.cfg.Topic, err))
		return
	}
	defer subscription.Close()
	events.Broker.Subscribed(c.cfg.Topic)
	logging.Info("broker subscription open", zap.String("topic", c.cfg.Topic))

	for {
		d, err := subscription.Next(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				c.finish(nil)
				return
			}
			if broker.IsFatal(err) {
				c.finish(fmt.Errorf("receive %s: %w", c.cfg.Topic, err))
				return
			}
			c.cfg.Metrics.BrokerError()
			logging.Warn("broker receive failed", zap.String("topic", c.cfg.Topic), zap.Error(err))
			if werr := c.limiter.Wait(c.ctx); werr != nil {
				c.finish(nil)
				return
			}
			continue
		}
		c.deliver(d)
	}
}

func (c *Consumer) deliver(d broker.Delivery) {
	msg, err := chat.Decode(d.Value)
	if err != nil {
		c.cfg.Metrics.DecodeFailure()
		logging.Warn("dropping undecodable payload",
			zap.String("topic", d.Topic),
			zap.Int("partition", d.Partition),
			zap.Int64("offset", d.Offset),
			zap.Error(err))
		return
	}
	if c.cfg.ExcludeSelf && c.cfg.Origin != "" && d.Origin == c.cfg.Origin {
		c.cfg.Metrics.SelfSkipped()
		events.Broker.SelfSkipped(msg.ID)
		return
	}
	events.Broker.Received(d.Topic, d.Partition, d.Offset, msg.ID)
	c.cfg.Metrics.Received()
	c.inbox.Send(msg)
}

func (c *Consumer) finish(err error) {
	events.Broker.Stopped(c.cfg.Topic, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error(err, zap.String("topic", c.cfg.Topic))
	} else {
		err = nil
	}
	c.inbox.Close(err)
}
