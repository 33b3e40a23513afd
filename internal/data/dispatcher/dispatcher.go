// Package dispatcher performs the side effects of a submitted message off
// the render loop: one goroutine persists it, another publishes it.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/broker"
	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
	"github.com/atomicstack/wiggle-chat/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultKey is the record key every message is published under, which
	// keeps the topic on a single partition ordering.
	DefaultKey   = "0"
	DefaultLimit = 64
)

// Inserter is the part of storage the dispatcher writes to.
type Inserter interface {
	Insert(ctx context.Context, msg chat.Message) (chat.Message, error)
}

// Config describes where messages are published and how many effects may
// run at once.
type Config struct {
	Topic  string
	Key    string
	Origin string
	// Limit bounds in-flight persists and, separately, in-flight publishes.
	Limit   int64
	Metrics *metrics.Metrics
	// Now stamps published records. Defaults to time.Now.
	Now func() time.Time
	// Base is the context every effect runs under. Defaults to
	// context.Background.
	Base context.Context
}

// Dispatcher runs the storage and broker side effects of submitted messages.
type Dispatcher struct {
	cfg        Config
	store      Inserter
	pub        broker.Publisher
	persistSem *semaphore.Weighted
	publishSem *semaphore.Weighted
	wg         sync.WaitGroup
}

// New returns a Dispatcher writing to store and publishing through pub.
func New(cfg Config, store Inserter, pub broker.Publisher) *Dispatcher {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Base == nil {
		cfg.Base = context.Background()
	}
	return &Dispatcher{
		cfg:        cfg,
		store:      store,
		pub:        pub,
		persistSem: semaphore.NewWeighted(cfg.Limit),
		publishSem: semaphore.NewWeighted(cfg.Limit),
	}
}

// Dispatch starts persisting and publishing msg and returns immediately.
// The two effects are independent: neither waits for nor observes the
// other, and failures are logged and dropped.
func (d *Dispatcher) Dispatch(msg chat.Message) {
	if !msg.Dispatchable() {
		return
	}
	events.Dispatch.Queue(msg.ID)
	d.cfg.Metrics.Submitted()
	d.spawn(msg.Clone(), d.persistSem, d.persist)
	d.spawn(msg.Clone(), d.publishSem, d.publish)
}

// Wait blocks until every effect started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(msg chat.Message, sem *semaphore.Weighted, effect func(context.Context, chat.Message) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx := d.cfg.Base
		if err := sem.Acquire(ctx, 1); err != nil {
			logging.Warn("dispatch abandoned", zap.Int64("id", msg.ID), zap.Error(err))
			return
		}
		defer sem.Release(1)
		if err := effect(ctx, msg); err != nil {
			logging.Error(err, zap.Int64("id", msg.ID))
		}
	}()
}

func (d *Dispatcher) persist(ctx context.Context, msg chat.Message) error {
	if _, err := d.store.Insert(ctx, msg); err != nil {
		d.cfg.Metrics.PersistFailed()
		return fmt.Errorf("persist message: %w", err)
	}
	d.cfg.Metrics.Persisted()
	events.Dispatch.Persisted(msg.ID)
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, msg chat.Message) error {
	payload, err := chat.Encode(msg)
	if err != nil {
		d.cfg.Metrics.PublishFailed()
		return err
	}
	rec := broker.Record{
		Topic:  d.cfg.Topic,
		Key:    d.cfg.Key,
		Value:  payload,
		Time:   d.cfg.Now(),
		Origin: d.cfg.Origin,
	}
	if err := d.pub.Publish(ctx, rec); err != nil {
		d.cfg.Metrics.PublishFailed()
		return fmt.Errorf("publish message to %s: %w", d.cfg.Topic, err)
	}
	d.cfg.Metrics.Published()
	events.Dispatch.Published(msg.ID, d.cfg.Topic)
	return nil
}
