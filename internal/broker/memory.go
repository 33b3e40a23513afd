package broker

import (
	"context"
	"fmt"
	"sync"
)

// Bus is an in-process broker. Every subscription on a topic sees every
// record published to it after the subscription opened, in publish order.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]*busSubscription
	closed bool
	offset int64
}

// NewBus returns an empty in-process broker.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*busSubscription)}
}

// Publish implements Publisher.
func (b *Bus) Publish(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.offset++
	d := Delivery{
		Topic:  rec.Topic,
		Key:    rec.Key,
		Value:  append([]byte(nil), rec.Value...),
		Time:   rec.Time,
		Origin: rec.Origin,
		Offset: b.offset,
	}
	for _, sub := range b.subs[rec.Topic] {
		sub.push(d)
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *Bus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topic == "" {
		return nil, fmt.Errorf("subscribe: empty topic")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	sub := &busSubscription{bus: b, topic: topic, notify: make(chan struct{}, 1)}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub, nil
}

// Inject delivers a raw payload to every subscriber of topic, bypassing
// encoding. Tests use it to simulate foreign or malformed producers.
func (b *Bus) Inject(topic string, value []byte) {
	_ = b.Publish(context.Background(), Record{Topic: topic, Value: value})
}

// Fail makes every open subscription on topic return err from its next
// read.
func (b *Bus) Fail(topic string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[topic] {
		sub.fail(err)
	}
}

// Close closes every subscription and rejects further use.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subs = nil
	return nil
}

func (b *Bus) remove(target *busSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[target.topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

type busSubscription struct {
	bus    *Bus
	topic  string
	notify chan struct{}

	mu      sync.Mutex
	pending []Delivery
	errs    []error
	closed  bool
}

func (s *busSubscription) push(d Delivery) {
	s.mu.Lock()
	if !s.closed {
		s.pending = append(s.pending, d)
	}
	s.mu.Unlock()
	s.wake()
}

func (s *busSubscription) fail(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.wake()
}

func (s *busSubscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *busSubscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next implements Subscription.
func (s *busSubscription) Next(ctx context.Context) (Delivery, error) {
	for {
		s.mu.Lock()
		if len(s.errs) > 0 {
			err := s.errs[0]
			s.errs = s.errs[1:]
			s.mu.Unlock()
			return Delivery{}, err
		}
		if len(s.pending) > 0 {
			d := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return d, nil
		}
		if s.closed {
			s.mu.Unlock()
			return Delivery{}, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Delivery{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// Close implements Subscription.
func (s *busSubscription) Close() error {
	s.close()
	if s.bus != nil {
		s.bus.remove(s)
	}
	return nil
}
