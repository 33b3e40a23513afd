package backend

import (
	"sync"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

// Mailbox is the unbounded delivery channel between the broker consumer and
// the render loop. Send never blocks and Drain never blocks; Ready is
// signalled whenever messages may be waiting.
type Mailbox struct {
	mu      sync.Mutex
	pending []chat.Message
	closed  bool
	err     error

	ready chan struct{}
	done  chan struct{}
}

// NewMailbox returns an open, empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send queues msg. Messages sent after Close are dropped.
func (b *Mailbox) Send(msg chat.Message) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.pending = append(b.pending, msg.Clone())
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain returns every queued message in arrival order and empties the
// mailbox.
func (b *Mailbox) Drain() []chat.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = nil
	return out
}

// Len reports how many messages are queued.
func (b *Mailbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Ready is signalled after a Send. A signal may be stale; callers must
// tolerate an empty Drain.
func (b *Mailbox) Ready() <-chan struct{} {
	return b.ready
}

// Done is closed once the producing side has terminated.
func (b *Mailbox) Done() <-chan struct{} {
	return b.done
}

// Close marks the producer as finished. err records why, and is nil for a
// normal shutdown. Queued messages remain drainable.
func (b *Mailbox) Close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.err = err
	close(b.done)
}

// Err returns the error passed to Close.
func (b *Mailbox) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}
