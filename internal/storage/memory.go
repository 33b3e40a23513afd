package storage

import (
	"context"
	"sync"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	rows   []chat.Message
	seq    int64
	closed bool
}

// NewMemory returns a store preloaded with seed.
func NewMemory(seed ...chat.Message) *Memory {
	m := &Memory{}
	for _, msg := range seed {
		m.append(msg)
	}
	return m
}

func (m *Memory) Get(ctx context.Context) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]chat.Message, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return chat.Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return chat.Message{}, ErrClosed
	}
	return m.append(msg), nil
}

func (m *Memory) append(msg chat.Message) chat.Message {
	m.seq++
	stored := msg.Clone()
	stored.Seq = m.seq
	m.rows = append(m.rows, stored)
	return stored
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
