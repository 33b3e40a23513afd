// Package storage persists chat messages and loads them back for seeding.
package storage

import (
	"context"
	"errors"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Store is the persistence collaborator. Get returns every stored message
// in insertion order. Insert returns the message as stored, with Seq set to
// the sequence the store assigned; Seq, not ID, identifies a stored row.
type Store interface {
	Get(ctx context.Context) ([]chat.Message, error)
	Insert(ctx context.Context, msg chat.Message) (chat.Message, error)
	Close() error
}

// ByAuthor filters msgs down to those written by author. The input is not
// modified.
func ByAuthor(msgs []chat.Message, author string) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Author == author {
			out = append(out, msg)
		}
	}
	return out
}
