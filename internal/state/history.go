package state

import "github.com/atomicstack/wiggle-chat/internal/chat"

// DefaultHistoryLimit is the number of messages kept when no limit is
// configured.
const DefaultHistoryLimit = 10

// History is the bounded, ordered message feed. It is not safe for
// concurrent use; the render loop owns it.
type History struct {
	entries []chat.Message
	limit   int
}

// NewHistory returns an empty history keeping at most limit messages.
// Non-positive limits select DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Limit reports the configured window size.
func (h *History) Limit() int {
	return h.limit
}

// Len reports the number of retained messages, including any not yet trimmed.
func (h *History) Len() int {
	return len(h.entries)
}

// Append adds messages in order without trimming.
func (h *History) Append(msgs ...chat.Message) {
	for _, msg := range msgs {
		h.entries = append(h.entries, msg.Clone())
	}
}

// Trim applies the window and returns how many messages were dropped.
func (h *History) Trim() int {
	before := len(h.entries)
	h.entries = Window(h.entries, h.limit)
	return before - len(h.entries)
}

// Entries returns a copy of the retained messages, oldest first.
func (h *History) Entries() []chat.Message {
	return cloneMessages(h.entries)
}

// Window returns the most recent k messages of msgs in their original order.
// It never removes more messages than are present; k below zero is treated as
// zero. When trimming is needed the result is backed by a fresh array so the
// dropped prefix can be collected.
func Window(msgs []chat.Message, k int) []chat.Message {
	if k < 0 {
		k = 0
	}
	count := len(msgs)
	if count <= k {
		return msgs
	}
	drop := count - k
	if k == 0 {
		return nil
	}
	kept := make([]chat.Message, k)
	copy(kept, msgs[drop:])
	return kept
}

func cloneMessages(msgs []chat.Message) []chat.Message {
	if len(msgs) == 0 {
		return nil
	}
	dup := make([]chat.Message, len(msgs))
	copy(dup, msgs)
	return dup
}
