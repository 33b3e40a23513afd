// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

// Messages builds n published messages from author with bodies
// "<prefix>1".."<prefix>n" and ids starting at firstID.
func Messages(n int, firstID int64, author, prefix string) []chat.Message {
	out := make([]chat.Message, n)
	for i := range out {
		out[i] = chat.Message{
			ID:        firstID + int64(i),
			Author:    author,
			Body:      fmt.Sprintf("%s%d", prefix, i+1),
			Published: true,
		}
	}
	return out
}

// Eventually polls cond every few milliseconds until it holds or timeout
// passes, then fails the test with msg.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %s: %s", timeout, msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
