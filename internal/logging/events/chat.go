package events

import "github.com/atomicstack/wiggle-chat/internal/logging"

type SessionTracer struct{}

type ComposeTracer struct{}

type HistoryTracer struct{}

type discardReason string

const (
	DiscardEmpty discardReason = "empty"
)

var (
	Session = SessionTracer{}
	Compose = ComposeTracer{}
	History = HistoryTracer{}
)

func (SessionTracer) Mode(from, to string) {
	logging.Trace("session.mode", map[string]interface{}{"from": from, "to": to})
}

func (SessionTracer) Identity(kind, name string) {
	logging.Trace("session.identity", map[string]interface{}{"kind": kind, "name": name})
}

func (SessionTracer) Quit() {
	logging.Trace("session.quit", nil)
}

func (ComposeTracer) Submit(id int64, author string) {
	logging.Trace("compose.submit", map[string]interface{}{"id": id, "author": author})
}

func (ComposeTracer) Discard(reason discardReason) {
	logging.Trace("compose.discard", map[string]interface{}{"reason": string(reason)})
}

func (HistoryTracer) Merge(count int) {
	logging.Trace("history.merge", map[string]interface{}{"count": count})
}

func (HistoryTracer) Trim(removed, kept int) {
	logging.Trace("history.trim", map[string]interface{}{"removed": removed, "kept": kept})
}
