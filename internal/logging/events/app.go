package events

import "github.com/atomicstack/wiggle-chat/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Seeded(count, kept int) {
	logging.Trace("app.seeded", map[string]interface{}{"count": count, "kept": kept})
}

func (AppTracer) Stop(reason string) {
	logging.Trace("app.stop", map[string]interface{}{"reason": reason})
}
