package events

import "github.com/atomicstack/wiggle-chat/internal/logging"

type BrokerTracer struct{}

type DispatchTracer struct{}

var (
	Broker   = BrokerTracer{}
	Dispatch = DispatchTracer{}
)

func (BrokerTracer) Subscribed(topic string) {
	logging.Trace("broker.subscribed", map[string]interface{}{"topic": topic})
}

func (BrokerTracer) Received(topic string, partition int, offset int64, id int64) {
	logging.Trace("broker.received", map[string]interface{}{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
		"id":        id,
	})
}

func (BrokerTracer) SelfSkipped(id int64) {
	logging.Trace("broker.self-skipped", map[string]interface{}{"id": id})
}

func (BrokerTracer) Stopped(topic string, err error) {
	payload := map[string]interface{}{"topic": topic}
	if err != nil {
		payload["error"] = err.Error()
	}
	logging.Trace("broker.stopped", payload)
}

func (DispatchTracer) Queue(id int64) {
	logging.Trace("dispatch.queue", map[string]interface{}{"id": id})
}

func (DispatchTracer) Persisted(id int64) {
	logging.Trace("dispatch.persisted", map[string]interface{}{"id": id})
}

func (DispatchTracer) Published(id int64, topic string) {
	logging.Trace("dispatch.published", map[string]interface{}{"id": id, "topic": topic})
}
