// Package metrics counts chat relay activity on a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wiggle_chat"

type Metrics struct {
	registry *prometheus.Registry

	submitted       prometheus.Counter
	persisted       prometheus.Counter
	persistFailures prometheus.Counter
	published       prometheus.Counter
	publishFailures prometheus.Counter
	received        prometheus.Counter
	decodeFailures  prometheus.Counter
	brokerErrors    prometheus.Counter
	selfSkipped     prometheus.Counter
	historyTrimmed  prometheus.Counter
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// New builds a Metrics with its own registry, including the Go runtime
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry:        prometheus.NewRegistry(),
		submitted:       counter("messages_submitted_total", "Messages submitted from the local session."),
		persisted:       counter("messages_persisted_total", "Messages written to storage."),
		persistFailures: counter("persist_failures_total", "Storage inserts that failed."),
		published:       counter("messages_published_total", "Messages handed to the broker."),
		publishFailures: counter("publish_failures_total", "Broker publishes that failed."),
		received:        counter("messages_received_total", "Messages relayed from the broker into the session."),
		decodeFailures:  counter("decode_failures_total", "Broker payloads dropped as undecodable."),
		brokerErrors:    counter("broker_receive_errors_total", "Transient broker read errors."),
		selfSkipped:     counter("self_deliveries_skipped_total", "Deliveries skipped because this process published them."),
		historyTrimmed:  counter("history_trimmed_total", "Messages evicted from the visible history."),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.submitted,
		m.persisted,
		m.persistFailures,
		m.published,
		m.publishFailures,
		m.received,
		m.decodeFailures,
		m.brokerErrors,
		m.selfSkipped,
		m.historyTrimmed,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Submitted() {
	if m != nil {
		m.submitted.Inc()
	}
}

func (m *Metrics) Persisted() {
	if m != nil {
		m.persisted.Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

func (m *Metrics) Published() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.publishFailures.Inc()
	}
}

func (m *Metrics) Received() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) DecodeFailure() {
	if m != nil {
		m.decodeFailures.Inc()
	}
}

func (m *Metrics) BrokerError() {
	if m != nil {
		m.brokerErrors.Inc()
	}
}

func (m *Metrics) SelfSkipped() {
	if m != nil {
		m.selfSkipped.Inc()
	}
}

// HistoryTrimmed adds n evicted messages.
func (m *Metrics) HistoryTrimmed(n int) {
	if m != nil && n > 0 {
		m.historyTrimmed.Add(float64(n))
	}
}
