package client

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "client"

type metrics struct {
	requests        *prometheus.CounterVec
	responses       *prometheus.CounterVec
	eventsReceived  *prometheus.CounterVec
	eventsConfirmed *prometheus.CounterVec
	pending         prometheus.Gauge
	queued          prometheus.Gauge
	requestDuration *prometheus.HistogramVec
	decodeErrors    prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "ccanvas"
	}
	return &metrics{
		requests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "requests_total",
			Help:      "Requests sent to the server, by request type.",
		}, []string{"type"})),
		responses: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "responses_total",
			Help:      "Responses received from the server, by outcome.",
		}, []string{"outcome"})),
		eventsReceived: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "events_received_total",
			Help:      "Events pushed by the server, by event type.",
		}, []string{"type"})),
		eventsConfirmed: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "events_confirmed_total",
			Help:      "Event confirmations sent, by pass flag.",
		}, []string{"pass"})),
		pending: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "pending_requests",
			Help:      "Requests awaiting a response.",
		})),
		queued: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "queued_events",
			Help:      "Events received but not yet taken by the receiver.",
		})),
		requestDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time from sending a request to receiving its response.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		}, []string{"type"})),
		decodeErrors: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: metricsSubsystem,
			Name:      "decode_errors_total",
			Help:      "Inbound messages that could not be decoded.",
		})),
	}
}

// register adds c to reg, reusing an identical collector registered by an
// earlier client on the same registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) confirmed(pass bool) {
	m.eventsConfirmed.WithLabelValues(strconv.FormatBool(pass)).Inc()
}
