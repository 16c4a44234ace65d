// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcription_core"

// Metrics holds all Prometheus metrics for the transcription server and the
// remote transcriber adapter.
type Metrics struct {
	// Admission control (§3 Admission Slot, Waiting Counter)
	AdmissionInFlight prometheus.Gauge
	AdmissionWaiting  prometheus.Gauge
	RequestsAccepted  prometheus.Counter
	RequestsShed      *prometheus.CounterVec

	// Decode outcomes (§4.1 temperature fallback)
	DecodeLatency   *prometheus.HistogramVec
	DecodeAttempts  prometheus.Histogram
	DecodeOutcome   *prometheus.CounterVec
	LanguageUnknown prometheus.Counter

	// RTA client (§4.2)
	RTALatency  *prometheus.HistogramVec
	RTARetries  prometheus.Counter
	RTAOverload prometheus.Counter

	// Event publishing
	KafkaPublishTotal  *prometheus.CounterVec
	KafkaPublishErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AdmissionInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "admission_in_flight",
			Help:      "Number of decoder invocations currently holding an admission slot.",
		}),
		AdmissionWaiting: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "admission_waiting",
			Help:      "Number of requests admitted past the busy check but not yet holding a slot.",
		}),
		RequestsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_accepted_total",
			Help:      "Total number of transcription requests that obtained an admission slot.",
		}),
		RequestsShed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_shed_total",
			Help:      "Total number of transcription requests rejected with 503 due to admission pressure.",
		}, []string{"reason"}),

		DecodeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_latency_seconds",
			Help:      "Decoder invocation latency by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		DecodeAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_temperature_attempts",
			Help:      "Number of temperature-fallback attempts consumed per request.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6},
		}),
		DecodeOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_outcome_total",
			Help:      "Total decode outcomes by classification.",
		}, []string{"outcome"}),
		LanguageUnknown: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "language_detection_unknown_total",
			Help:      "Total responses where language detection fell back to the unknown sentinel.",
		}),

		RTALatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rta_round_trip_seconds",
			Help:      "Remote transcriber adapter round-trip latency by outcome.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),
		RTARetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rta_retries_total",
			Help:      "Total number of retried RTA calls.",
		}),
		RTAOverload: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rta_overload_total",
			Help:      "Total number of RTA calls that surfaced an Overloaded error.",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published.",
		}, []string{"topic"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors.",
		}, []string{"topic"}),
	}
}

// RecordShed records a request being shed by the admission gate.
func (m *Metrics) RecordShed(reason string) {
	m.RequestsShed.WithLabelValues(reason).Inc()
}

// RecordDecode records one decoder invocation's latency and outcome.
func (m *Metrics) RecordDecode(outcome string, seconds float64) {
	m.DecodeLatency.WithLabelValues(outcome).Observe(seconds)
	m.DecodeOutcome.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic string, err error) {
	m.KafkaPublishTotal.WithLabelValues(topic).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic).Inc()
	}
}
