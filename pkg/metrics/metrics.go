package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all mail-worker metrics
type Metrics struct {
	EmailsDelivered    *prometheus.CounterVec
	EmailsFailed       *prometheus.CounterVec
	EmailsRetried      *prometheus.CounterVec
	EmailsDeadLetter   *prometheus.CounterVec
	EmailsDeduplicated *prometheus.CounterVec
	ProcessingLatency  *prometheus.HistogramVec
	QueueDepth         *prometheus.GaugeVec
	InFlightJobs       prometheus.Gauge
	BrokerReconnects   prometheus.Counter
	TransportSends     *prometheus.CounterVec
}

// New creates mail-worker metrics. Collectors are not registered here so
// tests can build independent instances; call Register once per process.
func New(namespace string) *Metrics {
	return &Metrics{
		EmailsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_delivered_total",
			Help:      "Total number of successfully delivered emails",
		}, []string{"event_type"}),
		EmailsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of email deliveries that failed",
		}, []string{"event_type"}),
		EmailsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_retried_total",
			Help:      "Total number of email delivery retries scheduled",
		}, []string{"event_type"}),
		EmailsDeadLetter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_dead_letter_total",
			Help:      "Total number of email jobs abandoned to the dead letter log",
		}, []string{"event_type"}),
		EmailsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_deduplicated_total",
			Help:      "Total number of duplicate deliveries suppressed",
		}, []string{"event_type"}),
		ProcessingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing email jobs",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"event_type"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of jobs per queue state",
		}, []string{"state"}),
		InFlightJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_jobs",
			Help:      "Current number of jobs inside the processing critical section",
		}),
		BrokerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_reconnects_total",
			Help:      "Total number of broker reconnection attempts",
		}),
		TransportSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_sends_total",
			Help:      "Total number of mail transport send calls",
		}, []string{"status"}),
	}
}

// Register attaches all collectors to the given registerer.
func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(
		m.EmailsDelivered,
		m.EmailsFailed,
		m.EmailsRetried,
		m.EmailsDeadLetter,
		m.EmailsDeduplicated,
		m.ProcessingLatency,
		m.QueueDepth,
		m.InFlightJobs,
		m.BrokerReconnects,
		m.TransportSends,
	)
}
