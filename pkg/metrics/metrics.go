package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec

	// OPD queue
	QueueEntriesAdded prometheus.Counter
	QueueTransitions  *prometheus.CounterVec
	QueueReorders     prometheus.Counter

	// Visits
	VisitsCreated prometheus.Counter
	VisitsUpdated prometheus.Counter

	// Billing
	InvoicesCreated  prometheus.Counter
	PaymentsRecorded *prometheus.CounterVec

	// Reference options
	OptionCacheHits   *prometheus.CounterVec
	OptionCacheMisses *prometheus.CounterVec

	// Worker
	DigestsSent   prometheus.Counter
	DigestsFailed prometheus.Counter
}

var (
	defaultOnce sync.Once
	defaultM    *Metrics
)

// Default returns the metrics registered on the default prometheus registry
// under the "opd" namespace.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultM = NewMetrics(prometheus.DefaultRegisterer, "opd")
	})
	return defaultM
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),
		RequestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "path", "type"}),

		QueueEntriesAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "entries_added_total",
			Help:      "Patients added to the OPD queue",
		}),
		QueueTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "status_transitions_total",
			Help:      "Appointment status changes by target status",
		}, []string{"status"}),
		QueueReorders: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "reorders_total",
			Help:      "Manual queue position changes",
		}),

		VisitsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "created_total",
			Help:      "Visits created",
		}),
		VisitsUpdated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visits",
			Name:      "updated_total",
			Help:      "Visits updated",
		}),

		InvoicesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "invoices_created_total",
			Help:      "Invoices created",
		}),
		PaymentsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payments_recorded_total",
			Help:      "Invoice payment updates by resulting status",
		}, []string{"status"}),

		OptionCacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "options",
			Name:      "cache_hits_total",
			Help:      "Reference option list cache hits",
		}, []string{"category"}),
		OptionCacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "options",
			Name:      "cache_misses_total",
			Help:      "Reference option list cache misses",
		}, []string{"category"}),

		DigestsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "followup_digests_sent_total",
			Help:      "Follow-up digest emails sent",
		}),
		DigestsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "followup_digests_failed_total",
			Help:      "Follow-up digest emails that failed to send",
		}),
	}
}

// NewTestMetrics registers on a private registry so tests can build as many
// instances as they like.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "opd_test")
}
