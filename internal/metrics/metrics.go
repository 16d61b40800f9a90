// Package metrics exposes the Prometheus registry and instruments for
// the HTTP surface, the database pool, the job queue, and the booking
// domain itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "openbookings"

// Registry is the Prometheus registry all instruments register with.
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels, value fixed at 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always 1, version in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthStatus tracks overall server health: 0=unhealthy, 1=degraded, 2=healthy.
var HealthStatus = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_status",
		Help:      "Overall server health status (0=unhealthy, 1=degraded, 2=healthy)",
	},
)

// HealthCheckStatus tracks individual health check results: 0=fail, 1=warn, 2=pass.
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual health check status (0=fail, 1=warn, 2=pass)",
	},
	[]string{"check"},
)

// BookingsCreated counts confirmed bookings.
var BookingsCreated = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Total number of bookings created",
	},
)

// BookingsExpired counts bookings cancelled by the unpaid-booking sweep.
var BookingsExpired = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_expired_total",
		Help:      "Total number of unpaid bookings expired by the sweep",
	},
)

// PaymentsProcessed counts payment attempts by outcome.
var PaymentsProcessed = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_processed_total",
		Help:      "Total number of payment attempts",
	},
	[]string{"status"},
)

// Init registers the runtime collectors and records build information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
