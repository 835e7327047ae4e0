package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "waterline"

// Metrics holds the prometheus collectors shared by the server, the scheduler and
// the delivery engine. All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	schedulerRuns       *prometheus.CounterVec
	deliveriesScheduled prometheus.Counter
	customerFailures    prometheus.Counter
	deliveriesCompleted prometheus.Counter
	invoices            *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Scheduler job runs by job and outcome.",
		}, []string{"job", "status"}),
		deliveriesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "deliveries_created_total",
			Help:      "Deliveries materialized by the scheduler.",
		}),
		customerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "customer_failures_total",
			Help:      "Customers skipped because their scheduling unit failed.",
		}),
		deliveriesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_completed_total",
			Help:      "Deliveries transitioned to DELIVERED.",
		}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_total",
			Help:      "Invoices emitted by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.schedulerRuns,
		m.deliveriesScheduled,
		m.customerFailures,
		m.deliveriesCompleted,
		m.invoices,
	)
	return m
}

// Handler serves this registry together with the default one, which carries the
// runtime, process and gorm pool collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSchedulerRun(job string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.schedulerRuns.WithLabelValues(job, status).Inc()
}

func (m *Metrics) AddDeliveriesScheduled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deliveriesScheduled.Add(float64(n))
}

func (m *Metrics) IncCustomerFailure() {
	if m == nil {
		return
	}
	m.customerFailures.Inc()
}

func (m *Metrics) IncDeliveryCompleted(invoiceStatus string) {
	if m == nil {
		return
	}
	m.deliveriesCompleted.Inc()
	m.invoices.WithLabelValues(invoiceStatus).Inc()
}

// DeliveriesScheduled exposes the counter for assertions.
func (m *Metrics) DeliveriesScheduled() prometheus.Counter {
	return m.deliveriesScheduled
}

func (m *Metrics) CustomerFailures() prometheus.Counter {
	return m.customerFailures
}
