package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the admission workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	confirmedTotal  prometheus.Counter
	rejectedTotal   *prometheus.CounterVec
	receiptsTotal   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	confirmedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registration_confirmed_total",
		Help: "Total registrations confirmed into a seat",
	})

	rejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_rejected_total",
		Help: "Total registration confirmations rejected, by reason",
	}, []string{"reason"})

	receiptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_rendered_total",
		Help: "Total receipt rendering outcomes",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, confirmedTotal, rejectedTotal, receiptsTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		confirmedTotal:  confirmedTotal,
		rejectedTotal:   rejectedTotal,
		receiptsTotal:   receiptsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RegistrationConfirmed counts a successful seat confirmation.
func (m *MetricsService) RegistrationConfirmed() {
	if m == nil {
		return
	}
	m.confirmedTotal.Inc()
}

// RegistrationRejected counts a rejected confirmation by reason.
func (m *MetricsService) RegistrationRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// ReceiptRendered counts a receipt pipeline outcome, "ok" or "failed".
func (m *MetricsService) ReceiptRendered(outcome string) {
	if m == nil {
		return
	}
	m.receiptsTotal.WithLabelValues(outcome).Inc()
}
