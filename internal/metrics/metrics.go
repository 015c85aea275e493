package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_backend_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wa_backend_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	pairingAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_backend_pairing_attempts_total",
		Help: "Pairing attempts by result",
	}, []string{"result"})

	qrWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wa_backend_qr_wait_duration_seconds",
		Help:    "Time spent waiting for the first QR payload",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	reconcileOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_backend_reconcile_operations_total",
		Help: "Account status reconciliations by lifecycle event and result",
	}, []string{"event", "result"})

	cleanupOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wa_backend_cleanup_operations_total",
		Help: "Count of cleanup operations by task and result",
	}, []string{"task", "result"})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wa_backend_live_sessions",
		Help: "Number of pairing sessions held in the registry",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePairing counts a pairing attempt. Results: success, partial, timeout, client_error, render_error.
func ObservePairing(result string) {
	pairingAttempts.WithLabelValues(result).Inc()
}

func ObserveQRWait(duration time.Duration) {
	qrWaitDuration.Observe(duration.Seconds())
}

// ObserveReconcile records one lifecycle-driven account write.
func ObserveReconcile(event, result string) {
	reconcileOperations.WithLabelValues(event, result).Inc()
}

func ObserveCleanup(task, result string) {
	cleanupOperations.WithLabelValues(task, result).Inc()
}

// SetLiveSessions sets the registry size gauge.
func SetLiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	liveSessions.Set(float64(count))
}
