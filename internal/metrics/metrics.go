// Package metrics exposes Prometheus counters for the operations that
// leave the process: KMS requests and keystore reads and writes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	kmsRequestsTotal   *prometheus.CounterVec
	kmsRequestDuration *prometheus.HistogramVec

	keystoreOperationsTotal   *prometheus.CounterVec
	keystoreOperationDuration *prometheus.HistogramVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// InitMetrics registers all collectors with the default registry. Later
// calls do nothing. Until it runs, recording is a no-op.
func InitMetrics() {
	metricsOnce.Do(func() {
		kmsRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitaminc_kms_requests_total",
				Help: "Total number of KMS requests by operation and status",
			},
			[]string{"operation", "status"},
		)

		kmsRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vitaminc_kms_request_duration_seconds",
				Help:    "Duration of KMS requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		)

		keystoreOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vitaminc_keystore_operations_total",
				Help: "Total number of keystore operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		)

		keystoreOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vitaminc_keystore_operation_duration_seconds",
				Help:    "Duration of keystore operations in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"backend", "operation"},
		)

		metricsRegistered = true
	})
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordKMSRequest records one KMS call that started at start.
func RecordKMSRequest(operation string, start time.Time, err error) {
	if !metricsRegistered {
		return
	}
	kmsRequestsTotal.WithLabelValues(operation, status(err)).Inc()
	kmsRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordKeystoreOperation records one keystore call that started at start.
func RecordKeystoreOperation(backend, operation string, start time.Time, err error) {
	if !metricsRegistered {
		return
	}
	keystoreOperationsTotal.WithLabelValues(backend, operation, status(err)).Inc()
	keystoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

// KMSRequestsTotal returns the KMS request counter for testing.
func KMSRequestsTotal() *prometheus.CounterVec {
	return kmsRequestsTotal
}

// KeystoreOperationsTotal returns the keystore operation counter for testing.
func KeystoreOperationsTotal() *prometheus.CounterVec {
	return keystoreOperationsTotal
}

// IsMetricsRegistered returns whether InitMetrics has run.
func IsMetricsRegistered() bool {
	return metricsRegistered
}
