package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CryptoOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrvault",
		Name:      "crypto_operations_total",
		Help:      "Encrypt and decrypt calls by outcome code.",
	}, []string{"operation", "outcome"})

	CryptoOperationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addrvault",
		Name:      "crypto_operation_seconds",
		Help:      "End-to-end duration of encrypt and decrypt calls, store I/O included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	AccessDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrvault",
		Name:      "access_decisions_total",
		Help:      "Authorization gate decisions.",
	}, []string{"decision", "reason"})

	RequestShapesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addrvault",
		Name:      "decrypt_request_shapes_total",
		Help:      "Decrypt requests by accepted wire shape.",
	}, []string{"shape"})
)

func init() {
	prometheus.MustRegister(CryptoOperationsTotal, CryptoOperationSeconds, AccessDecisionsTotal, RequestShapesTotal)
}

// ObserveOperation records one finished operation. outcome is "ok" or an error code.
func ObserveOperation(operation, outcome string, started time.Time) {
	CryptoOperationsTotal.WithLabelValues(operation, outcome).Inc()
	CryptoOperationSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
