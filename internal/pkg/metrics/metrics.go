package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StkPushesInitiated counts outbound STK push attempts by outcome
	// (accepted, rejected, error, invalid).
	StkPushesInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_stk_pushes_total",
			Help: "Number of STK push initiations by outcome",
		},
		[]string{"outcome"},
	)

	// CallbacksReceived counts gateway callbacks by result
	// (success, failed, duplicate, unmatched, invalid).
	CallbacksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_callbacks_total",
			Help: "Number of M-Pesa callbacks by processing result",
		},
		[]string{"result"},
	)

	// VouchersFulfilled counts voucher effects by kind (created, extended).
	VouchersFulfilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vouchers_fulfilled_total",
			Help: "Number of vouchers created or extended through fulfillment",
		},
		[]string{"kind"},
	)

	// CallbackProcessingDuration tracks end-to-end callback reconciliation latency
	CallbackProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payments_callback_processing_seconds",
			Help:    "Duration of callback reconciliation in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)
)

// CountStkPush records one STK push initiation outcome
func CountStkPush(outcome string) {
	StkPushesInitiated.WithLabelValues(outcome).Inc()
}

// CountCallback records one callback processing result
func CountCallback(result string) {
	CallbacksReceived.WithLabelValues(result).Inc()
}

// CountFulfillment records one voucher effect
func CountFulfillment(kind string) {
	VouchersFulfilled.WithLabelValues(kind).Inc()
}
