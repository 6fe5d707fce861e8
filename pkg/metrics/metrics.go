package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors register with the default registry on package load.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_checks_total",
			Help: "Total number of availability checks by outcome.",
		},
		[]string{"target", "outcome"},
	)

	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slot_check_duration_seconds",
			Help:    "Duration of availability checks.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
		[]string{"target"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_transitions_total",
			Help: "Total number of availability edge transitions.",
		},
		[]string{"target", "state"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_alerts_total",
			Help: "Total number of alerts dispatched or suppressed.",
		},
		[]string{"target", "kind"}, // kind: transition, failure, crash, plus *_suppressed
	)

	CyclesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slot_cycles_skipped_total",
			Help: "Scheduled cycles skipped because the previous one was still running.",
		},
		[]string{"target"},
	)

	SlotAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slot_available",
			Help: "1 when the target currently has a slot, 0 otherwise.",
		},
		[]string{"target"},
	)
)
