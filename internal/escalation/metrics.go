package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	casesTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ern_cases_triggered_total",
			Help: "Total number of emergency cases triggered",
		},
		[]string{"severity"},
	)

	casesResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ern_cases_resolved_total",
			Help: "Total number of emergency cases resolved",
		},
	)

	alertsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ern_alerts_delivered_total",
			Help: "Total number of alerts by final delivery outcome",
		},
		[]string{"outcome"},
	)

	deliveryAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ern_delivery_attempts_total",
			Help: "Total number of channel send attempts",
		},
	)

	dispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ern_dispatch_duration_seconds",
			Help:    "Time from dispatch start until every responder branch settled",
			Buckets: prometheus.DefBuckets,
		},
	)
)
