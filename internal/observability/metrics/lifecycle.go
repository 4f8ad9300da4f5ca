package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SoftDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soft_deletes_total",
			Help: "Total number of rows marked inactive, by entity type",
		},
		[]string{"entity"},
	)

	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soft_delete_restores_total",
			Help: "Total number of soft-deleted rows restored, by entity type",
		},
		[]string{"entity"},
	)

	PurgeSweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purge_sweeps_total",
			Help: "Total number of purge sweeps, by outcome",
		},
		[]string{"outcome"},
	)

	PurgedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "purged_rows_total",
			Help: "Total number of rows physically deleted by purge sweeps",
		},
	)

	PurgeSweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "purge_sweep_duration_seconds",
			Help:    "Duration of purge sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuditRecordsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_records_pending",
			Help: "Number of audit records observed by the most recent sweep",
		},
	)
)
