package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_issued_total",
			Help: "Total number of tokens issued, by kind",
		},
		[]string{"kind"},
	)

	TokensConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_consumed_total",
			Help: "Total number of persisted tokens consumed, by kind",
		},
		[]string{"kind"},
	)

	TokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_revoked_total",
			Help: "Total number of refresh tokens revoked on logout",
		},
	)

	TokenValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_validation_failures_total",
			Help: "Total number of failed token validations, by kind",
		},
		[]string{"kind"},
	)

	TokensReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokens_reaped_total",
			Help: "Total number of expired token rows deleted by the reaper",
		},
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_hits_total",
			Help: "Total number of session cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_misses_total",
			Help: "Total number of session cache misses, including degraded lookups",
		},
	)
)
