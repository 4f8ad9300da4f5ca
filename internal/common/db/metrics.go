package db

import (
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

func StartPoolMetrics(pool *pgxpool.Pool, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			stats := pool.Stat()
			metrics.DBPoolAcquiredConns.Set(float64(stats.AcquiredConns()))
			metrics.DBPoolIdleConns.Set(float64(stats.IdleConns()))
		}
	}()
}
