package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPgxPoolMetrics exposes the pool's connection accounting as
// gauges, sampled on scrape.
func RegisterPgxPoolMetrics(pool *pgxpool.Pool) {
	gauge := func(name, help string, read func(*pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(read(pool.Stat())) },
		)
	}

	prometheus.MustRegister(
		gauge("pgxpool_acquired_conns", "Connections currently checked out of the pool",
			func(s *pgxpool.Stat) int32 { return s.AcquiredConns() }),
		gauge("pgxpool_idle_conns", "Connections sitting idle in the pool",
			func(s *pgxpool.Stat) int32 { return s.IdleConns() }),
		gauge("pgxpool_total_conns", "Open connections, acquired plus idle plus constructing",
			func(s *pgxpool.Stat) int32 { return s.TotalConns() }),
		gauge("pgxpool_max_conns", "Configured pool ceiling",
			func(s *pgxpool.Stat) int32 { return s.MaxConns() }),
	)
}
