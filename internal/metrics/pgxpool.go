package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is a snapshot of connection pool counters.
type PoolStats struct {
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	AcquireCount         int64
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
	AcquireDuration      float64
}

// PgxPoolStats adapts a pgx pool for RegisterPoolMetrics.
func PgxPoolStats(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		s := pool.Stat()
		return PoolStats{
			AcquiredConns:        s.AcquiredConns(),
			IdleConns:            s.IdleConns(),
			TotalConns:           s.TotalConns(),
			MaxConns:             s.MaxConns(),
			AcquireCount:         s.AcquireCount(),
			EmptyAcquireCount:    s.EmptyAcquireCount(),
			CanceledAcquireCount: s.CanceledAcquireCount(),
			AcquireDuration:      s.AcquireDuration().Seconds(),
		}
	}
}

type poolCollector struct {
	stats func() PoolStats

	acquired, idle, total, max                 *prometheus.Desc
	acquires, emptyAcquires, canceled, waiting *prometheus.Desc
}

// RegisterPoolMetrics exposes connection pool statistics. Empty acquires are
// the ones that had to wait for a connection, the first sign of a pool too
// small for the dispatch fan-out.
func RegisterPoolMetrics(reg prometheus.Registerer, stats func() PoolStats) error {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("ern_pgxpool_"+name, help, nil, nil)
	}
	return reg.Register(&poolCollector{
		stats:         stats,
		acquired:      desc("acquired_conns", "Number of currently acquired connections in the pool"),
		idle:          desc("idle_conns", "Number of idle connections in the pool"),
		total:         desc("total_conns", "Total number of connections in the pool"),
		max:           desc("max_conns", "Maximum number of connections in the pool"),
		acquires:      desc("acquires_total", "Successful connection acquires"),
		emptyAcquires: desc("empty_acquires_total", "Acquires that waited because the pool was empty"),
		canceled:      desc("canceled_acquires_total", "Acquires canceled by their context"),
		waiting:       desc("acquire_duration_seconds_total", "Total time spent acquiring connections"),
	})
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{c.acquired, c.idle, c.total, c.max, c.acquires, c.emptyAcquires, c.canceled, c.waiting} {
		ch <- d
	}
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount))
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount))
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(s.CanceledAcquireCount))
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.CounterValue, s.AcquireDuration)
}
