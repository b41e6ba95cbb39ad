// Package metrics exposes the engine's settlement activity as Prometheus
// gauges and counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every metric the engine updates. It is safe to share a
// single Collector across every Engine instance in a process.
type Collector struct {
	TotalStaked      prometheus.Gauge
	TotalShares      prometheus.Gauge
	ValidatorCount   prometheus.Gauge
	SettlementEvents *prometheus.CounterVec
	SettlementFailures *prometheus.CounterVec
}

// NewCollector constructs and registers a Collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		TotalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakepool",
			Name:      "total_staked_amount",
			Help:      "Total base-token economic value backing outstanding shares.",
		}),
		TotalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakepool",
			Name:      "total_share_amount",
			Help:      "Total outstanding share supply.",
		}),
		ValidatorCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stakepool",
			Name:      "validator_count",
			Help:      "Number of registered validators.",
		}),
		SettlementEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakepool",
			Name:      "settlement_events_total",
			Help:      "Count of successful settlement actions, by event kind.",
		}, []string{"kind"}),
		SettlementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stakepool",
			Name:      "settlement_failures_total",
			Help:      "Count of settlement action failures, by kind.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.TotalStaked, c.TotalShares, c.ValidatorCount, c.SettlementEvents, c.SettlementFailures)
	return c
}

// ObserveEvent increments the settlement event counter for kind.
func (c *Collector) ObserveEvent(kind string) {
	c.SettlementEvents.WithLabelValues(kind).Inc()
}

// ObserveFailure increments the failure counter for kind.
func (c *Collector) ObserveFailure(kind string) {
	c.SettlementFailures.WithLabelValues(kind).Inc()
}

// SyncPoolTotals updates the pool-level gauges.
func (c *Collector) SyncPoolTotals(totalStaked, totalShares float64, validatorCount int) {
	c.TotalStaked.Set(totalStaked)
	c.TotalShares.Set(totalShares)
	c.ValidatorCount.Set(float64(validatorCount))
}
