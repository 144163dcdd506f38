package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"anchorePool/internal/model"
)

// Metrics tracks pool activity. Gauges are float approximations of the exact
// integer state and are for dashboards only.
type Metrics struct {
	events      *prometheus.CounterVec
	failures    *prometheus.CounterVec
	reserves    *prometheus.GaugeVec
	totalShares *prometheus.GaugeVec
	fees        *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "pool_events_total",
			Help:      "Events emitted by the pool, by event name.",
		}, []string{"pool", "event"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amm",
			Name:      "operation_failures_total",
			Help:      "Rejected operations, by operation and error kind.",
		}, []string{"op", "kind"}),
		reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Name:      "pool_reserve",
			Help:      "Cached pool reserve in base units.",
		}, []string{"pool", "side"}),
		totalShares: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Name:      "pool_total_shares",
			Help:      "Outstanding liquidity shares.",
		}, []string{"pool"}),
		fees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amm",
			Name:      "pool_accumulated_fees",
			Help:      "Swap fees collected in base units.",
		}, []string{"pool", "side"}),
	}

	for _, c := range []prometheus.Collector{m.events, m.failures, m.reserves, m.totalShares, m.fees} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Emit counts a pool event.
func (m *Metrics) Emit(_ context.Context, event model.PoolEvent) {
	m.events.WithLabelValues(event.Pool, event.EventName).Inc()
}

// ObserveFailure counts a rejected operation.
func (m *Metrics) ObserveFailure(op, kind string) {
	m.failures.WithLabelValues(op, kind).Inc()
}

// ObserveSnapshot sets the state gauges from a snapshot.
func (m *Metrics) ObserveSnapshot(snapshot model.PoolSnapshot) {
	m.reserves.WithLabelValues(snapshot.Address, "a").Set(approx(snapshot.ReserveA))
	m.reserves.WithLabelValues(snapshot.Address, "b").Set(approx(snapshot.ReserveB))
	m.totalShares.WithLabelValues(snapshot.Address).Set(approx(snapshot.TotalShares))
	m.fees.WithLabelValues(snapshot.Address, "a").Set(approx(snapshot.FeesA))
	m.fees.WithLabelValues(snapshot.Address, "b").Set(approx(snapshot.FeesB))
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func approx(amount string) float64 {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
