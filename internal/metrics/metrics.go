// Package metrics 导出轮次、信号、订单与调度状态的 Prometheus 指标。
package metrics

import (
	"context"
	"net/http"

	"crossbot/internal/engine"
	"crossbot/internal/order"
	"crossbot/internal/pkg/circuit"
	"crossbot/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有独立的 Registry，测试里可以多次创建。
type Metrics struct {
	CyclesTotal    prometheus.Counter
	CycleDuration  prometheus.Histogram
	SymbolResults  *prometheus.CounterVec // labels: symbol, status
	SignalsTotal   *prometheus.CounterVec // labels: symbol, signal
	OrdersTotal    *prometheus.CounterVec // labels: symbol, venue, result
	SchedulerState prometheus.Gauge       // 0=idle, 1=active
	BreakerState   *prometheus.GaugeVec   // labels: symbol; 0=closed, 1=open, 2=half-open

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crossbot_cycles_total",
			Help: "Completed evaluation cycles",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crossbot_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle",
			Buckets: prometheus.DefBuckets,
		}),
		SymbolResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossbot_symbol_results_total",
			Help: "Per-symbol cycle results by status",
		}, []string{"symbol", "status"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossbot_signals_total",
			Help: "Fired crossover signals",
		}, []string{"symbol", "signal"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crossbot_orders_total",
			Help: "Dispatched orders by venue verdict",
		}, []string{"symbol", "venue", "result"}),
		SchedulerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crossbot_scheduler_state",
			Help: "Scheduler state (0=idle, 1=active)",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crossbot_feed_breaker_state",
			Help: "Per-symbol feed circuit breaker (0=closed, 1=open, 2=half-open)",
		}, []string{"symbol"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SymbolResults,
		m.SignalsTotal,
		m.OrdersTotal,
		m.SchedulerState,
		m.BreakerState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 返回 /metrics 的 HTTP handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle 实现 engine.Observer。
func (m *Metrics) ObserveCycle(r engine.CycleReport) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(r.Duration().Seconds())
	for _, res := range r.Results {
		m.SymbolResults.WithLabelValues(res.Symbol, string(res.Status)).Inc()
		if res.Fired() {
			m.SignalsTotal.WithLabelValues(res.Symbol, res.Signal).Inc()
		}
	}
}

// Record 实现 order.Sink。
func (m *Metrics) Record(_ context.Context, req order.Request, out order.Outcome) error {
	result := "rejected"
	if out.Accepted {
		result = "accepted"
	}
	m.OrdersTotal.WithLabelValues(req.Symbol, out.Venue, result).Inc()
	return nil
}

// ObserveScheduler 挂到 CycleScheduler.OnStateChange。
func (m *Metrics) ObserveScheduler(_, to scheduler.State) {
	m.SchedulerState.Set(float64(to))
}

// ObserveBreaker 挂到 circuit.Group.OnStateChange。
func (m *Metrics) ObserveBreaker(name string, _, to circuit.State) {
	m.BreakerState.WithLabelValues(name).Set(float64(to))
}
