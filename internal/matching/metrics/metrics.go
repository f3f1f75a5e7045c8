// Package metrics implements Metrics (SPEC_FULL.md §4.9/§C9): counters
// registered against a local prometheus registry (never served over
// HTTP, per the no-network-transport non-goal) plus rolling indicators
// over recent trade prices using gonum/stat and go-talib.
package metrics

import (
	"fmt"
	"sync"

	"github.com/markcheno/go-talib"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"

	"github.com/lattice-trading/matchcore/internal/matching/event"
)

// rollingWindow bounds how many recent trade prices feed the moving
// average and VWAP indicators per symbol.
const rollingWindow = 20

// smaPeriod is the look-back used for the talib SMA indicator.
const smaPeriod = 5

// Metrics owns every counter/gauge the engine exposes plus a per-symbol
// rolling trade-price window used to compute a simple moving average and
// a volume-weighted average price.
type Metrics struct {
	mu sync.Mutex

	registry *prometheus.Registry

	ordersAccepted  prometheus.Counter
	ordersRejected  prometheus.Counter
	amendsAccepted  prometheus.Counter
	amendsRejected  prometheus.Counter
	cancelsAccepted prometheus.Counter
	cancelsRejected prometheus.Counter
	tradesExecuted  prometheus.Counter
	commandsTotal   *prometheus.CounterVec

	prices  map[string][]float64
	volumes map[string][]float64
}

// New constructs Metrics registered against a fresh local registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ordersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_orders_accepted_total",
			Help: "Number of New commands accepted.",
		}),
		ordersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_orders_rejected_total",
			Help: "Number of New commands rejected.",
		}),
		amendsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_amends_accepted_total",
			Help: "Number of Amend commands accepted.",
		}),
		amendsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_amends_rejected_total",
			Help: "Number of Amend commands rejected.",
		}),
		cancelsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_cancels_accepted_total",
			Help: "Number of Cancel commands accepted.",
		}),
		cancelsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_cancels_rejected_total",
			Help: "Number of Cancel commands rejected.",
		}),
		tradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchcore_trades_executed_total",
			Help: "Number of trades produced by the match loop.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchcore_commands_total",
			Help: "Number of commands processed, by action.",
		}, []string{"action"}),
		prices:  make(map[string][]float64),
		volumes: make(map[string][]float64),
	}

	reg.MustRegister(
		m.ordersAccepted, m.ordersRejected,
		m.amendsAccepted, m.amendsRejected,
		m.cancelsAccepted, m.cancelsRejected,
		m.tradesExecuted, m.commandsTotal,
	)
	return m
}

// Registry exposes the local registry for text dumping (e.g. via
// prometheus' expfmt package) or inspection in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordCommand increments the per-action command counter.
func (m *Metrics) RecordCommand(action string) {
	m.commandsTotal.WithLabelValues(action).Inc()
}

// RecordAccept / RecordReject / RecordAmend* / RecordCancel* update the
// corresponding counters.
func (m *Metrics) RecordAccept()         { m.ordersAccepted.Inc() }
func (m *Metrics) RecordReject()         { m.ordersRejected.Inc() }
func (m *Metrics) RecordAmendAccept()    { m.amendsAccepted.Inc() }
func (m *Metrics) RecordAmendReject()    { m.amendsRejected.Inc() }
func (m *Metrics) RecordCancelAccept()   { m.cancelsAccepted.Inc() }
func (m *Metrics) RecordCancelReject()   { m.cancelsRejected.Inc() }

// RecordTrade updates the trade counter and the per-symbol rolling price
// window used by MovingAverage/VWAP/SMA.
func (m *Metrics) RecordTrade(t *event.Trade) {
	m.tradesExecuted.Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	price := float64(t.BuyPrice) / 100
	qty := float64(minQty(t.BuyQtyBefore, t.SellQtyBefore))

	m.prices[t.Symbol] = appendBounded(m.prices[t.Symbol], price, rollingWindow)
	m.volumes[t.Symbol] = appendBounded(m.volumes[t.Symbol], qty, rollingWindow)
}

func minQty(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func appendBounded(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// MovingAverage returns the mean of the recent trade prices for symbol,
// computed with gonum/stat, and whether any trades have been recorded.
func (m *Metrics) MovingAverage(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prices[symbol]
	if len(p) == 0 {
		return 0, false
	}
	return stat.Mean(p, nil), true
}

// VWAP returns the volume-weighted average price of recent trades for
// symbol, using gonum/stat's weighted mean.
func (m *Metrics) VWAP(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prices[symbol]
	v := m.volumes[symbol]
	if len(p) == 0 {
		return 0, false
	}
	return stat.Mean(p, v), true
}

// SMA returns the talib simple moving average of the last smaPeriod
// trade prices for symbol, or false if there isn't enough history yet.
func (m *Metrics) SMA(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prices[symbol]
	if len(p) < smaPeriod {
		return 0, false
	}
	out := talib.Sma(p, smaPeriod)
	last := out[len(out)-1]
	if last != last { // NaN guard: talib pads the warmup period with NaN
		return 0, false
	}
	return last, true
}

// Dump renders every counter as a plain-text summary, suitable for the
// driver to print on shutdown; no HTTP listener is ever started (§4.9).
func (m *Metrics) Dump() string {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Sprintf("metrics: gather error: %v", err)
	}

	var out string
	for _, f := range families {
		for _, metric := range f.Metric {
			switch {
			case metric.Counter != nil:
				out += fmt.Sprintf("%s %v\n", f.GetName(), metric.Counter.GetValue())
			}
		}
	}
	return out
}
