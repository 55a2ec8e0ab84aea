// Package metrics holds the prometheus collectors updated by the bot loop.
//
//   - bot_decisions_total{product,kind}          decisions returned by the engine
//   - bot_orders_total{product,side,mode,result}  orders submitted (mode: live|dry_run)
//   - bot_reconcile_total{product,outcome}        reconciliation outcomes per re-buy
//   - bot_exchange_requests_total{method,code}    REST calls, including retries
//   - bot_pair_failures_total{product}            pair iterations that failed
//   - bot_anchor_price{product}                   current anchor price
//   - bot_pair_iteration_seconds{product}         time spent per pair iteration
//
// Collectors are registered in init() and served at /metrics by the server package.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	ModeLive   = "live"
	ModeDryRun = "dry_run"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_decisions_total",
			Help: "Decisions returned by the engine",
		},
		[]string{"product", "kind"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_total",
			Help: "Orders submitted to the exchange",
		},
		[]string{"product", "side", "mode", "result"},
	)

	Reconcile = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reconcile_total",
			Help: "Reconciliation outcomes per outstanding re-buy",
		},
		[]string{"product", "outcome"},
	)

	ExchangeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_exchange_requests_total",
			Help: "Exchange REST requests by method and HTTP status (0 = transport error)",
		},
		[]string{"method", "code"},
	)

	PairFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_pair_failures_total",
			Help: "Pair iterations that ended in an error or panic",
		},
		[]string{"product"},
	)

	AnchorPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_anchor_price",
			Help: "Current anchor price per product",
		},
		[]string{"product"},
	)

	PairIteration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_pair_iteration_seconds",
			Help:    "Wall time of one pair iteration",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"product"},
	)
)

func init() {
	prometheus.MustRegister(
		Decisions,
		Orders,
		Reconcile,
		ExchangeRequests,
		PairFailures,
		AnchorPrice,
		PairIteration,
	)
}

func Mode(dryRun bool) string {
	if dryRun {
		return ModeDryRun
	}
	return ModeLive
}

func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func ObserveRequest(method string, code int) {
	ExchangeRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func SetAnchor(product string, anchor decimal.Decimal) {
	f, _ := anchor.Float64()
	AnchorPrice.WithLabelValues(product).Set(f)
}
