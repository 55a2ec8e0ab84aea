package strategy

import (
	"fmt"
	"slices"
	"time"

	"bullshark/src/indicators"
	"bullshark/src/model"
	"bullshark/src/risk"
	"bullshark/src/tp_sl"

	"github.com/shopspring/decimal"
)

// Input is everything Evaluate looks at for one product on one tick.
type Input struct {
	ProductID       string
	Price           decimal.Decimal
	State           *model.PositionState
	BaseBalance     decimal.Decimal
	QuoteBalance    decimal.Decimal
	Candles         []model.Candle // any order
	DailyTradeCount int
	Now             time.Time
}

// Signals are the indicator readings derived from a candle window.
type Signals struct {
	Trend  indicators.Trend
	ATR    decimal.Decimal
	HasATR bool
}

// Engine turns market state into actions. It performs no I/O and keeps no
// state between calls.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// SortCandles returns a copy of candles ordered by start time, oldest first.
func SortCandles(candles []model.Candle) []model.Candle {
	sorted := slices.Clone(candles)
	slices.SortStableFunc(sorted, func(a, b model.Candle) int {
		return a.Start.Compare(b.Start)
	})
	return sorted
}

// Analyze computes trend and ATR. candles must already be ascending.
func (e *Engine) Analyze(candles []model.Candle) Signals {
	atr, ok := indicators.ComputeATR(candles, e.cfg.ATRPeriod)
	return Signals{
		Trend:  indicators.DetectTrend(indicators.Closes(candles), e.cfg.Trend()),
		ATR:    atr,
		HasATR: ok,
	}
}

// Decision is the outcome of one evaluation together with the indicator
// readings it was based on.
type Decision struct {
	Actions []Action
	Signals Signals
}

// Evaluate returns the ordered actions for one product. The result is never
// empty and holds at most one Sell.
//
// A missing anchor yields a single NoAction("anchor_init:<price>"); the caller
// owns initializing it.
func (e *Engine) Evaluate(in Input) []Action {
	return e.Decide(in).Actions
}

// Decide is Evaluate that also returns the signals. Candles are sorted here
// and nowhere else on the evaluation path.
func (e *Engine) Decide(in Input) Decision {
	signals := e.Analyze(SortCandles(in.Candles))
	return Decision{Actions: e.decide(in, signals), Signals: signals}
}

func (e *Engine) decide(in Input, signals Signals) []Action {
	if !in.State.HasAnchor() {
		return []Action{NoAction{Reason: "anchor_init:" + in.Price.String()}}
	}

	anchor := in.State.AnchorPrice.Decimal

	var actions []Action

	rebuy := in.State.Rebuy()
	if cancel, ok := e.checkRebuy(rebuy, in.Price, in.Now); ok {
		actions = append(actions, cancel)
		rebuy = nil
	}

	gates := risk.Evaluate(e.cfg.Guards(), in.State.LastTPTimestamp, in.DailyTradeCount, in.Now)
	gain := tp_sl.Gain(in.Price, anchor)

	if gates.Open() && in.BaseBalance.IsPositive() {
		if sell, ok := e.takeProfit(in, anchor, gain, signals.Trend); ok {
			actions = append(actions, sell)
		}
	}

	if rebuy == nil && gates.Open() && in.QuoteBalance.GreaterThanOrEqual(e.cfg.MinNotional) {
		if place, ok := e.placeRebuy(in, anchor, signals); ok {
			actions = append(actions, place)
		}
	}

	if len(actions) == 0 {
		actions = append(actions, NoAction{
			Reason: fmt.Sprintf("hold:gain=%s:trend=%s", gain.StringFixed(4), signals.Trend),
		})
	}
	return actions
}

// checkRebuy decides whether the outstanding re-buy must be cancelled.
// Simulated orders are only subject to the TTL.
func (e *Engine) checkRebuy(rebuy *model.RebuyOrder, price decimal.Decimal, now time.Time) (Action, bool) {
	if rebuy == nil {
		return nil, false
	}

	// unknown placement time counts as infinitely old
	stale := rebuy.PlacedAt.IsZero()
	var age time.Duration
	if !stale {
		age = now.Sub(rebuy.PlacedAt)
		stale = age > e.cfg.RebuyOrderTTL
	}

	if rebuy.IsDryRun() {
		if stale {
			return CancelRebuy{OrderID: rebuy.OrderID, Reason: "stale_dry_run_rebuy"}, true
		}
		return nil, false
	}

	if stale {
		return CancelRebuy{
			OrderID: rebuy.OrderID,
			Reason:  fmt.Sprintf("stale_order_age:%ds", int64(age.Seconds())),
		}, true
	}

	if rebuy.LimitPrice.Valid && rebuy.LimitPrice.Decimal.IsPositive() {
		drift := tp_sl.Drift(price, rebuy.LimitPrice.Decimal)
		if drift.GreaterThan(e.cfg.RebuyDriftThreshold) {
			return CancelRebuy{
				OrderID: rebuy.OrderID,
				Reason:  "price_drift:" + drift.StringFixed(4),
			}, true
		}
	}
	return nil, false
}

func (e *Engine) takeProfit(in Input, anchor, gain decimal.Decimal, trend indicators.Trend) (Action, bool) {
	for i, rung := range e.cfg.TPLadder {
		if i < in.State.LastTPBand {
			continue
		}
		if gain.LessThan(rung.Threshold) {
			continue
		}

		fraction := rung.Fraction
		if trend == indicators.TrendUp {
			fraction = fraction.Div(decimal.NewFromInt(2))
		}

		size := in.BaseBalance.Mul(fraction)
		notional := size.Mul(in.Price)
		if !risk.Profitable(size, in.Price, anchor, e.cfg.EstimatedFeeRate) {
			continue
		}
		if !risk.MeetsMinNotional(notional, e.cfg.MinNotional) {
			continue
		}

		return Sell{
			Size:      size,
			Reason:    fmt.Sprintf("tp_band_%d:gain=%s:trend=%s", i, gain.StringFixed(4), trend),
			BandIndex: i + 1,
		}, true
	}
	return nil, false
}

func (e *Engine) placeRebuy(in Input, anchor decimal.Decimal, signals Signals) (Action, bool) {
	cfg := e.cfg.Rebuy()
	distance := tp_sl.RebuyDistance(cfg, anchor, signals.ATR, signals.HasATR, signals.Trend == indicators.TrendDown)
	target := tp_sl.RebuyTarget(anchor, distance)

	quote, ok := tp_sl.RebuyQuote(cfg, in.QuoteBalance, e.cfg.MinNotional)
	if !ok {
		return nil, false
	}
	size, ok := tp_sl.RebuySize(quote, target)
	if !ok {
		return nil, false
	}
	if !target.LessThan(in.Price) {
		return nil, false
	}

	return PlaceRebuy{
		LimitPrice: target,
		Size:       size,
		Reason:     fmt.Sprintf("rebuy:dist=%s:trend=%s", distance.StringFixed(4), signals.Trend),
	}, true
}
