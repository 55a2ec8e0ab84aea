package tp_sl

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

type RebuyConfig struct {
	MinDistance         decimal.Decimal
	ATRMultiplier       decimal.Decimal
	DowntrendMultiplier decimal.Decimal
	QuoteFraction       decimal.Decimal
}

// RebuyDistance is the fractional distance below anchor for the resting buy.
//
//   - base: MinDistance
//   - widened to (atr/anchor)*ATRMultiplier when that is larger
//   - multiplied by DowntrendMultiplier when downtrend is true
//
// hasATR=false skips the volatility widening.
func RebuyDistance(cfg RebuyConfig, anchor, atr decimal.Decimal, hasATR, downtrend bool) decimal.Decimal {
	distance := cfg.MinDistance
	if hasATR && anchor.IsPositive() {
		atrDistance := atr.Div(anchor).Mul(cfg.ATRMultiplier)
		if atrDistance.GreaterThan(distance) {
			distance = atrDistance
		}
	}
	if downtrend {
		distance = distance.Mul(cfg.DowntrendMultiplier)
	}
	return distance
}

// RebuyTarget is anchor * (1 - distance).
func RebuyTarget(anchor, distance decimal.Decimal) decimal.Decimal {
	return anchor.Mul(one.Sub(distance))
}

// RebuyQuote sizes the buy in quote currency: QuoteFraction of the balance,
// floored at minNotional. ok is false when the floored amount exceeds the
// balance.
func RebuyQuote(cfg RebuyConfig, quoteBalance, minNotional decimal.Decimal) (decimal.Decimal, bool) {
	quote := decimal.Min(quoteBalance.Mul(cfg.QuoteFraction), quoteBalance)
	quote = decimal.Max(quote, minNotional)
	if quote.GreaterThan(quoteBalance) {
		return decimal.Zero, false
	}
	return quote, true
}

// RebuySize converts a quote amount to base size at target. ok is false for a
// non-positive target.
func RebuySize(quote, target decimal.Decimal) (decimal.Decimal, bool) {
	if !target.IsPositive() {
		return decimal.Zero, false
	}
	return quote.Div(target), true
}

// Drift is |price - limit| / limit. Zero limit yields zero.
func Drift(price, limit decimal.Decimal) decimal.Decimal {
	if limit.IsZero() {
		return decimal.Zero
	}
	return price.Sub(limit).Abs().Div(limit)
}
