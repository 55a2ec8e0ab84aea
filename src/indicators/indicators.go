package indicators

import (
	"bullshark/src/model"

	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendUp       Trend = "UPTREND"
	TrendDown     Trend = "DOWNTREND"
	TrendSideways Trend = "SIDEWAYS"
)

// TrendConfig holds the EMA periods and the relative spread threshold.
type TrendConfig struct {
	ShortPeriod int
	LongPeriod  int
	Threshold   decimal.Decimal
}

// ComputeEMA folds closes left to right with multiplier 2/(period+1), seeded
// with the first close (not an SMA of the first period values).
// Returns false when fewer than period closes are available.
func ComputeEMA(closes []decimal.Decimal, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(closes) < period {
		return decimal.Zero, false
	}

	multiplier := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period) + 1))
	ema := closes[0]
	for _, price := range closes[1:] {
		ema = price.Sub(ema).Mul(multiplier).Add(ema)
	}
	return ema, true
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(c model.Candle, prevClose decimal.Decimal) decimal.Decimal {
	tr := c.High.Sub(c.Low)
	if v := c.High.Sub(prevClose).Abs(); v.GreaterThan(tr) {
		tr = v
	}
	if v := c.Low.Sub(prevClose).Abs(); v.GreaterThan(tr) {
		tr = v
	}
	return tr
}

// ComputeATR is the simple mean of the last period true ranges. candles must be
// ascending by time. Needs at least period+1 candles.
func ComputeATR(candles []model.Candle, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(candles) < period+1 {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for i := len(candles) - period; i < len(candles); i++ {
		sum = sum.Add(TrueRange(candles[i], candles[i-1].Close))
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// DetectTrend classifies the short/long EMA spread. Insufficient data is SIDEWAYS.
func DetectTrend(closes []decimal.Decimal, cfg TrendConfig) Trend {
	short, ok := ComputeEMA(closes, cfg.ShortPeriod)
	if !ok {
		return TrendSideways
	}
	long, ok := ComputeEMA(closes, cfg.LongPeriod)
	if !ok || long.IsZero() {
		return TrendSideways
	}

	spread := short.Sub(long).Div(long)
	switch {
	case spread.GreaterThan(cfg.Threshold):
		return TrendUp
	case spread.LessThan(cfg.Threshold.Neg()):
		return TrendDown
	default:
		return TrendSideways
	}
}

// Closes extracts close prices in the given order.
func Closes(candles []model.Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.Close)
	}
	return out
}
