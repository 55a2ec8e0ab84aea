package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// ----- guard config -----

type GuardConfig struct {
	Cooldown      time.Duration
	DailyTradeCap int
	MinNotional   decimal.Decimal
	FeeRate       decimal.Decimal
}

// DefaultGuardConfig mirrors the env defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Cooldown:      300 * time.Second,
		DailyTradeCap: 20,
		MinNotional:   decimal.NewFromInt(15),
		FeeRate:       decimal.RequireFromString("0.006"),
	}
}

// Gates is the result of evaluating the time and count guards for one pair.
type Gates struct {
	CooldownOK bool
	UnderCap   bool
}

// Open reports whether both gates allow trading.
func (g Gates) Open() bool { return g.CooldownOK && g.UnderCap }

// ----- public API -----

// Evaluate computes both gates. A nil lastTakeProfit counts as "never sold".
func Evaluate(cfg GuardConfig, lastTakeProfit *time.Time, dailyTradeCount int, now time.Time) Gates {
	return Gates{
		CooldownOK: CooldownOK(lastTakeProfit, now, cfg.Cooldown),
		UnderCap:   UnderDailyCap(dailyTradeCount, cfg.DailyTradeCap),
	}
}

// CooldownOK is true once at least cooldown has elapsed since the last sell.
func CooldownOK(last *time.Time, now time.Time, cooldown time.Duration) bool {
	if last == nil || last.IsZero() {
		return true
	}
	return now.Sub(*last) >= cooldown
}

func UnderDailyCap(count, cap int) bool {
	return count < cap
}

// EstimatedFee is a single-side fee estimate for notional.
func EstimatedFee(notional, feeRate decimal.Decimal) decimal.Decimal {
	return notional.Mul(feeRate)
}

// NetProceeds estimates the profit of selling size at price against a cost basis
// at anchor, charging the fee on both the buy and sell side:
//
//	gross - size*anchor - gross*feeRate*2
func NetProceeds(size, price, anchor, feeRate decimal.Decimal) decimal.Decimal {
	gross := size.Mul(price)
	fees := gross.Mul(feeRate).Mul(two)
	return gross.Sub(size.Mul(anchor)).Sub(fees)
}

// Profitable reports whether the sell clears fees and cost basis.
func Profitable(size, price, anchor, feeRate decimal.Decimal) bool {
	return NetProceeds(size, price, anchor, feeRate).GreaterThan(decimal.Zero)
}

func MeetsMinNotional(notional, minNotional decimal.Decimal) bool {
	return notional.GreaterThanOrEqual(minNotional)
}
