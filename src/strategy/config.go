package strategy

import (
	"fmt"
	"time"

	"bullshark/src/indicators"
	"bullshark/src/risk"
	"bullshark/src/tp_sl"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	TPLadder tp_sl.Ladder `envconfig:"TP_LADDER" default:"0.02:0.15,0.04:0.20,0.06:0.25,0.08:0.40"`

	RebuyMinDistance         decimal.Decimal `envconfig:"REBUY_MIN_DISTANCE" default:"0.015"`
	RebuyATRMultiplier       decimal.Decimal `envconfig:"REBUY_ATR_MULTIPLIER" default:"1.5"`
	RebuyDowntrendMultiplier decimal.Decimal `envconfig:"REBUY_DOWNTREND_MULTIPLIER" default:"1.5"`
	RebuyOrderTTL            time.Duration   `envconfig:"REBUY_ORDER_TTL" default:"1h"`
	RebuyDriftThreshold      decimal.Decimal `envconfig:"REBUY_DRIFT_THRESHOLD" default:"0.02"`
	RebuyQuoteFraction       decimal.Decimal `envconfig:"REBUY_QUOTE_FRACTION" default:"0.2"`

	EMAShort       int             `envconfig:"EMA_SHORT" default:"12"`
	EMALong        int             `envconfig:"EMA_LONG" default:"26"`
	ATRPeriod      int             `envconfig:"ATR_PERIOD" default:"14"`
	TrendThreshold decimal.Decimal `envconfig:"TREND_THRESHOLD" default:"0.005"`

	MinNotional      decimal.Decimal `envconfig:"MIN_NOTIONAL" default:"15"`
	Cooldown         time.Duration   `envconfig:"COOLDOWN" default:"300s"`
	DailyTradeCap    int             `envconfig:"DAILY_TRADE_CAP" default:"20"`
	EstimatedFeeRate decimal.Decimal `envconfig:"ESTIMATED_FEE_RATE" default:"0.006"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultConfig returns the same values as the env defaults without reading the
// environment.
func DefaultConfig() Config {
	return Config{
		TPLadder:                 tp_sl.MustParseLadder(tp_sl.DefaultLadder),
		RebuyMinDistance:         decimal.RequireFromString("0.015"),
		RebuyATRMultiplier:       decimal.RequireFromString("1.5"),
		RebuyDowntrendMultiplier: decimal.RequireFromString("1.5"),
		RebuyOrderTTL:            time.Hour,
		RebuyDriftThreshold:      decimal.RequireFromString("0.02"),
		RebuyQuoteFraction:       decimal.RequireFromString("0.2"),
		EMAShort:                 12,
		EMALong:                  26,
		ATRPeriod:                14,
		TrendThreshold:           decimal.RequireFromString("0.005"),
		MinNotional:              decimal.NewFromInt(15),
		Cooldown:                 300 * time.Second,
		DailyTradeCap:            20,
		EstimatedFeeRate:         decimal.RequireFromString("0.006"),
	}
}

func (c Config) Trend() indicators.TrendConfig {
	return indicators.TrendConfig{
		ShortPeriod: c.EMAShort,
		LongPeriod:  c.EMALong,
		Threshold:   c.TrendThreshold,
	}
}

func (c Config) Guards() risk.GuardConfig {
	return risk.GuardConfig{
		Cooldown:      c.Cooldown,
		DailyTradeCap: c.DailyTradeCap,
		MinNotional:   c.MinNotional,
		FeeRate:       c.EstimatedFeeRate,
	}
}

func (c Config) Rebuy() tp_sl.RebuyConfig {
	return tp_sl.RebuyConfig{
		MinDistance:         c.RebuyMinDistance,
		ATRMultiplier:       c.RebuyATRMultiplier,
		DowntrendMultiplier: c.RebuyDowntrendMultiplier,
		QuoteFraction:       c.RebuyQuoteFraction,
	}
}
