package tp_sl

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLadder is "0.02:0.15,0.04:0.20,0.06:0.25,0.08:0.40".
const DefaultLadder = "0.02:0.15,0.04:0.20,0.06:0.25,0.08:0.40"

// Rung sells Fraction of the base balance once gain reaches Threshold.
type Rung struct {
	Threshold decimal.Decimal
	Fraction  decimal.Decimal
}

// Ladder is ordered by index; band N means rungs 0..N-1 are consumed.
// It satisfies envconfig.Decoder so TP_LADDER can be set as "gain:fraction,...".
type Ladder []Rung

func (l *Ladder) Decode(value string) error {
	parsed, err := ParseLadder(value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Ladder) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		parts = append(parts, r.Threshold.String()+":"+r.Fraction.String())
	}
	return strings.Join(parts, ",")
}

// Len is the number of bands, used for "band n/N" displays.
func (l Ladder) Len() int { return len(l) }

// ParseLadder parses "0.02:0.15,0.04:0.20". Thresholds must be strictly
// increasing and fractions in (0, 1].
func ParseLadder(value string) (Ladder, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("empty take-profit ladder")
	}

	var out Ladder
	for i, part := range strings.Split(value, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("rung %d: expected gain:fraction, got %q", i, part)
		}
		threshold, err := decimal.NewFromString(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("rung %d threshold: %w", i, err)
		}
		fraction, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("rung %d fraction: %w", i, err)
		}
		if !threshold.IsPositive() {
			return nil, fmt.Errorf("rung %d: threshold must be positive", i)
		}
		if !fraction.IsPositive() || fraction.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rung %d: fraction must be in (0, 1]", i)
		}
		if len(out) > 0 && !threshold.GreaterThan(out[len(out)-1].Threshold) {
			return nil, fmt.Errorf("rung %d: thresholds must increase", i)
		}
		out = append(out, Rung{Threshold: threshold, Fraction: fraction})
	}
	return out, nil
}

// MustParseLadder panics on a malformed ladder. Intended for defaults and tests.
func MustParseLadder(value string) Ladder {
	l, err := ParseLadder(value)
	if err != nil {
		panic(err)
	}
	return l
}

// Gain is (price - anchor) / anchor. Zero anchor yields zero.
func Gain(price, anchor decimal.Decimal) decimal.Decimal {
	if anchor.IsZero() {
		return decimal.Zero
	}
	return price.Sub(anchor).Div(anchor)
}
