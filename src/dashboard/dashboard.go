// Package dashboard renders terminal views of the bot state: a one-shot
// status snapshot from the store and a live-refreshing market watch.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"bullshark/src/indicators"
	"bullshark/src/model"
	"bullshark/src/repository"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

const (
	sparkChars   = "▁▂▃▄▅▆▇█"
	recentTrades = 5
	clearScreen  = "\033[H\033[2J"
)

var hundred = decimal.NewFromInt(100)

type Options struct {
	Products      []string
	DailyTradeCap int
	LadderLen     int
	DryRun        bool
}

// PrintStatus writes a snapshot of every product's persisted state and its
// latest trades.
func PrintStatus(ctx context.Context, w io.Writer, store *repository.Store, opts Options, now time.Time) error {
	mode := "LIVE"
	if opts.DryRun {
		mode = "DRY-RUN"
	}
	fmt.Fprintf(w, "Bull Shark status  |  %s  |  Mode: %s\n", now.Format("2006-01-02 15:04:05"), mode)

	for _, productID := range opts.Products {
		state, err := store.States.Get(ctx, productID)
		if err != nil {
			return fmt.Errorf("load state for %s: %w", productID, err)
		}
		trades, err := store.Trades.FindRecent(ctx, productID, recentTrades)
		if err != nil {
			return fmt.Errorf("load trades for %s: %w", productID, err)
		}

		t := table.NewWriter()
		t.SetTitle(productID)
		t.SetStyle(table.StyleRounded)

		if state == nil {
			t.AppendRow(table.Row{"No state yet (bot hasn't run for this product)"})
		} else {
			t.AppendRows([]table.Row{
				{"Anchor price", orNA(state.AnchorPrice)},
				{"Avg entry price", orNA(state.AvgEntryPrice)},
				{"TP band", fmt.Sprintf("%d/%d", state.LastTPBand, opts.LadderLen)},
				{"Daily trades", fmt.Sprintf("%d/%d", repository.DailyTradeCount(state, now), opts.DailyTradeCap)},
			})
			if rebuy := state.Rebuy(); rebuy != nil {
				t.AppendRows([]table.Row{
					{"Active rebuy", rebuy.OrderID},
					{"  Price", orNA(rebuy.LimitPrice)},
					{"  Size", orNA(rebuy.Size)},
				})
			} else {
				t.AppendRow(table.Row{"Active rebuy", "none"})
			}
		}

		if len(trades) > 0 {
			t.AppendSeparator()
			for _, tr := range trades {
				t.AppendRow(table.Row{
					tr.CreatedAt.Local().Format("01-02 15:04"),
					fmt.Sprintf("%-4s %s @ %s | %s", tr.Side, tr.Size, tr.Price, tr.Reason),
				})
			}
		}

		fmt.Fprintln(w, t.Render())
	}
	return nil
}

// TPBar draws consumed ladder bands, e.g. "██░░ 2/4".
func TPBar(band, total int) string {
	band = max(0, min(band, total))
	return strings.Repeat("█", band) + strings.Repeat("░", total-band) + fmt.Sprintf(" %d/%d", band, total)
}

// Sparkline maps closes onto eight block heights. A flat series renders at
// the lowest height.
func Sparkline(closes []decimal.Decimal) string {
	if len(closes) == 0 {
		return ""
	}
	lo, hi := closes[0], closes[0]
	for _, c := range closes[1:] {
		lo = decimal.Min(lo, c)
		hi = decimal.Max(hi, c)
	}

	chars := []rune(sparkChars)
	top := decimal.NewFromInt(int64(len(chars) - 1))
	span := hi.Sub(lo)

	var b strings.Builder
	for _, c := range closes {
		idx := 0
		if span.IsPositive() {
			idx = int(c.Sub(lo).Mul(top).Div(span).Round(0).IntPart())
		}
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// Change is the percentage move over the last 24 closes, or over the whole
// series when shorter.
func Change(closes []decimal.Decimal) (decimal.Decimal, bool) {
	if len(closes) < 2 {
		return decimal.Zero, false
	}
	from := closes[0]
	if len(closes) >= 24 {
		from = closes[len(closes)-24]
	}
	if from.IsZero() {
		return decimal.Zero, false
	}
	return closes[len(closes)-1].Sub(from).Div(from).Mul(hundred), true
}

// FormatMoney renders a price with two decimals and thousands separators.
func FormatMoney(v decimal.Decimal) string {
	s := v.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	sign := ""
	if v.IsNegative() {
		sign = "-"
	}
	return sign + "$" + b.String() + "." + frac
}

func signedPct(v decimal.Decimal) string {
	s := v.StringFixed(2) + "%"
	if !v.IsNegative() {
		s = "+" + s
	}
	color := text.FgGreen
	if v.IsNegative() {
		color = text.FgRed
	}
	return text.Colors{color}.Sprint(s)
}

func trendText(t indicators.Trend) string {
	switch t {
	case indicators.TrendUp:
		return text.Colors{text.FgGreen}.Sprint(string(t) + " ^")
	case indicators.TrendDown:
		return text.Colors{text.FgRed}.Sprint(string(t) + " v")
	default:
		return text.Colors{text.FgYellow}.Sprint(string(t) + " -")
	}
}

func orNA(n decimal.NullDecimal) string {
	if !n.Valid {
		return "N/A"
	}
	return n.Decimal.String()
}

// mergeTrades returns the newest limit trades across products.
func mergeTrades(byProduct map[string][]model.Trade, limit int) []model.Trade {
	var all []model.Trade
	for _, trades := range byProduct {
		all = append(all, trades...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}
