package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"bullshark/src/indicators"
	"bullshark/src/mapper"
	"bullshark/src/model"
	"bullshark/src/repository"
	"bullshark/src/strategy"
	"bullshark/src/tp_sl"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	watchCandles = 30
	watchTrades  = 10
)

// MarketReader is the read-only trading client surface the watch view uses.
type MarketReader interface {
	Quote(ctx context.Context, productID string) (model.Quote, error)
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	Candles(ctx context.Context, productID, granularity string, count int) ([]model.Candle, error)
}

// Watcher periodically redraws a per-product market and position view.
type Watcher struct {
	client      MarketReader
	store       *repository.Store
	engine      *strategy.Engine
	opts        Options
	granularity string
	interval    time.Duration
	out         io.Writer
	now         func() time.Time
}

func NewWatcher(client MarketReader, store *repository.Store, engine *strategy.Engine, opts Options, granularity string, interval time.Duration, out io.Writer) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		client:      client,
		store:       store,
		engine:      engine,
		opts:        opts,
		granularity: granularity,
		interval:    interval,
		out:         out,
		now:         time.Now,
	}
}

type productView struct {
	productID string
	err       error

	quote  model.Quote
	mid    decimal.Decimal
	closes []decimal.Decimal
	change decimal.Decimal
	hasChg bool
	trend  indicators.Trend
	atr    decimal.Decimal
	hasATR bool

	baseCurrency, quoteCurrency string
	baseBalance, quoteBalance   decimal.Decimal

	state  *model.PositionState
	daily  int
	trades []model.Trade
}

// Run redraws until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		fmt.Fprint(w.out, clearScreen+w.Render(ctx))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Render builds one frame.
func (w *Watcher) Render(ctx context.Context) string {
	now := w.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Bull Shark  |  %s  |  Refresh: %s\n", now.Format("2006-01-02 15:04:05"), w.interval)

	balances, balErr := w.client.Balances(ctx)
	trades := make(map[string][]model.Trade, len(w.opts.Products))
	for _, productID := range w.opts.Products {
		v := w.fetch(ctx, productID, balances, balErr, now)
		trades[productID] = v.trades
		b.WriteString(w.renderProduct(v))
		b.WriteByte('\n')
	}

	b.WriteString(renderTrades(mergeTrades(trades, watchTrades)))
	b.WriteByte('\n')
	return b.String()
}

func (w *Watcher) fetch(ctx context.Context, productID string, balances map[string]decimal.Decimal, balErr error, now time.Time) productView {
	v := productView{productID: productID}
	fail := func(err error) productView {
		logger.WithField("product_id", productID).WithError(err).Debug("watch fetch failed")
		v.err = err
		return v
	}

	q, err := w.client.Quote(ctx, productID)
	if err != nil {
		return fail(err)
	}
	v.quote = q
	if q.Complete() {
		v.mid = q.Mid()
	}

	candles, err := w.client.Candles(ctx, productID, w.granularity, watchCandles)
	if err != nil {
		return fail(err)
	}
	sorted := strategy.SortCandles(candles)
	signals := w.engine.Analyze(sorted)
	v.closes = indicators.Closes(sorted)
	v.change, v.hasChg = Change(v.closes)
	v.trend, v.atr, v.hasATR = signals.Trend, signals.ATR, signals.HasATR

	if balErr != nil {
		return fail(balErr)
	}
	v.baseCurrency, v.quoteCurrency = mapper.SplitProductID(productID)
	v.baseBalance = balances[v.baseCurrency]
	v.quoteBalance = balances[v.quoteCurrency]

	if v.state, err = w.store.States.Get(ctx, productID); err != nil {
		return fail(err)
	}
	v.daily = repository.DailyTradeCount(v.state, now)
	if v.trades, err = w.store.Trades.FindRecent(ctx, productID, recentTrades); err != nil {
		return fail(err)
	}
	return v
}

func (w *Watcher) renderProduct(v productView) string {
	t := table.NewWriter()
	t.SetTitle(v.productID)
	t.SetStyle(table.StyleRounded)

	if v.err != nil {
		t.AppendRow(table.Row{text.Colors{text.FgRed}.Sprint("Error: " + v.err.Error())})
		return t.Render()
	}

	if v.quote.Complete() {
		price := FormatMoney(v.mid)
		if v.hasChg {
			price += "  " + signedPct(v.change)
		}
		t.AppendRows([]table.Row{
			{"Price", price},
			{"Bid / Ask", FormatMoney(v.quote.Bid.Decimal) + " / " + FormatMoney(v.quote.Ask.Decimal)},
		})
	} else {
		t.AppendRow(table.Row{"Price", "no quote"})
	}

	trend := trendText(v.trend)
	if v.hasATR {
		trend += "  ATR: " + v.atr.StringFixed(2)
	}
	t.AppendRows([]table.Row{
		{"Trend", trend},
		{"Chart", Sparkline(v.closes)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{v.baseCurrency, v.baseBalance.StringFixed(8)},
		{v.quoteCurrency, FormatMoney(v.quoteBalance)},
	})
	t.AppendSeparator()

	if !v.state.HasAnchor() {
		t.AppendRow(table.Row{"State", "No bot state yet"})
		return t.Render()
	}

	anchor := v.state.AnchorPrice.Decimal
	anchorText := FormatMoney(anchor)
	if v.mid.IsPositive() {
		anchorText += "  " + signedPct(tp_sl.Gain(v.mid, anchor).Mul(hundred))
	}
	t.AppendRows([]table.Row{
		{"Anchor", anchorText},
		{"TP", TPBar(v.state.LastTPBand, w.opts.LadderLen)},
		{"Trades", fmt.Sprintf("%d/%d today", v.daily, w.opts.DailyTradeCap)},
	})

	if rebuy := v.state.Rebuy(); rebuy != nil {
		age := "?"
		if !rebuy.PlacedAt.IsZero() {
			age = fmt.Sprintf("%dm ago", int(w.now().Sub(rebuy.PlacedAt).Minutes()))
		}
		t.AppendRow(table.Row{"Rebuy", fmt.Sprintf("%s @ %s (%s)", orNA(rebuy.Size), orNA(rebuy.LimitPrice), age)})
	} else {
		cfg := w.engine.Config()
		dist := tp_sl.RebuyDistance(cfg.Rebuy(), anchor, v.atr, v.hasATR, v.trend == indicators.TrendDown)
		t.AppendRow(table.Row{"Rebuy", "none (target " + FormatMoney(tp_sl.RebuyTarget(anchor, dist)) + ")"})
	}
	return t.Render()
}

func renderTrades(trades []model.Trade) string {
	t := table.NewWriter()
	t.SetTitle("Recent Trades")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Product", "Side", "Size", "Price", "Reason"})

	for _, tr := range trades {
		side := text.Colors{text.FgRed}.Sprint(tr.Side)
		if tr.Side == model.TradeSideBuy {
			side = text.Colors{text.FgGreen}.Sprint(tr.Side)
		}
		t.AppendRow(table.Row{
			tr.CreatedAt.Local().Format("01-02 15:04"),
			tr.ProductID,
			side,
			tr.Size.String(),
			FormatMoney(tr.Price),
			tr.Reason,
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"-", "-", "-", "-", "-", "No trades yet"})
	}
	return t.Render()
}
