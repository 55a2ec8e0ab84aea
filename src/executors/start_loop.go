package executors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bullshark/src/controller"
	"bullshark/src/indicators"
	"bullshark/src/mapper"
	"bullshark/src/metrics"
	"bullshark/src/model"
	"bullshark/src/repository"
	"bullshark/src/strategy"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// ErrIncompleteQuote marks a pair skipped because the book had no bid or ask.
var ErrIncompleteQuote = errors.New("incomplete best bid/ask")

// MarketClient is the trading client surface the loop needs.
// *connectors.CoinbaseClient satisfies it.
type MarketClient interface {
	controller.Exchange
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
	Candles(ctx context.Context, productID, granularity string, count int) ([]model.Candle, error)
}

type RunnerOptions struct {
	Products    []string
	Interval    time.Duration
	Granularity string
	CandleCount int
	Controller  controller.Config
}

// Runner drives reconciliation and the per-pair evaluation loop.
type Runner struct {
	client     MarketClient
	store      *repository.Store
	engine     *strategy.Engine
	executor   *controller.Executor
	reconciler *controller.Reconciler
	opts       RunnerOptions
	now        func() time.Time
}

func NewRunner(client MarketClient, store *repository.Store, engine *strategy.Engine, opts RunnerOptions) *Runner {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Granularity == "" {
		opts.Granularity = "ONE_HOUR"
	}
	if opts.CandleCount <= 0 {
		opts.CandleCount = 50
	}

	return &Runner{
		client:     client,
		store:      store,
		engine:     engine,
		executor:   controller.NewExecutor(client, store, opts.Controller, engine.Config().EstimatedFeeRate),
		reconciler: controller.NewReconciler(client, store),
		opts:       opts,
		now:        time.Now,
	}
}

// PairResult summarizes one pair iteration.
type PairResult struct {
	ProductID string
	Price     decimal.Decimal
	Trend     indicators.Trend
	Actions   []string
}

// Run reconciles recorded re-buys, then evaluates every product each
// interval until ctx is cancelled. With once set it returns after a single
// pass. Cancellation is observed between pairs, never inside one.
func (r *Runner) Run(ctx context.Context, once bool) error {
	log := logger.WithFields(map[string]interface{}{
		"executor": "Runner",
		"products": strings.Join(r.opts.Products, ","),
		"dry_run":  r.client.DryRun(),
		"interval": r.opts.Interval.String(),
	})
	log.Info("Starting loop")

	outcomes := r.reconciler.Reconcile(ctx, r.opts.Products)
	log.WithField("reconcile", outcomes).Info("Reconciliation done")

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		for _, productID := range r.opts.Products {
			if ctx.Err() != nil {
				log.Info("loop stopped")
				return nil
			}
			r.safeProcess(ctx, productID)
		}

		if once {
			return nil
		}

		select {
		case <-ctx.Done():
			log.Info("loop stopped")
			return nil
		case <-ticker.C:
			logger.Debug("loop tick")
		}
	}
}

// safeProcess runs one pair and turns errors and panics into a logged,
// captured pair failure.
func (r *Runner) safeProcess(ctx context.Context, productID string) {
	started := time.Now()
	defer func() {
		metrics.PairIteration.WithLabelValues(productID).Observe(time.Since(started).Seconds())
	}()

	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		// an in-flight pair finishes even if shutdown was requested
		_, err = r.ProcessProduct(context.WithoutCancel(ctx), productID)
		return err
	}()
	if err == nil || errors.Is(err, ErrIncompleteQuote) {
		return
	}

	metrics.PairFailures.WithLabelValues(productID).Inc()
	controller.Capture(ctx, r.store.Exceptions, "runner", "executors", "ProcessProduct", "error", err,
		map[string]interface{}{"product_id": productID})
}

// ProcessProduct fetches a market snapshot for productID, evaluates it and
// executes the resulting actions.
func (r *Runner) ProcessProduct(ctx context.Context, productID string) (*PairResult, error) {
	now := r.now()

	quote, err := r.client.Quote(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("best bid/ask: %w", err)
	}
	if !quote.Complete() {
		logger.WithField("product_id", productID).Warn("Missing bid or ask, skipping pair")
		return nil, ErrIncompleteQuote
	}
	price := quote.Mid()

	balances, err := r.client.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	baseCurrency, quoteCurrency := mapper.SplitProductID(productID)

	candles, err := r.client.Candles(ctx, productID, r.opts.Granularity, r.opts.CandleCount)
	if err != nil {
		return nil, fmt.Errorf("candles: %w", err)
	}

	state, err := r.store.States.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !state.HasAnchor() {
		if state, err = r.store.States.InitAnchor(ctx, productID, price); err != nil {
			return nil, fmt.Errorf("init anchor: %w", err)
		}
	}

	market := model.Market{
		ProductID:    productID,
		Quote:        quote,
		Price:        price,
		BaseBalance:  balances[baseCurrency],
		QuoteBalance: balances[quoteCurrency],
		Candles:      candles,
	}

	decision := r.engine.Decide(strategy.Input{
		ProductID:       productID,
		Price:           price,
		State:           state,
		BaseBalance:     market.BaseBalance,
		QuoteBalance:    market.QuoteBalance,
		Candles:         candles,
		DailyTradeCount: repository.DailyTradeCount(state, now),
		Now:             now,
	})
	statuses := r.executor.Execute(ctx, productID, market, decision.Actions)

	signals := decision.Signals
	result := &PairResult{
		ProductID: productID,
		Price:     price,
		Trend:     signals.Trend,
		Actions:   statuses,
	}

	if after, err := r.store.States.Get(ctx, productID); err == nil && after != nil {
		state = after
	}
	r.logPair(market, state, signals, statuses, now)
	return result, nil
}

func (r *Runner) logPair(market model.Market, state *model.PositionState, signals strategy.Signals, statuses []string, now time.Time) {
	rebuy := "-"
	if o := state.Rebuy(); o != nil {
		rebuy = o.OrderID
	}
	if state.HasAnchor() {
		metrics.SetAnchor(market.ProductID, state.AnchorPrice.Decimal)
	}

	logger.WithFields(map[string]interface{}{
		"product_id": market.ProductID,
		"price":      market.Price.StringFixed(2),
		"bid":        market.Quote.Bid.Decimal.String(),
		"ask":        market.Quote.Ask.Decimal.String(),
		"base":       market.BaseBalance.String(),
		"quote":      market.QuoteBalance.StringFixed(2),
		"anchor":     state.AnchorPrice.Decimal.String(),
		"trend":      string(signals.Trend),
		"tp_band":    fmt.Sprintf("%d/%d", state.LastTPBand, r.engine.Config().TPLadder.Len()),
		"rebuy":      rebuy,
		"trades":     repository.DailyTradeCount(state, now),
		"actions":    strings.Join(statuses, " | "),
	}).Info("Pair evaluated")
}
