package controller

import (
	"context"
	"fmt"
	"time"

	"bullshark/src/connectors"
	"bullshark/src/metrics"
	"bullshark/src/model"
	"bullshark/src/repository"
	"bullshark/src/risk"
	"bullshark/src/strategy"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Exchange is the subset of the trading client the controllers drive.
// *connectors.CoinbaseClient satisfies it.
type Exchange interface {
	Quote(ctx context.Context, productID string) (model.Quote, error)
	PlaceMarketOrder(ctx context.Context, req connectors.MarketOrderRequest) (string, error)
	PlaceLimitOrder(ctx context.Context, req connectors.LimitOrderRequest) (string, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (model.OrderStatus, error)
	DryRun() bool
}

// Executor performs the side effects of engine actions and persists their
// outcome. A failed exchange call never mutates state.
type Executor struct {
	client  Exchange
	store   *repository.Store
	cfg     Config
	feeRate decimal.Decimal
	now     func() time.Time
}

func NewExecutor(client Exchange, store *repository.Store, cfg Config, feeRate decimal.Decimal) *Executor {
	return &Executor{
		client:  client,
		store:   store,
		cfg:     cfg,
		feeRate: feeRate,
		now:     time.Now,
	}
}

// Execute runs actions in order and returns one status string per action.
func (e *Executor) Execute(ctx context.Context, productID string, market model.Market, actions []strategy.Action) []string {
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		metrics.Decisions.WithLabelValues(productID, action.Kind()).Inc()

		var status string
		switch a := action.(type) {
		case strategy.Sell:
			status = e.sell(ctx, productID, market, a)
		case strategy.PlaceRebuy:
			status = e.placeRebuy(ctx, productID, a)
		case strategy.CancelRebuy:
			status = e.cancelRebuy(ctx, productID, a)
		case strategy.NoAction:
			status = "no_action:" + a.Reason
		default:
			status = fmt.Sprintf("unknown_action:%T", action)
		}
		out = append(out, status)
	}
	return out
}

func (e *Executor) sell(ctx context.Context, productID string, market model.Market, a strategy.Sell) string {
	log := logger.WithFields(map[string]interface{}{
		"controller": "Executor",
		"op":         "sell",
		"product_id": productID,
		"band":       a.BandIndex,
		"reason":     a.Reason,
	})

	size := RoundSize(a.Size, e.cfg.SizeDecimals)
	if !size.IsPositive() {
		return "sell_error:size rounds to zero"
	}

	orderID, err := e.client.PlaceMarketOrder(ctx, connectors.MarketOrderRequest{
		ProductID: productID,
		Side:      connectors.SideSell,
		BaseSize:  decimal.NewNullDecimal(size),
	})
	metrics.Orders.WithLabelValues(productID, model.TradeSideSell, metrics.Mode(e.client.DryRun()), metrics.Result(err)).Inc()
	if err != nil {
		log.WithError(err).Error("Market sell failed")
		return fmt.Sprintf("sell_error:%v", err)
	}

	price := e.estimateFill(ctx, productID, market)
	quoteTotal := size.Mul(price)
	trade := &model.Trade{
		ProductID:  productID,
		Side:       model.TradeSideSell,
		OrderType:  model.OrderTypeMarket,
		OrderID:    orderID,
		Price:      price,
		Size:       size,
		QuoteTotal: quoteTotal,
		Fee:        risk.EstimatedFee(quoteTotal, e.feeRate),
		Reason:     a.Reason,
	}

	if err := e.store.RecordSell(ctx, trade, a.BandIndex, e.now()); err != nil {
		Capture(ctx, e.store.Exceptions, "executor", "controller", "RecordSell", "error", err,
			map[string]interface{}{"product_id": productID, "order_id": orderID, "size": size.String()})
		return fmt.Sprintf("sell_error:record: %v", err)
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"size":     size.String(),
		"price":    price.String(),
	}).Info("Take-profit sell executed")

	return fmt.Sprintf("sell:%s@~%s", size, price)
}

// estimateFill prices a market sell at a fresh best bid, falling back to the
// snapshot bid and then the evaluation price.
func (e *Executor) estimateFill(ctx context.Context, productID string, market model.Market) decimal.Decimal {
	q, err := e.client.Quote(ctx, productID)
	if err == nil && q.Bid.Valid && q.Bid.Decimal.IsPositive() {
		return q.Bid.Decimal
	}
	if err != nil {
		logger.WithField("product_id", productID).WithError(err).Warn("Fresh bid unavailable, using snapshot")
	}
	if market.Quote.Bid.Valid && market.Quote.Bid.Decimal.IsPositive() {
		return market.Quote.Bid.Decimal
	}
	return market.Price
}

func (e *Executor) placeRebuy(ctx context.Context, productID string, a strategy.PlaceRebuy) string {
	log := logger.WithFields(map[string]interface{}{
		"controller": "Executor",
		"op":         "placeRebuy",
		"product_id": productID,
		"reason":     a.Reason,
	})

	price := RoundPrice(a.LimitPrice, e.cfg.PriceDecimals)
	size := RoundSize(a.Size, e.cfg.SizeDecimals)
	if !price.IsPositive() || !size.IsPositive() {
		return "rebuy_error:price or size rounds to zero"
	}

	orderID, err := e.client.PlaceLimitOrder(ctx, connectors.LimitOrderRequest{
		ProductID:  productID,
		Side:       connectors.SideBuy,
		BaseSize:   size,
		LimitPrice: price,
		PostOnly:   e.cfg.RebuyPostOnly,
	})
	metrics.Orders.WithLabelValues(productID, model.TradeSideBuy, metrics.Mode(e.client.DryRun()), metrics.Result(err)).Inc()
	if err != nil {
		log.WithError(err).Error("Re-buy placement failed")
		return fmt.Sprintf("rebuy_error:%v", err)
	}

	err = e.store.States.SetRebuyOrder(ctx, productID, model.RebuyOrder{
		OrderID:    orderID,
		LimitPrice: decimal.NewNullDecimal(price),
		Size:       decimal.NewNullDecimal(size),
		PlacedAt:   e.now(),
	})
	if err != nil {
		// an untracked live order would never be reconciled
		if !model.IsDryRunOrderID(orderID) {
			if cerr := e.client.CancelOrder(ctx, orderID); cerr != nil {
				log.WithError(cerr).WithField("order_id", orderID).Error("Failed to cancel untracked re-buy")
			}
		}
		Capture(ctx, e.store.Exceptions, "executor", "controller", "SetRebuyOrder", "error", err,
			map[string]interface{}{"product_id": productID, "order_id": orderID})
		return fmt.Sprintf("rebuy_error:record: %v", err)
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"size":     size.String(),
		"price":    price.String(),
	}).Info("Re-buy placed")

	return fmt.Sprintf("rebuy:%s@%s", size, price)
}

// cancelRebuy clears the recorded re-buy even when the exchange refuses the
// cancel; the order is most likely already gone.
func (e *Executor) cancelRebuy(ctx context.Context, productID string, a strategy.CancelRebuy) string {
	log := logger.WithFields(map[string]interface{}{
		"controller": "Executor",
		"op":         "cancelRebuy",
		"product_id": productID,
		"order_id":   a.OrderID,
		"reason":     a.Reason,
	})

	if model.IsDryRunOrderID(a.OrderID) {
		if err := e.store.States.ClearRebuyOrder(ctx, productID); err != nil {
			return fmt.Sprintf("cancel_error:%v", err)
		}
		log.Info("Simulated re-buy cleared")
		return "cancel_dry_run:" + a.Reason
	}

	cancelErr := e.client.CancelOrder(ctx, a.OrderID)
	if err := e.store.States.ClearRebuyOrder(ctx, productID); err != nil {
		return fmt.Sprintf("cancel_error:%v", err)
	}

	if cancelErr != nil {
		log.WithError(cancelErr).Warn("Cancel failed, re-buy cleared locally")
		return fmt.Sprintf("cancel_error:%v", cancelErr)
	}

	log.Info("Re-buy cancelled")
	return "cancel:" + a.Reason
}
