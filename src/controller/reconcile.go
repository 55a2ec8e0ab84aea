package controller

import (
	"context"
	"fmt"
	"time"

	"bullshark/src/metrics"
	"bullshark/src/model"
	"bullshark/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const ReasonRebuyFilledOnReconcile = "rebuy_filled_on_reconcile"

// Reconcile outcomes, one per product.
const (
	OutcomeNone           = "none"
	OutcomeDryRunCleared  = "dry_run_cleared"
	OutcomeFilled         = "filled"
	OutcomeClosed         = "closed"
	OutcomeOpen           = "open"
	OutcomeLookupFailed   = "lookup_failed"
	OutcomePersistFailed  = "persist_failed"
	OutcomeStateReadError = "state_error"
)

// Reconciler folds exchange-side outcomes of recorded re-buys back into
// position state.
type Reconciler struct {
	client Exchange
	store  *repository.Store
	now    func() time.Time
}

func NewReconciler(client Exchange, store *repository.Store) *Reconciler {
	return &Reconciler{client: client, store: store, now: time.Now}
}

// Reconcile checks the recorded re-buy of every product. It is best-effort:
// a failed lookup is logged and the next product is processed. Returns the
// outcome per product.
func (r *Reconciler) Reconcile(ctx context.Context, products []string) map[string]string {
	outcomes := make(map[string]string, len(products))
	for _, productID := range products {
		if ctx.Err() != nil {
			break
		}
		outcome := r.reconcileOne(ctx, productID)
		outcomes[productID] = outcome
		if outcome != OutcomeNone {
			metrics.Reconcile.WithLabelValues(productID, outcome).Inc()
		}
	}
	return outcomes
}

func (r *Reconciler) reconcileOne(ctx context.Context, productID string) string {
	log := logger.WithFields(map[string]interface{}{
		"controller": "Reconciler",
		"product_id": productID,
	})

	state, err := r.store.States.Get(ctx, productID)
	if err != nil {
		Capture(ctx, r.store.Exceptions, "reconcile", "controller", "States.Get", "error", err,
			map[string]interface{}{"product_id": productID})
		return OutcomeStateReadError
	}

	rebuy := state.Rebuy()
	if rebuy == nil {
		return OutcomeNone
	}
	log = log.WithField("order_id", rebuy.OrderID)

	if rebuy.IsDryRun() {
		if err := r.store.States.ClearRebuyOrder(ctx, productID); err != nil {
			log.WithError(err).Error("Failed to clear simulated re-buy")
			return OutcomePersistFailed
		}
		log.Info("Cleared simulated re-buy")
		return OutcomeDryRunCleared
	}

	status, err := r.client.GetOrder(ctx, rebuy.OrderID)
	if err != nil {
		log.WithError(err).Warn("Order lookup failed, will retry next pass")
		Capture(ctx, r.store.Exceptions, "reconcile", "controller", "GetOrder", "warn", err,
			map[string]interface{}{"product_id": productID, "order_id": rebuy.OrderID})
		return OutcomeLookupFailed
	}

	switch {
	case status.IsFilled():
		price := firstValid(status.AverageFilledPrice, rebuy.LimitPrice)
		size := firstValid(status.FilledSize, rebuy.Size)
		fee := decimal.Zero
		if status.TotalFees.Valid {
			fee = status.TotalFees.Decimal
		}
		if !price.IsPositive() || !size.IsPositive() {
			// keep the re-buy pending; the anchor must stay positive
			err := fmt.Errorf("order %s filled without a usable price/size (price=%s size=%s): %w",
				rebuy.OrderID, price, size, repository.ErrInvalidFillPrice)
			log.WithError(err).Error("Cannot record re-buy fill")
			Capture(ctx, r.store.Exceptions, "reconcile", "controller", "RecordRebuyFill", "error", err,
				map[string]interface{}{"product_id": productID, "order_id": rebuy.OrderID})
			return OutcomePersistFailed
		}

		trade := &model.Trade{
			ProductID:  productID,
			Side:       model.TradeSideBuy,
			OrderType:  model.OrderTypeLimit,
			OrderID:    rebuy.OrderID,
			Price:      price,
			Size:       size,
			QuoteTotal: price.Mul(size),
			Fee:        fee,
			Reason:     ReasonRebuyFilledOnReconcile,
		}
		if err := r.store.RecordRebuyFill(ctx, trade, price, r.now()); err != nil {
			Capture(ctx, r.store.Exceptions, "reconcile", "controller", "RecordRebuyFill", "error", err,
				map[string]interface{}{"product_id": productID, "order_id": rebuy.OrderID})
			return OutcomePersistFailed
		}
		log.WithFields(map[string]interface{}{
			"price": price.String(),
			"size":  size.String(),
		}).Info("Re-buy filled, anchor blended")
		return OutcomeFilled

	case status.IsClosedWithoutFill():
		if err := r.store.States.ClearRebuyOrder(ctx, productID); err != nil {
			log.WithError(err).Error("Failed to clear closed re-buy")
			return OutcomePersistFailed
		}
		log.WithField("status", status.Status).Info("Re-buy closed without fill")
		return OutcomeClosed

	default:
		log.WithField("status", status.Status).Debug("Re-buy still open")
		return OutcomeOpen
	}
}

// firstValid returns the exchange value when present and positive, else the
// recorded one.
func firstValid(reported, recorded decimal.NullDecimal) decimal.Decimal {
	if reported.Valid && reported.Decimal.IsPositive() {
		return reported.Decimal
	}
	return recorded.Decimal
}
