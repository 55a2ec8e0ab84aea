package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bullshark/src/model"
	"bullshark/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRebuyOutstanding is returned when a product already tracks a re-buy.
	ErrRebuyOutstanding = errors.New("rebuy order already outstanding")
	// ErrInvalidRebuyPrice rejects a re-buy without a positive limit price.
	ErrInvalidRebuyPrice = errors.New("rebuy limit price must be positive")
)

// PositionStateRepository reads and writes per-product position state.
type PositionStateRepository struct {
	db *gorm.DB
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionStateRepository) WithDB(db *gorm.DB) *PositionStateRepository {
	return &PositionStateRepository{db: db}
}

// Get fetches the state of productID.
// Returns (nil, nil) if the product has no state yet.
func (r *PositionStateRepository) Get(ctx context.Context, productID string) (*model.PositionState, error) {
	var state model.PositionState

	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Take(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":       "PositionStateRepository",
			"op":         "Get",
			"product_id": productID,
		}).WithError(err).Error("Failed to fetch position state")

		return nil, err
	}

	return &state, nil
}

// List returns every tracked product ordered by id.
func (r *PositionStateRepository) List(ctx context.Context) ([]model.PositionState, error) {
	var states []model.PositionState
	if err := r.db.WithContext(ctx).Order("product_id").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// InitAnchor sets anchor and average entry to price, creating the row if
// needed. A non-positive price is rejected so the anchor is never zero.
func (r *PositionStateRepository) InitAnchor(ctx context.Context, productID string, price decimal.Decimal) (*model.PositionState, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("anchor price for %s must be positive, got %s", productID, price)
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "PositionStateRepository",
		"op":         "InitAnchor",
		"product_id": productID,
		"price":      price.String(),
	}).Info("Initializing anchor price")

	err := r.Update(ctx, productID, map[string]interface{}{
		"anchor_price":    decimal.NewNullDecimal(price),
		"avg_entry_price": decimal.NewNullDecimal(price),
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, productID)
}

// Update applies a partial update, creating the product row when missing.
func (r *PositionStateRepository) Update(ctx context.Context, productID string, fields map[string]interface{}) error {
	if err := r.ensure(ctx, productID); err != nil {
		return err
	}

	fields["updated_at"] = time.Now().UTC()
	err := r.db.WithContext(ctx).
		Model(&model.PositionState{}).
		Where("product_id = ?", productID).
		Updates(fields).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "PositionStateRepository",
			"op":         "Update",
			"product_id": productID,
		}).WithError(err).Error("Failed to update position state")

		return err
	}
	return nil
}

// SetRebuyOrder records the single outstanding re-buy. It fails with
// ErrInvalidRebuyPrice when the limit price is missing or not positive, and
// with ErrRebuyOutstanding if one is already tracked.
func (r *PositionStateRepository) SetRebuyOrder(ctx context.Context, productID string, order model.RebuyOrder) error {
	if !order.LimitPrice.Valid || !order.LimitPrice.Decimal.IsPositive() {
		return fmt.Errorf("%s order %s: %w", productID, order.OrderID, ErrInvalidRebuyPrice)
	}

	state, err := r.Get(ctx, productID)
	if err != nil {
		return err
	}
	if existing := state.Rebuy(); existing != nil {
		return fmt.Errorf("%s has %s: %w", productID, existing.OrderID, ErrRebuyOutstanding)
	}

	placedAt := order.PlacedAt.UTC()
	return r.Update(ctx, productID, map[string]interface{}{
		"rebuy_order_id":  order.OrderID,
		"rebuy_price":     order.LimitPrice,
		"rebuy_size":      order.Size,
		"rebuy_placed_at": &placedAt,
	})
}

func (r *PositionStateRepository) ClearRebuyOrder(ctx context.Context, productID string) error {
	return r.Update(ctx, productID, map[string]interface{}{
		"rebuy_order_id":  nil,
		"rebuy_price":     nil,
		"rebuy_size":      nil,
		"rebuy_placed_at": nil,
	})
}

// IncrementDailyTrades bumps the counter for the UTC day of at, restarting
// it at 1 when the day changed. Returns the new count.
func (r *PositionStateRepository) IncrementDailyTrades(ctx context.Context, productID string, at time.Time) (int, error) {
	if err := r.ensure(ctx, productID); err != nil {
		return 0, err
	}

	day := utils.DayKey(at)
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var state model.PositionState
		if err := tx.Where("product_id = ?", productID).
			Take(&state).Error; err != nil {
			return err
		}

		count = 1
		if state.DailyTradeDate == day {
			count = state.DailyTradeCount + 1
		}

		return tx.Model(&model.PositionState{}).
			Where("product_id = ?", productID).
			Updates(map[string]interface{}{
				"daily_trade_count": count,
				"daily_trade_date":  day,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("increment daily trades for %s: %w", productID, err)
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "PositionStateRepository",
		"op":         "IncrementDailyTrades",
		"product_id": productID,
		"day":        day,
		"count":      count,
	}).Debug("Daily trade counter incremented")

	return count, nil
}

// GetDailyTradeCount returns the counter for the UTC day of at; a counter
// recorded on another day reads as zero.
func (r *PositionStateRepository) GetDailyTradeCount(ctx context.Context, productID string, at time.Time) (int, error) {
	state, err := r.Get(ctx, productID)
	if err != nil || state == nil {
		return 0, err
	}
	return DailyTradeCount(state, at), nil
}

// DailyTradeCount reads the counter of an already loaded state.
func DailyTradeCount(state *model.PositionState, at time.Time) int {
	if state == nil || state.DailyTradeDate != utils.DayKey(at) {
		return 0
	}
	return state.DailyTradeCount
}

func (r *PositionStateRepository) ensure(ctx context.Context, productID string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PositionState{ProductID: productID, UpdatedAt: time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("ensure position state for %s: %w", productID, err)
	}
	return nil
}
