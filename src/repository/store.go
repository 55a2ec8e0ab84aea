package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bullshark/src/database"
	"bullshark/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store pairs ledger writes with the position state changes they imply.
// Each Record* call commits both or neither.
type Store struct {
	db *gorm.DB

	States     *PositionStateRepository
	Trades     *TradeRepository
	Exceptions *ExceptionRepository
}

func NewStore() *Store {
	return NewStoreWithDB(database.MainDB)
}

func NewStoreWithDB(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		States:     (&PositionStateRepository{}).WithDB(db),
		Trades:     (&TradeRepository{}).WithDB(db),
		Exceptions: (&ExceptionRepository{}).WithDB(db),
	}
}

// RecordSell appends trade, advances the take-profit band to bandIndex,
// stamps the sell time and bumps the daily counter.
func (s *Store) RecordSell(ctx context.Context, trade *model.Trade, bandIndex int, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		states := &PositionStateRepository{db: tx}
		trades := &TradeRepository{db: tx}

		if err := trades.Create(ctx, trade); err != nil {
			return fmt.Errorf("insert sell trade: %w", err)
		}

		state, err := states.Get(ctx, trade.ProductID)
		if err != nil {
			return err
		}
		band := bandIndex
		if state != nil && state.LastTPBand > band {
			// band never moves backwards
			band = state.LastTPBand
		}

		stamp := at.UTC()
		if err := states.Update(ctx, trade.ProductID, map[string]interface{}{
			"last_tp_band":      band,
			"last_tp_timestamp": &stamp,
		}); err != nil {
			return fmt.Errorf("advance band: %w", err)
		}

		if _, err := states.IncrementDailyTrades(ctx, trade.ProductID, at); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "Store",
			"op":         "RecordSell",
			"product_id": trade.ProductID,
		}).WithError(err).Error("Failed to record sell")

		return err
	}
	return nil
}

// ErrInvalidFillPrice rejects a re-buy fill that would leave a non-positive
// anchor.
var ErrInvalidFillPrice = errors.New("rebuy fill price must be positive")

// RecordRebuyFill appends trade, blends the anchor with fillPrice (simple
// average, or fillPrice when no anchor exists), clears the re-buy and bumps
// the daily counter. A non-positive fillPrice writes nothing.
func (s *Store) RecordRebuyFill(ctx context.Context, trade *model.Trade, fillPrice decimal.Decimal, at time.Time) error {
	if !fillPrice.IsPositive() {
		return fmt.Errorf("%s fill at %s: %w", trade.ProductID, fillPrice, ErrInvalidFillPrice)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		states := &PositionStateRepository{db: tx}
		trades := &TradeRepository{db: tx}

		if err := trades.Create(ctx, trade); err != nil {
			return fmt.Errorf("insert rebuy trade: %w", err)
		}

		state, err := states.Get(ctx, trade.ProductID)
		if err != nil {
			return err
		}

		anchor := BlendAnchor(state, fillPrice)
		if err := states.Update(ctx, trade.ProductID, map[string]interface{}{
			"anchor_price":    decimal.NewNullDecimal(anchor),
			"rebuy_order_id":  nil,
			"rebuy_price":     nil,
			"rebuy_size":      nil,
			"rebuy_placed_at": nil,
		}); err != nil {
			return fmt.Errorf("blend anchor: %w", err)
		}

		if _, err := states.IncrementDailyTrades(ctx, trade.ProductID, at); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "Store",
			"op":         "RecordRebuyFill",
			"product_id": trade.ProductID,
		}).WithError(err).Error("Failed to record rebuy fill")

		return err
	}
	return nil
}

// BlendAnchor is (anchor + fill) / 2, or fill when state has no anchor.
func BlendAnchor(state *model.PositionState, fill decimal.Decimal) decimal.Decimal {
	if !state.HasAnchor() {
		return fill
	}
	return state.AnchorPrice.Decimal.Add(fill).Div(decimal.NewFromInt(2))
}
