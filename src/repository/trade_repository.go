package repository

import (
	"context"

	"bullshark/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TradeRepository appends to and reads the trade ledger. Rows are never
// updated or deleted.
type TradeRepository struct {
	db *gorm.DB
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade. The given trade is updated with its ID.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":       "TradeRepository",
		"op":         "Create",
		"product_id": trade.ProductID,
		"side":       trade.Side,
		"size":       trade.Size.String(),
		"price":      trade.Price.String(),
	}).Debug("Recording trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "Create",
			"product_id": trade.ProductID,
		}).WithError(err).Error("Failed to record trade")

		return err
	}
	return nil
}

// FindRecent returns up to limit trades of productID, newest first.
func (r *TradeRepository) FindRecent(ctx context.Context, productID string, limit int) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "FindRecent",
			"product_id": productID,
		}).WithError(err).Error("Failed to fetch recent trades")

		return nil, err
	}
	return trades, nil
}
