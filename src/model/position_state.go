package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DryRunOrderPrefix tags order ids minted by the simulated client. Such orders
// never exist on the exchange.
const DryRunOrderPrefix = "dry-run-"

// PositionState is the persisted per-product position anchor. It is mutated
// only by the execution controller and the reconciliation step.
type PositionState struct {
	ProductID     string              `gorm:"primaryKey;size:32;column:product_id" json:"product_id"`
	AnchorPrice   decimal.NullDecimal `gorm:"type:text;column:anchor_price" json:"anchor_price"`
	AvgEntryPrice decimal.NullDecimal `gorm:"type:text;column:avg_entry_price" json:"avg_entry_price"`

	LastTPBand      int        `gorm:"not null;default:0;column:last_tp_band" json:"last_tp_band"`
	LastTPTimestamp *time.Time `gorm:"column:last_tp_timestamp" json:"last_tp_timestamp,omitempty"`
	DailyTradeCount int        `gorm:"not null;default:0;column:daily_trade_count" json:"daily_trade_count"`
	DailyTradeDate  string     `gorm:"size:10;column:daily_trade_date" json:"daily_trade_date"` // YYYY-MM-DD, UTC

	RebuyOrderID  *string             `gorm:"size:100;column:rebuy_order_id" json:"rebuy_order_id,omitempty"`
	RebuyPrice    decimal.NullDecimal `gorm:"type:text;column:rebuy_price" json:"rebuy_price"`
	RebuySize     decimal.NullDecimal `gorm:"type:text;column:rebuy_size" json:"rebuy_size"`
	RebuyPlacedAt *time.Time          `gorm:"column:rebuy_placed_at" json:"rebuy_placed_at,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (PositionState) TableName() string {
	return "product_state"
}

// RebuyOrder is the single outstanding resting buy of a product.
type RebuyOrder struct {
	OrderID    string
	LimitPrice decimal.NullDecimal
	Size       decimal.NullDecimal
	PlacedAt   time.Time
}

// IsDryRun reports whether the order was minted by the simulated client.
func (r RebuyOrder) IsDryRun() bool {
	return IsDryRunOrderID(r.OrderID)
}

// Rebuy returns the outstanding re-buy order, or nil when there is none.
func (s *PositionState) Rebuy() *RebuyOrder {
	if s == nil || s.RebuyOrderID == nil || *s.RebuyOrderID == "" {
		return nil
	}
	r := &RebuyOrder{
		OrderID:    *s.RebuyOrderID,
		LimitPrice: s.RebuyPrice,
		Size:       s.RebuySize,
	}
	if s.RebuyPlacedAt != nil {
		r.PlacedAt = *s.RebuyPlacedAt
	}
	return r
}

// HasAnchor reports whether a positive anchor price has been recorded.
func (s *PositionState) HasAnchor() bool {
	return s != nil && s.AnchorPrice.Valid && s.AnchorPrice.Decimal.IsPositive()
}

func IsDryRunOrderID(orderID string) bool {
	return strings.HasPrefix(orderID, DryRunOrderPrefix)
}
