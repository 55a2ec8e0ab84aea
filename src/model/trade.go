package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"

	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Trade is an append-only ledger row written on every fill. Rows are never
// updated or deleted.
type Trade struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ProductID  string          `gorm:"size:32;not null;index:idx_trades_product_created,priority:1" json:"product_id"`
	Side       string          `gorm:"size:4;not null" json:"side"`
	OrderType  string          `gorm:"size:10;not null" json:"order_type"`
	OrderID    string          `gorm:"size:100" json:"order_id"`
	Price      decimal.Decimal `gorm:"type:text" json:"price"`
	Size       decimal.Decimal `gorm:"type:text" json:"size"`
	QuoteTotal decimal.Decimal `gorm:"type:text" json:"quote_total"`
	Fee        decimal.Decimal `gorm:"type:text" json:"fee"`
	Reason     string          `gorm:"type:text" json:"reason"`
	CreatedAt  time.Time       `gorm:"not null;index:idx_trades_product_created,priority:2" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
