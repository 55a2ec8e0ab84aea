package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar as reported by the exchange. Start is the bar open time.
type Candle struct {
	Start  time.Time       `json:"start"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Quote is the top of book of a product.
type Quote struct {
	ProductID string              `json:"product_id"`
	Bid       decimal.NullDecimal `json:"bid"`
	Ask       decimal.NullDecimal `json:"ask"`
	Time      time.Time           `json:"time"`
}

// Complete reports whether both sides of the book are present.
func (q *Quote) Complete() bool {
	return q != nil && q.Bid.Valid && q.Ask.Valid
}

// Mid returns (bid + ask) / 2. Callers must check Complete first.
func (q *Quote) Mid() decimal.Decimal {
	return q.Bid.Decimal.Add(q.Ask.Decimal).Div(decimal.NewFromInt(2))
}

// Market is the per-iteration snapshot a product is evaluated against.
type Market struct {
	ProductID    string
	Quote        Quote
	Price        decimal.Decimal
	BaseBalance  decimal.Decimal
	QuoteBalance decimal.Decimal
	Candles      []Candle
}

const (
	OrderStatusFilled    = "FILLED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusExpired   = "EXPIRED"
	OrderStatusFailed    = "FAILED"
	OrderStatusOpen      = "OPEN"
	OrderStatusPending   = "PENDING"
	OrderStatusUnknown   = "UNKNOWN"
)

// OrderStatus is the exchange view of one order. Fill fields are invalid
// when the exchange omits them.
type OrderStatus struct {
	OrderID            string
	ProductID          string
	Status             string
	AverageFilledPrice decimal.NullDecimal
	FilledSize         decimal.NullDecimal
	TotalFees          decimal.NullDecimal
}

// IsFilled reports FILLED or COMPLETED.
func (o *OrderStatus) IsFilled() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCompleted
}

// IsClosedWithoutFill reports CANCELLED, EXPIRED or FAILED.
func (o *OrderStatus) IsClosedWithoutFill() bool {
	switch o.Status {
	case OrderStatusCancelled, OrderStatusExpired, OrderStatusFailed:
		return true
	}
	return false
}
