package strategy

import "github.com/shopspring/decimal"

// Action is one decision for a product. The set of variants is closed:
// Sell, PlaceRebuy, CancelRebuy and NoAction.
type Action interface {
	isAction()
	Kind() string
}

// Sell liquidates Size base units at market. BandIndex is the ladder band
// consumed once the sell executes (rung index + 1).
type Sell struct {
	Size      decimal.Decimal
	Reason    string
	BandIndex int
}

// PlaceRebuy rests a post-only limit buy below the market.
type PlaceRebuy struct {
	LimitPrice decimal.Decimal
	Size       decimal.Decimal
	Reason     string
}

type CancelRebuy struct {
	OrderID string
	Reason  string
}

type NoAction struct {
	Reason string
}

func (Sell) isAction()        {}
func (PlaceRebuy) isAction()  {}
func (CancelRebuy) isAction() {}
func (NoAction) isAction()    {}

func (Sell) Kind() string        { return "sell" }
func (PlaceRebuy) Kind() string  { return "rebuy" }
func (CancelRebuy) Kind() string { return "cancel" }
func (NoAction) Kind() string    { return "no_action" }
