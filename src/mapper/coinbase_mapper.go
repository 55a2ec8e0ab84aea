package mapper

import (
	"strings"
	"time"

	"bullshark/src/model"
	"bullshark/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// parseDecimalSafe parses an exchange numeric string. Empty or malformed
// values yield an invalid NullDecimal.
func parseDecimalSafe(field, v string) decimal.NullDecimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).WithError(err).Warn("Failed to parse decimal from Coinbase response field")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// MapPricebook converts one pricebook into a quote using the best level of
// each side. A side with no levels is left invalid.
func MapPricebook(book model.CoinbasePricebook) model.Quote {
	q := model.Quote{ProductID: book.ProductID}
	if len(book.Bids) > 0 {
		q.Bid = parseDecimalSafe("bids[0].price", book.Bids[0].Price)
	}
	if len(book.Asks) > 0 {
		q.Ask = parseDecimalSafe("asks[0].price", book.Asks[0].Price)
	}
	if t, err := time.Parse(time.RFC3339Nano, book.Time); err == nil {
		q.Time = t
	}
	return q
}

// MapCandles converts wire candles, dropping rows with an unparseable start or
// close. The exchange order is preserved.
func MapCandles(productID string, raw []model.CoinbaseCandle) []model.Candle {
	out := make([]model.Candle, 0, len(raw))
	for _, c := range raw {
		start, ok := utils.ParseUnixSeconds(c.Start)
		closePrice := parseDecimalSafe("close", c.Close)
		if !ok || !closePrice.Valid {
			logger.WithFields(map[string]interface{}{
				"mapper":     "MapCandles",
				"product_id": productID,
				"start":      c.Start,
			}).Warn("Skipping malformed candle")
			continue
		}

		out = append(out, model.Candle{
			Start:  start,
			Open:   orZero(parseDecimalSafe("open", c.Open)),
			High:   orZero(parseDecimalSafe("high", c.High)),
			Low:    orZero(parseDecimalSafe("low", c.Low)),
			Close:  closePrice.Decimal,
			Volume: orZero(parseDecimalSafe("volume", c.Volume)),
		})
	}
	return out
}

// MapBalances returns available balance per currency. Accounts sharing a
// currency are summed.
func MapBalances(accounts []model.CoinbaseAccount) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		v := orZero(parseDecimalSafe("available_balance.value", a.AvailableBalance.Value))
		out[a.Currency] = out[a.Currency].Add(v)
	}
	return out
}

// MapOrderStatus normalizes an order lookup. Missing fill fields stay invalid
// so callers can fall back to the values they recorded.
func MapOrderStatus(o model.CoinbaseOrder) model.OrderStatus {
	status := strings.ToUpper(strings.TrimSpace(o.Status))
	if status == "" {
		status = model.OrderStatusUnknown
	}
	return model.OrderStatus{
		OrderID:            o.OrderID,
		ProductID:          o.ProductID,
		Status:             status,
		AverageFilledPrice: positiveOrInvalid(parseDecimalSafe("average_filled_price", o.AverageFilledPrice)),
		FilledSize:         positiveOrInvalid(parseDecimalSafe("filled_size", o.FilledSize)),
		TotalFees:          parseDecimalSafe("total_fees", o.TotalFees),
	}
}

// CreatedOrderID extracts the order id of a create-order response.
func CreatedOrderID(resp model.CoinbaseCreateOrderResponse) string {
	if resp.SuccessResponse != nil && resp.SuccessResponse.OrderID != "" {
		return resp.SuccessResponse.OrderID
	}
	return resp.OrderID
}

// SplitProductID splits "BTC-USD" into base and quote currencies.
func SplitProductID(productID string) (base, quote string) {
	parts := strings.SplitN(productID, "-", 2)
	if len(parts) != 2 {
		return productID, ""
	}
	return parts[0], parts[1]
}

func orZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// Coinbase reports "0" for fill fields of unfilled orders.
func positiveOrInvalid(n decimal.NullDecimal) decimal.NullDecimal {
	if !n.Valid || !n.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	return n
}
