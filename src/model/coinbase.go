package model

// Coinbase Advanced Trade wire payloads. Numeric fields arrive as strings and
// are converted to decimals by the mapper package.

type CoinbaseBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type CoinbasePricebook struct {
	ProductID string              `json:"product_id"`
	Bids      []CoinbaseBookLevel `json:"bids"`
	Asks      []CoinbaseBookLevel `json:"asks"`
	Time      string              `json:"time"`
}

type CoinbaseBestBidAskResponse struct {
	Pricebooks []CoinbasePricebook `json:"pricebooks"`
}

type CoinbaseCandle struct {
	Start  string `json:"start"` // epoch seconds
	Low    string `json:"low"`
	High   string `json:"high"`
	Open   string `json:"open"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

type CoinbaseCandlesResponse struct {
	Candles []CoinbaseCandle `json:"candles"`
}

type CoinbaseAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type CoinbaseAccount struct {
	UUID             string         `json:"uuid"`
	Name             string         `json:"name"`
	Currency         string         `json:"currency"`
	AvailableBalance CoinbaseAmount `json:"available_balance"`
	Hold             CoinbaseAmount `json:"hold"`
}

type CoinbaseAccountsResponse struct {
	Accounts []CoinbaseAccount `json:"accounts"`
	HasNext  bool              `json:"has_next"`
	Cursor   string            `json:"cursor"`
	Size     int               `json:"size"`
}

type CoinbaseMarketIOC struct {
	QuoteSize string `json:"quote_size,omitempty"`
	BaseSize  string `json:"base_size,omitempty"`
}

type CoinbaseLimitGTC struct {
	BaseSize   string `json:"base_size"`
	LimitPrice string `json:"limit_price"`
	PostOnly   bool   `json:"post_only"`
}

type CoinbaseOrderConfiguration struct {
	MarketMarketIOC *CoinbaseMarketIOC `json:"market_market_ioc,omitempty"`
	LimitLimitGTC   *CoinbaseLimitGTC  `json:"limit_limit_gtc,omitempty"`
}

type CoinbaseCreateOrderRequest struct {
	ClientOrderID      string                     `json:"client_order_id"`
	ProductID          string                     `json:"product_id"`
	Side               string                     `json:"side"`
	OrderConfiguration CoinbaseOrderConfiguration `json:"order_configuration"`
}

type CoinbaseCreateOrderResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"order_id,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
	SuccessResponse *struct {
		OrderID       string `json:"order_id"`
		ProductID     string `json:"product_id"`
		Side          string `json:"side"`
		ClientOrderID string `json:"client_order_id"`
	} `json:"success_response,omitempty"`
	ErrorResponse *struct {
		Error        string `json:"error"`
		Message      string `json:"message"`
		ErrorDetails string `json:"error_details"`
	} `json:"error_response,omitempty"`
}

type CoinbaseCancelResult struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
	OrderID       string `json:"order_id"`
}

type CoinbaseCancelResponse struct {
	Results []CoinbaseCancelResult `json:"results"`
}

type CoinbaseOrder struct {
	OrderID            string `json:"order_id"`
	ProductID          string `json:"product_id"`
	Side               string `json:"side"`
	Status             string `json:"status"`
	AverageFilledPrice string `json:"average_filled_price"`
	FilledSize         string `json:"filled_size"`
	TotalFees          string `json:"total_fees"`
	CreatedTime        string `json:"created_time"`
}

type CoinbaseOrderResponse struct {
	Order CoinbaseOrder `json:"order"`
}
