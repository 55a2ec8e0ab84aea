// REST CLIENT FOR COINBASE ADVANCED TRADE (SPOT)
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bullshark/src/mapper"
	"bullshark/src/metrics"
	"bullshark/src/model"
	"bullshark/src/security"
	"bullshark/src/utils"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	defaultCoinbaseBaseURL = "https://api.coinbase.com"
	brokeragePrefix        = "/api/v3/brokerage"
	accountsPageLimit      = 250
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// -----------------------------
// CLIENT
// -----------------------------
type CoinbaseClient struct {
	creds   *security.Credentials
	baseURL string
	host    string
	dryRun  bool
	http    *resty.Client
	now     func() time.Time
}

// NewCoinbaseClient builds a client. In dry-run mode reads still hit the
// exchange but writes return synthetic "dry-run-<uuid>" ids with no network
// call.
func NewCoinbaseClient(creds *security.Credentials, cfg Config, dryRun bool) *CoinbaseClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultCoinbaseBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	attempts := cfg.MaxRetries
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryBaseDelay
	}
	maxWait := cfg.RetryMaxWait
	if maxWait <= 0 {
		maxWait = defaultRetryMaxBackoff
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}

	c := &CoinbaseClient{
		creds:   creds,
		baseURL: baseURL,
		host:    host,
		dryRun:  dryRun,
		now:     time.Now,
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(attempts-1).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(maxWait).
		AddRetryCondition(isRetryableResp).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.authorize).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			metrics.ObserveRequest(r.Request.Method, r.StatusCode())
			return nil
		}).
		OnError(func(r *resty.Request, err error) {
			var re *resty.ResponseError
			if !errors.As(err, &re) {
				metrics.ObserveRequest(r.Method, 0)
			}
		})

	return c
}

func (c *CoinbaseClient) DryRun() bool { return c.dryRun }

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// authorize signs every attempt with a fresh JWT; a retried request must not
// reuse the previous token nonce.
func (c *CoinbaseClient) authorize(_ *resty.Client, r *resty.Request) error {
	if c.creds == nil {
		return nil
	}

	path := r.URL
	if u, err := url.Parse(r.URL); err == nil {
		path = u.Path
	}

	token, err := c.creds.SignJWT(r.Method, c.host, path, c.now())
	if err != nil {
		return fmt.Errorf("build jwt: %w", err)
	}
	r.SetAuthToken(token)
	return nil
}

func (c *CoinbaseClient) doRequest(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req = req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req = req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.WithFields(map[string]interface{}{
			"connector": "coinbase",
			"method":    method,
			"path":      path,
		}).WithError(err).Warn("Coinbase request failed after retries")

		return &APIError{StatusCode: 0, Message: err.Error(), Err: ErrMaxRetries}
	}

	raw := resp.Body()
	if resp.StatusCode() >= 400 {
		return &APIError{StatusCode: resp.StatusCode(), Message: strings.TrimSpace(string(raw))}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("json unmarshal failed: %w. raw=%s", err, string(raw))
		}
	}
	return nil
}

// -----------------------------
// MARKET DATA
// -----------------------------

// BestBidAsk returns the top of book for each product, keyed by product id.
func (c *CoinbaseClient) BestBidAsk(ctx context.Context, productIDs ...string) (map[string]model.Quote, error) {
	var resp model.CoinbaseBestBidAskResponse
	q := url.Values{}
	q.Set("product_ids", strings.Join(productIDs, ","))

	if err := c.doRequest(ctx, "GET", brokeragePrefix+"/best_bid_ask", q, nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]model.Quote, len(resp.Pricebooks))
	for _, book := range resp.Pricebooks {
		out[book.ProductID] = mapper.MapPricebook(book)
	}
	return out, nil
}

// Quote returns the top of book of one product. A product missing from the
// response yields an empty (incomplete) quote.
func (c *CoinbaseClient) Quote(ctx context.Context, productID string) (model.Quote, error) {
	quotes, err := c.BestBidAsk(ctx, productID)
	if err != nil {
		return model.Quote{}, err
	}
	q, ok := quotes[productID]
	if !ok {
		return model.Quote{ProductID: productID}, nil
	}
	return q, nil
}

// Candles fetches count bars ending now. The exchange returns them newest
// first; callers sort.
func (c *CoinbaseClient) Candles(ctx context.Context, productID, granularity string, count int) ([]model.Candle, error) {
	end := c.now().Unix()
	start := end - utils.GranularitySeconds(granularity)*int64(count)

	q := url.Values{}
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))
	q.Set("granularity", granularity)

	var resp model.CoinbaseCandlesResponse
	path := fmt.Sprintf("%s/products/%s/candles", brokeragePrefix, url.PathEscape(productID))
	if err := c.doRequest(ctx, "GET", path, q, nil, &resp); err != nil {
		return nil, err
	}
	return mapper.MapCandles(productID, resp.Candles), nil
}

// -----------------------------
// ACCOUNTS
// -----------------------------

// Accounts lists every account, following the pagination cursor.
func (c *CoinbaseClient) Accounts(ctx context.Context) ([]model.CoinbaseAccount, error) {
	var all []model.CoinbaseAccount
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(accountsPageLimit))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp model.CoinbaseAccountsResponse
		if err := c.doRequest(ctx, "GET", brokeragePrefix+"/accounts", q, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Accounts...)

		if !resp.HasNext || resp.Cursor == "" || resp.Cursor == cursor {
			return all, nil
		}
		cursor = resp.Cursor
	}
}

// Balances returns available balance per currency.
func (c *CoinbaseClient) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	return mapper.MapBalances(accounts), nil
}

// -----------------------------
// ORDERS
// -----------------------------

// MarketOrderRequest sizes the order in base or quote units; exactly one
// should be set.
type MarketOrderRequest struct {
	ProductID string
	Side      string
	BaseSize  decimal.NullDecimal
	QuoteSize decimal.NullDecimal
}

type LimitOrderRequest struct {
	ProductID  string
	Side       string
	BaseSize   decimal.Decimal
	LimitPrice decimal.Decimal
	PostOnly   bool
}

// PlaceMarketOrder submits an immediate-or-cancel market order and returns
// the exchange order id.
func (c *CoinbaseClient) PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (string, error) {
	ioc := &model.CoinbaseMarketIOC{}
	if req.BaseSize.Valid {
		ioc.BaseSize = req.BaseSize.Decimal.String()
	}
	if req.QuoteSize.Valid {
		ioc.QuoteSize = req.QuoteSize.Decimal.String()
	}

	body := model.CoinbaseCreateOrderRequest{
		ClientOrderID: uuid.NewString(),
		ProductID:     req.ProductID,
		Side:          req.Side,
		OrderConfiguration: model.CoinbaseOrderConfiguration{
			MarketMarketIOC: ioc,
		},
	}

	log := logger.WithFields(map[string]interface{}{
		"connector":  "coinbase",
		"op":         "PlaceMarketOrder",
		"product_id": req.ProductID,
		"side":       req.Side,
		"base_size":  ioc.BaseSize,
		"quote_size": ioc.QuoteSize,
	})
	return c.createOrder(ctx, body, log)
}

// PlaceLimitOrder submits a good-till-cancelled limit order.
func (c *CoinbaseClient) PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (string, error) {
	body := model.CoinbaseCreateOrderRequest{
		ClientOrderID: uuid.NewString(),
		ProductID:     req.ProductID,
		Side:          req.Side,
		OrderConfiguration: model.CoinbaseOrderConfiguration{
			LimitLimitGTC: &model.CoinbaseLimitGTC{
				BaseSize:   req.BaseSize.String(),
				LimitPrice: req.LimitPrice.String(),
				PostOnly:   req.PostOnly,
			},
		},
	}

	log := logger.WithFields(map[string]interface{}{
		"connector":   "coinbase",
		"op":          "PlaceLimitOrder",
		"product_id":  req.ProductID,
		"side":        req.Side,
		"base_size":   req.BaseSize.String(),
		"limit_price": req.LimitPrice.String(),
		"post_only":   req.PostOnly,
	})
	return c.createOrder(ctx, body, log)
}

func (c *CoinbaseClient) createOrder(ctx context.Context, body model.CoinbaseCreateOrderRequest, log *logger.Entry) (string, error) {
	if c.dryRun {
		orderID := model.DryRunOrderPrefix + body.ClientOrderID
		log.WithField("order_id", orderID).Info("[DRY-RUN] order not sent")
		return orderID, nil
	}

	var resp model.CoinbaseCreateOrderResponse
	if err := c.doRequest(ctx, "POST", brokeragePrefix+"/orders", nil, body, &resp); err != nil {
		log.WithError(err).Error("Create order failed")
		return "", err
	}

	if !resp.Success {
		msg := resp.FailureReason
		if resp.ErrorResponse != nil {
			msg = strings.TrimSpace(resp.ErrorResponse.Error + " " + resp.ErrorResponse.Message)
		}
		err := &APIError{StatusCode: 200, Message: "order rejected: " + msg}
		log.WithError(err).Error("Create order rejected")
		return "", err
	}

	orderID := mapper.CreatedOrderID(resp)
	if orderID == "" {
		return "", &APIError{StatusCode: 200, Message: "order accepted without order id"}
	}
	log.WithField("order_id", orderID).Info("Order created")
	return orderID, nil
}

// CancelOrders cancels orderIDs in one batch. Per-order failures are reported
// in the results, not as an error.
func (c *CoinbaseClient) CancelOrders(ctx context.Context, orderIDs []string) ([]model.CoinbaseCancelResult, error) {
	if c.dryRun {
		out := make([]model.CoinbaseCancelResult, 0, len(orderIDs))
		for _, id := range orderIDs {
			out = append(out, model.CoinbaseCancelResult{Success: true, OrderID: id})
		}
		logger.WithField("order_ids", orderIDs).Info("[DRY-RUN] cancel not sent")
		return out, nil
	}

	var resp model.CoinbaseCancelResponse
	body := map[string][]string{"order_ids": orderIDs}
	if err := c.doRequest(ctx, "POST", brokeragePrefix+"/orders/batch_cancel", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// CancelOrder cancels a single order, turning a per-order failure into an
// error.
func (c *CoinbaseClient) CancelOrder(ctx context.Context, orderID string) error {
	results, err := c.CancelOrders(ctx, []string{orderID})
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.OrderID == orderID && !r.Success {
			return &APIError{StatusCode: 200, Message: "cancel rejected: " + r.FailureReason}
		}
	}
	return nil
}

// GetOrder fetches status and fill details of orderID.
func (c *CoinbaseClient) GetOrder(ctx context.Context, orderID string) (model.OrderStatus, error) {
	var resp model.CoinbaseOrderResponse
	path := fmt.Sprintf("%s/orders/historical/%s", brokeragePrefix, url.PathEscape(orderID))
	if err := c.doRequest(ctx, "GET", path, nil, nil, &resp); err != nil {
		return model.OrderStatus{}, err
	}
	status := mapper.MapOrderStatus(resp.Order)
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return status, nil
}
