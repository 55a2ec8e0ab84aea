package connectors

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bullshark/src/model"
	"bullshark/src/security"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testCreds(t *testing.T) *security.Credentials {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return security.NewCredentials("organizations/o/apiKeys/k", base64.StdEncoding.EncodeToString(priv))
}

func testClient(t *testing.T, url string, dryRun bool) *CoinbaseClient {
	t.Helper()
	return NewCoinbaseClient(testCreds(t), Config{
		BaseURL:      url,
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	}, dryRun)
}

func TestBestBidAsk_SignsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/brokerage/best_bid_ask", r.URL.Path)
		require.Equal(t, "BTC-USD", r.URL.Query().Get("product_ids"))
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		_, _ = w.Write([]byte(`{"pricebooks":[{"product_id":"BTC-USD","bids":[{"price":"64000.10","size":"1"}],"asks":[{"price":"64001.90","size":"2"}],"time":"2025-03-04T12:00:00Z"}]}`))
	}))
	defer server.Close()

	q, err := testClient(t, server.URL, false).Quote(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.True(t, q.Complete())
	require.True(t, q.Mid().Equal(decimal.RequireFromString("64001")))
}

func TestQuote_MissingProductIsIncomplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pricebooks":[]}`))
	}))
	defer server.Close()

	q, err := testClient(t, server.URL, false).Quote(context.Background(), "ETH-USD")
	require.NoError(t, err)
	require.Equal(t, "ETH-USD", q.ProductID)
	require.False(t, q.Complete())
}

func TestRequest_RetriesOnServerError(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	var tokens []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens = append(tokens, r.Header.Get("Authorization"))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"accounts":[],"has_next":false}`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, false).Accounts(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	mu.Lock()
	defer mu.Unlock()
	require.NotEqual(t, tokens[0], tokens[1], "each attempt carries a fresh token")
}

func TestRequest_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, false).Accounts(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "slow down", apiErr.Message)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRequest_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, false).GetOrder(context.Background(), "missing")
	require.True(t, IsNotFound(err))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestAccounts_FollowsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "250", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("cursor") {
		case "":
			_, _ = w.Write([]byte(`{"accounts":[{"currency":"BTC","available_balance":{"value":"0.5","currency":"BTC"}}],"has_next":true,"cursor":"page2"}`))
		case "page2":
			_, _ = w.Write([]byte(`{"accounts":[{"currency":"USD","available_balance":{"value":"1200.25","currency":"USD"}},{"currency":"BTC","available_balance":{"value":"0.25","currency":"BTC"}}],"has_next":false}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	balances, err := testClient(t, server.URL, false).Balances(context.Background())
	require.NoError(t, err)
	require.True(t, balances["BTC"].Equal(decimal.RequireFromString("0.75")))
	require.True(t, balances["USD"].Equal(decimal.RequireFromString("1200.25")))
}

func TestCandles_RequestWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/brokerage/products/BTC-USD/candles", r.URL.Path)
		require.Equal(t, "ONE_HOUR", r.URL.Query().Get("granularity"))
		require.Equal(t, "1700000000", r.URL.Query().Get("end"))
		require.Equal(t, "1699820000", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`{"candles":[{"start":"1699996400","low":"9","high":"11","open":"10","close":"10.5","volume":"3"},{"start":"bad","close":"1"}]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL, false)
	client.now = func() time.Time { return time.Unix(1700000000, 0) }

	candles, err := client.Candles(context.Background(), "BTC-USD", "ONE_HOUR", 50)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	require.True(t, candles[0].Close.Equal(decimal.RequireFromString("10.5")))
}

func TestPlaceLimitOrder_Payload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v3/brokerage/orders", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var body model.CoinbaseCreateOrderRequest
		require.NoError(t, json.Unmarshal(raw, &body))
		require.Equal(t, "BUY", body.Side)
		require.NotEmpty(t, body.ClientOrderID)
		require.Nil(t, body.OrderConfiguration.MarketMarketIOC)
		require.Equal(t, "0.01", body.OrderConfiguration.LimitLimitGTC.BaseSize)
		require.Equal(t, "63000.5", body.OrderConfiguration.LimitLimitGTC.LimitPrice)
		require.False(t, body.OrderConfiguration.LimitLimitGTC.PostOnly)

		_, _ = w.Write([]byte(`{"success":true,"success_response":{"order_id":"live-42"}}`))
	}))
	defer server.Close()

	id, err := testClient(t, server.URL, false).PlaceLimitOrder(context.Background(), LimitOrderRequest{
		ProductID:  "BTC-USD",
		Side:       SideBuy,
		BaseSize:   decimal.RequireFromString("0.01"),
		LimitPrice: decimal.RequireFromString("63000.50"),
	})
	require.NoError(t, err)
	require.Equal(t, "live-42", id)
}

func TestPlaceMarketOrder_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"failure_reason":"UNKNOWN_FAILURE_REASON","error_response":{"error":"INSUFFICIENT_FUND","message":"Insufficient balance in source account"}}`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, false).PlaceMarketOrder(context.Background(), MarketOrderRequest{
		ProductID: "BTC-USD",
		Side:      SideSell,
		BaseSize:  decimal.NewNullDecimal(decimal.RequireFromString("0.1")),
	})
	require.ErrorContains(t, err, "INSUFFICIENT_FUND")
}

func TestDryRun_WritesNeverHitNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(t, server.URL, true)
	require.True(t, client.DryRun())

	id, err := client.PlaceMarketOrder(context.Background(), MarketOrderRequest{
		ProductID: "BTC-USD",
		Side:      SideSell,
		BaseSize:  decimal.NewNullDecimal(decimal.RequireFromString("0.1")),
	})
	require.NoError(t, err)
	require.True(t, model.IsDryRunOrderID(id), id)

	id2, err := client.PlaceLimitOrder(context.Background(), LimitOrderRequest{
		ProductID:  "BTC-USD",
		Side:       SideBuy,
		BaseSize:   decimal.RequireFromString("0.1"),
		LimitPrice: decimal.RequireFromString("100"),
	})
	require.NoError(t, err)
	require.NotEqual(t, id, id2)

	require.NoError(t, client.CancelOrder(context.Background(), id2))
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestCancelOrder_PerOrderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/brokerage/orders/batch_cancel", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"order_ids":["o-1"]}`, string(raw))
		_, _ = w.Write([]byte(`{"results":[{"success":false,"failure_reason":"UNKNOWN_CANCEL_ORDER","order_id":"o-1"}]}`))
	}))
	defer server.Close()

	err := testClient(t, server.URL, false).CancelOrder(context.Background(), "o-1")
	require.ErrorContains(t, err, "UNKNOWN_CANCEL_ORDER")
}

func TestGetOrder_MapsFill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/brokerage/orders/historical/o-7", r.URL.Path)
		_, _ = w.Write([]byte(`{"order":{"order_id":"o-7","product_id":"ETH-USD","status":"filled","average_filled_price":"2950.5","filled_size":"0.1","total_fees":"0.35"}}`))
	}))
	defer server.Close()

	status, err := testClient(t, server.URL, false).GetOrder(context.Background(), "o-7")
	require.NoError(t, err)
	require.True(t, status.IsFilled())
	require.True(t, status.AverageFilledPrice.Decimal.Equal(decimal.RequireFromString("2950.5")))
	require.True(t, status.FilledSize.Decimal.Equal(decimal.RequireFromString("0.1")))
}

func TestIsRetryableResp(t *testing.T) {
	require.True(t, isRetryableResp(nil, errors.New("dial tcp")))
	require.False(t, isRetryableResp(nil, nil))
}
