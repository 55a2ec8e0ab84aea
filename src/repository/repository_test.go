package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"bullshark/src/database"
	"bullshark/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Config{
		DBDriver:        database.DriverSQLite,
		DatabaseURLMain: filepath.Join(t.TempDir(), "bot.db"),
		GormLogLevel:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func sellTrade(product, size, price string) *model.Trade {
	return &model.Trade{
		ProductID:  product,
		Side:       model.TradeSideSell,
		OrderType:  model.OrderTypeMarket,
		OrderID:    "order-sell",
		Price:      d(price),
		Size:       d(size),
		QuoteTotal: d(size).Mul(d(price)),
		Reason:     "tp_band_0",
	}
}

func TestPositionStateRepository_GetMissing(t *testing.T) {
	repo := (&PositionStateRepository{}).WithDB(newTestDB(t))

	state, err := repo.Get(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.Nil(t, state)

	count, err := repo.GetDailyTradeCount(context.Background(), "BTC-USD", time.Now())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestPositionStateRepository_InitAnchor(t *testing.T) {
	ctx := context.Background()
	repo := (&PositionStateRepository{}).WithDB(newTestDB(t))

	_, err := repo.InitAnchor(ctx, "BTC-USD", decimal.Zero)
	require.Error(t, err)

	state, err := repo.InitAnchor(ctx, "BTC-USD", d("64250.125"))
	require.NoError(t, err)
	require.True(t, state.HasAnchor())
	require.True(t, state.AnchorPrice.Decimal.Equal(d("64250.125")))
	require.True(t, state.AvgEntryPrice.Decimal.Equal(d("64250.125")))
	require.Equal(t, 0, state.LastTPBand)
}

func TestPositionStateRepository_RebuyLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := (&PositionStateRepository{}).WithDB(newTestDB(t))
	placed := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	order := model.RebuyOrder{
		OrderID:    "abc-1",
		LimitPrice: decimal.NewNullDecimal(d("98.50")),
		Size:       decimal.NewNullDecimal(d("0.20304568")),
		PlacedAt:   placed,
	}
	require.NoError(t, repo.SetRebuyOrder(ctx, "ETH-USD", order))

	order.OrderID = "abc-2"
	err := repo.SetRebuyOrder(ctx, "ETH-USD", order)
	require.True(t, errors.Is(err, ErrRebuyOutstanding), "got %v", err)

	state, err := repo.Get(ctx, "ETH-USD")
	require.NoError(t, err)
	rebuy := state.Rebuy()
	require.NotNil(t, rebuy)
	require.Equal(t, "abc-1", rebuy.OrderID)
	require.True(t, rebuy.LimitPrice.Decimal.Equal(d("98.5")))
	require.True(t, rebuy.Size.Decimal.Equal(d("0.20304568")))
	require.True(t, rebuy.PlacedAt.Equal(placed))

	require.NoError(t, repo.ClearRebuyOrder(ctx, "ETH-USD"))
	state, err = repo.Get(ctx, "ETH-USD")
	require.NoError(t, err)
	require.Nil(t, state.Rebuy())
	require.False(t, state.RebuyPrice.Valid)
}

func TestPositionStateRepository_DailyTradesRollOver(t *testing.T) {
	ctx := context.Background()
	repo := (&PositionStateRepository{}).WithDB(newTestDB(t))
	day1 := time.Date(2025, time.March, 4, 23, 50, 0, 0, time.UTC)
	day2 := day1.Add(20 * time.Minute)

	for i := 1; i <= 3; i++ {
		count, err := repo.IncrementDailyTrades(ctx, "BTC-USD", day1)
		require.NoError(t, err)
		require.Equal(t, i, count)
	}

	count, err := repo.GetDailyTradeCount(ctx, "BTC-USD", day1)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	count, err = repo.GetDailyTradeCount(ctx, "BTC-USD", day2)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	count, err = repo.IncrementDailyTrades(ctx, "BTC-USD", day2)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStore_RecordSell(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithDB(newTestDB(t))
	at := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	_, err := store.States.InitAnchor(ctx, "BTC-USD", d("100"))
	require.NoError(t, err)

	require.NoError(t, store.RecordSell(ctx, sellTrade("BTC-USD", "1.5", "102"), 1, at))

	state, err := store.States.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, 1, state.LastTPBand)
	require.NotNil(t, state.LastTPTimestamp)
	require.True(t, state.LastTPTimestamp.Equal(at))
	require.Equal(t, 1, DailyTradeCount(state, at))

	trades, err := store.Trades.FindRecent(ctx, "BTC-USD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, trades[0].QuoteTotal.Equal(d("153")))

	// a lower band never moves the state backwards
	require.NoError(t, store.RecordSell(ctx, sellTrade("BTC-USD", "1", "103"), 0, at.Add(time.Hour)))
	state, err = store.States.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, 1, state.LastTPBand)
	require.Equal(t, 2, DailyTradeCount(state, at))
}

func TestStore_RecordSellIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithDB(newTestDB(t))
	at := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	_, err := store.States.InitAnchor(ctx, "BTC-USD", d("100"))
	require.NoError(t, err)
	first := sellTrade("BTC-USD", "1.5", "102")
	require.NoError(t, store.RecordSell(ctx, first, 1, at))

	// reusing the primary key fails the insert; nothing else may change
	dup := sellTrade("BTC-USD", "2", "104")
	dup.ID = first.ID
	require.Error(t, store.RecordSell(ctx, dup, 2, at.Add(time.Hour)))

	state, err := store.States.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, 1, state.LastTPBand)
	require.True(t, state.LastTPTimestamp.Equal(at))
	require.Equal(t, 1, DailyTradeCount(state, at))

	trades, err := store.Trades.FindRecent(ctx, "BTC-USD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestStore_RecordRebuyFill(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithDB(newTestDB(t))
	at := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	_, err := store.States.InitAnchor(ctx, "BTC-USD", d("100"))
	require.NoError(t, err)
	require.NoError(t, store.States.SetRebuyOrder(ctx, "BTC-USD", model.RebuyOrder{
		OrderID:    "live-1",
		LimitPrice: decimal.NewNullDecimal(d("98")),
		Size:       decimal.NewNullDecimal(d("0.5")),
		PlacedAt:   at.Add(-time.Hour),
	}))

	trade := &model.Trade{
		ProductID:  "BTC-USD",
		Side:       model.TradeSideBuy,
		OrderType:  model.OrderTypeLimit,
		OrderID:    "live-1",
		Price:      d("98"),
		Size:       d("0.5"),
		QuoteTotal: d("49"),
		Reason:     "rebuy_filled_on_reconcile",
	}
	require.NoError(t, store.RecordRebuyFill(ctx, trade, d("98"), at))

	state, err := store.States.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.True(t, state.AnchorPrice.Decimal.Equal(d("99")), "anchor %s", state.AnchorPrice.Decimal)
	require.Nil(t, state.Rebuy())
	require.Equal(t, 1, DailyTradeCount(state, at))
}

func TestPositionStateRepository_SetRebuyOrderRequiresPositivePrice(t *testing.T) {
	ctx := context.Background()
	repo := (&PositionStateRepository{}).WithDB(newTestDB(t))
	placed := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	for _, price := range []decimal.NullDecimal{{}, decimal.NewNullDecimal(decimal.Zero), decimal.NewNullDecimal(d("-1"))} {
		err := repo.SetRebuyOrder(ctx, "BTC-USD", model.RebuyOrder{OrderID: "live-9", LimitPrice: price, PlacedAt: placed})
		require.True(t, errors.Is(err, ErrInvalidRebuyPrice), "got %v", err)
	}

	state, err := repo.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.Nil(t, state.Rebuy())
}

func TestStore_RecordRebuyFillRejectsNonPositivePrice(t *testing.T) {
	ctx := context.Background()
	store := NewStoreWithDB(newTestDB(t))
	at := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	_, err := store.States.InitAnchor(ctx, "BTC-USD", d("100"))
	require.NoError(t, err)

	trade := &model.Trade{ProductID: "BTC-USD", Side: model.TradeSideBuy, OrderType: model.OrderTypeLimit, OrderID: "live-9"}
	err = store.RecordRebuyFill(ctx, trade, decimal.Zero, at)
	require.True(t, errors.Is(err, ErrInvalidFillPrice), "got %v", err)

	state, err := store.States.Get(ctx, "BTC-USD")
	require.NoError(t, err)
	require.True(t, state.AnchorPrice.Decimal.Equal(d("100")))
	require.Equal(t, 0, DailyTradeCount(state, at))

	trades, err := store.Trades.FindRecent(ctx, "BTC-USD", 5)
	require.NoError(t, err)
	require.Empty(t, trades)
}

func TestBlendAnchor(t *testing.T) {
	require.True(t, BlendAnchor(nil, d("98")).Equal(d("98")))
	require.True(t, BlendAnchor(&model.PositionState{}, d("98")).Equal(d("98")))

	state := &model.PositionState{AnchorPrice: decimal.NewNullDecimal(d("100"))}
	require.True(t, BlendAnchor(state, d("98")).Equal(d("99")))
}

func TestTradeRepository_FindRecentQuery(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&TradeRepository{}).WithDB(mockDB)
	createdAt := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "product_id", "side", "order_type", "order_id", "price", "size", "quote_total", "fee", "reason", "created_at"}).
		AddRow(2, "BTC-USD", "SELL", "market", "o-2", "102", "1.5", "153", "0.918", "tp_band_0", createdAt.Add(time.Hour)).
		AddRow(1, "BTC-USD", "BUY", "limit", "o-1", "98", "0.5", "49", "0", "rebuy_filled_on_reconcile", createdAt)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "trades" WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`)).
		WithArgs("BTC-USD", 5).
		WillReturnRows(rows)

	trades, err := repo.FindRecent(context.Background(), "BTC-USD", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 || trades[0].OrderID != "o-2" {
		t.Fatalf("unexpected trades: %+v", trades)
	}
	if !trades[0].Fee.Equal(d("0.918")) {
		t.Fatalf("fee not parsed exactly: %s", trades[0].Fee)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
