package gormdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/db"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

var testNow = time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.Init(db.Config{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, d.AutoMigrate(Models()...))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func mustAsset(t *testing.T, ticker, category, price string) *domain.Asset {
	t.Helper()
	a, err := domain.NewAsset(ticker, ticker+" name", category, decimal.RequireFromString(price), testNow)
	require.NoError(t, err)
	return a
}

func TestAssetRepositorySaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAssetRepository(newTestDB(t))

	require.NoError(t, repo.Save(ctx, mustAsset(t, "PETR4", domain.CategoryStocks, "25.50")))
	require.NoError(t, repo.Save(ctx, mustAsset(t, "BTC", domain.CategoryCrypto, "43250.00")))

	got, err := repo.FindByTicker(ctx, "PETR4")
	require.NoError(t, err)
	assert.True(t, got.CurrentPrice.Equal(decimal.RequireFromString("25.50")))
	assert.True(t, got.LastUpdated.Equal(testNow))
	assert.True(t, got.Active)

	_, err = repo.FindByTicker(ctx, "NOPE")
	assert.True(t, utils.IsNotFound(err))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.CategoryCrypto, domain.CategoryStocks}, cats)

	stocks, err := repo.ListActiveByCategory(ctx, domain.CategoryStocks)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "PETR4", stocks[0].Ticker)

	// 再次 Save 覆盖已有行
	again := mustAsset(t, "PETR4", domain.CategoryStocks, "26.00")
	require.NoError(t, repo.Save(ctx, again))
	got, err = repo.FindByTicker(ctx, "PETR4")
	require.NoError(t, err)
	assert.True(t, got.CurrentPrice.Equal(decimal.RequireFromString("26")))
}

func TestAssetRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewAssetRepository(newTestDB(t))
	require.NoError(t, repo.Save(ctx, mustAsset(t, "VALE3", domain.CategoryStocks, "65.80")))

	updated, err := repo.Update(ctx, "VALE3", func(a *domain.Asset) error {
		a.Reprice(decimal.RequireFromString("66.10"), testNow.Add(time.Minute))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.PreviousClose.Equal(decimal.RequireFromString("65.80")))

	stored, err := repo.FindByTicker(ctx, "VALE3")
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(decimal.RequireFromString("66.10")))
	assert.True(t, stored.PreviousClose.Equal(decimal.RequireFromString("65.80")))

	_, err = repo.Update(ctx, "MISSING", func(*domain.Asset) error { return nil })
	assert.True(t, utils.IsNotFound(err))

	// fn 返回错误时回滚
	_, err = repo.Update(ctx, "VALE3", func(a *domain.Asset) error {
		a.Reprice(decimal.NewFromInt(1), testNow)
		return utils.ValidationError("rejected")
	})
	assert.True(t, utils.IsValidation(err))
	stored, err = repo.FindByTicker(ctx, "VALE3")
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(decimal.RequireFromString("66.10")))
}

func bar(ticker string, ts time.Time, closePrice string) *domain.Bar {
	c := decimal.RequireFromString(closePrice)
	return &domain.Bar{Ticker: ticker, Open: c, High: c, Low: c, Close: c, Volume: 1000, Timestamp: ts}
}

func TestPriceHistoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceHistoryRepository(newTestDB(t))

	var bars []*domain.Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, bar("PETR4", testNow.AddDate(0, 0, -9+i), fmt.Sprintf("%d.00", 20+i)))
	}
	require.NoError(t, repo.AppendBatch(ctx, bars))
	require.NoError(t, repo.Append(ctx, bar("VALE3", testNow, "65.80")))

	n, err := repo.Count(ctx, "PETR4")
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)

	latest, err := repo.FindLatest(ctx, "PETR4", 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.True(t, latest[0].Close.Equal(decimal.NewFromInt(29)))
	assert.True(t, latest[2].Close.Equal(decimal.NewFromInt(27)))
	assert.True(t, latest[0].Timestamp.After(latest[1].Timestamp))

	since, err := repo.FindSince(ctx, "PETR4", testNow.AddDate(0, 0, -4))
	require.NoError(t, err)
	assert.Len(t, since, 5)

	empty, err := repo.FindLatest(ctx, "NONE", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAssetRepositoryApplyTickIsAtomic(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	assets := NewAssetRepository(d)
	history := NewPriceHistoryRepository(d)
	require.NoError(t, assets.Save(ctx, mustAsset(t, "PETR4", domain.CategoryStocks, "25.50")))

	tick := func(price string) func(*domain.Asset) (*domain.Bar, error) {
		return func(a *domain.Asset) (*domain.Bar, error) {
			a.Reprice(decimal.RequireFromString(price), testNow)
			return bar(a.Ticker, testNow, price), nil
		}
	}

	updated, b, err := assets.ApplyTick(ctx, "PETR4", tick("25.71"))
	require.NoError(t, err)
	assert.True(t, updated.CurrentPrice.Equal(decimal.RequireFromString("25.71")))
	assert.True(t, b.Close.Equal(decimal.RequireFromString("25.71")))
	n, err := history.Count(ctx, "PETR4")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// K 线写入失败时改价一并回滚
	require.NoError(t, d.Migrator().DropTable(&PriceBarPO{}))
	_, _, err = assets.ApplyTick(ctx, "PETR4", tick("30.00"))
	require.Error(t, err)
	assert.Equal(t, utils.CodeUpstreamUnavailable, utils.CodeOf(err))

	stored, err := assets.FindByTicker(ctx, "PETR4")
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(decimal.RequireFromString("25.71")))
	assert.True(t, stored.PreviousClose.Equal(decimal.RequireFromString("25.50")))

	_, _, err = assets.ApplyTick(ctx, "NOPE", tick("1"))
	assert.True(t, utils.IsNotFound(err))
}

func TestPriceHistoryEqualTimestampsNewestWriteFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceHistoryRepository(newTestDB(t))
	for _, c := range []string{"10", "11", "12"} {
		require.NoError(t, repo.Append(ctx, bar("BTC", testNow, c)))
	}

	latest, err := repo.FindLatest(ctx, "BTC", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.True(t, latest[0].Close.Equal(decimal.NewFromInt(12)))
	assert.True(t, latest[1].Close.Equal(decimal.NewFromInt(11)))

	since, err := repo.FindSince(ctx, "BTC", testNow)
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.True(t, since[2].Close.Equal(decimal.NewFromInt(10)))
}
