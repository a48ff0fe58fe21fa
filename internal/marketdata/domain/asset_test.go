package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

func TestPriceChangeUnchanged(t *testing.T) {
	a := &Asset{
		Ticker:        "PETR4",
		CurrentPrice:  decimal.RequireFromString("25.50"),
		PreviousClose: decimal.RequireFromString("25.50"),
	}
	q := NewQuote(a)
	assert.True(t, q.PriceChange.IsZero())
	assert.True(t, q.PriceChangePercent.IsZero())
	assert.Equal(t, SourceStore, q.Source)
}

func TestPriceChangePercent(t *testing.T) {
	a := &Asset{CurrentPrice: decimal.NewFromInt(27), PreviousClose: decimal.NewFromInt(25)}
	assertDecimal(t, "2", a.PriceChange())
	assertDecimal(t, "8", a.PriceChangePercent())

	// 1/12 = 0.0833（4 位小数）后乘 100
	a = &Asset{CurrentPrice: decimal.NewFromInt(13), PreviousClose: decimal.NewFromInt(12)}
	assertDecimal(t, "8.33", a.PriceChangePercent())

	a = &Asset{CurrentPrice: decimal.NewFromInt(13), PreviousClose: decimal.Zero}
	assert.True(t, a.PriceChangePercent().IsZero())
}

func TestNewAssetAndReprice(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	a, err := NewAsset(" petr4 ", "Petrobras PN", "stocks", decimal.RequireFromString("25.50"), now)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", a.Ticker)
	assert.Equal(t, CategoryStocks, a.Category)
	assert.True(t, a.Active)
	assert.True(t, a.PreviousClose.Equal(a.CurrentPrice))

	later := now.Add(time.Hour)
	a.Reprice(decimal.RequireFromString("26.00"), later)
	assertDecimal(t, "25.50", a.PreviousClose)
	assertDecimal(t, "26.00", a.CurrentPrice)
	assert.Equal(t, later, a.LastUpdated)

	_, err = NewAsset("", "x", "STOCKS", decimal.NewFromInt(1), now)
	assert.True(t, utils.IsValidation(err))
	_, err = NewAsset("X", "x", "STOCKS", decimal.Zero, now)
	assert.True(t, utils.IsValidation(err))
	_, err = NewAsset("X", "", "STOCKS", decimal.NewFromInt(1), now)
	assert.True(t, utils.IsValidation(err))
}

func TestFallbackQuote(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	q := NewFallbackQuote("vale3", now)
	assert.Equal(t, "VALE3", q.Ticker)
	assert.Equal(t, "Unknown Asset", q.Name)
	assert.Equal(t, SourceFallback, q.Source)
	assertDecimal(t, "100", q.CurrentPrice)
	assertDecimal(t, "100", q.PreviousClose)
	assert.True(t, q.PriceChange.IsZero())
	assert.True(t, q.PriceChangePercent.IsZero())
	assert.Equal(t, now, q.LastUpdated)
}

func TestBarConsistent(t *testing.T) {
	b := &Bar{Open: decimal.NewFromInt(10), Close: decimal.NewFromInt(11), High: decimal.NewFromInt(11), Low: decimal.NewFromInt(10)}
	assert.True(t, b.Consistent())
	b.High = decimal.RequireFromString("10.5")
	assert.False(t, b.Consistent())
}
