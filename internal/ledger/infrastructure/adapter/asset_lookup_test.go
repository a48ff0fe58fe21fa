package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	marketdata "github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/internal/marketdata/infrastructure/persistence/memory"
)

type mockAssets struct {
	marketdata.AssetRepository
	mock.Mock
}

func (m *mockAssets) FindByTicker(ctx context.Context, ticker string) (*marketdata.Asset, error) {
	args := m.Called(ctx, ticker)
	a, _ := args.Get(0).(*marketdata.Asset)
	return a, args.Error(1)
}

func TestAssetLookup(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAssetRepository(nil)
	a, err := marketdata.NewAsset("PETR4", "Petrobras PN", marketdata.CategoryStocks, decimal.RequireFromString("25.50"), time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, a))

	lookup := NewAssetLookup(repo)
	ok, err := lookup.AssetExists(ctx, "PETR4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lookup.AssetExists(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssetLookupPropagatesStoreErrors(t *testing.T) {
	m := &mockAssets{}
	m.On("FindByTicker", mock.Anything, "PETR4").Return(nil, errors.New("db down"))

	_, err := NewAssetLookup(m).AssetExists(context.Background(), "PETR4")
	assert.EqualError(t, err, "db down")
	m.AssertExpectations(t)
}
