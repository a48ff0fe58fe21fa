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
	"github.com/wyfcoding/marketledger/internal/ledger/domain"
	"github.com/wyfcoding/marketledger/pkg/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	d, err := db.Init(db.Config{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, d.AutoMigrate(Models()...))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestTransactionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository(newTestDB(t))
	base := time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		tx, err := domain.NewTransaction(int64(100+i), "user123", "PETR4", domain.TransactionBuy,
			decimal.RequireFromString("1.5"), decimal.RequireFromString("25.50"), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, tx))
	}
	other, err := domain.NewTransaction(1, "someone", "BTC", domain.TransactionSell,
		decimal.NewFromInt(1), decimal.NewFromInt(40000), base)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	page, total, err := repo.ListByUser(ctx, "user123", 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.EqualValues(t, 102, page[0].ID)
	assert.EqualValues(t, 101, page[1].ID)
	assert.True(t, page[0].TotalValue.Equal(decimal.RequireFromString("38.25")))
	assert.Equal(t, domain.TransactionBuy, page[0].Type)

	all, err := repo.FindAllByUser(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.EqualValues(t, 104, all[0].ID)

	none, total, err := repo.ListByUser(ctx, "ghost", 0, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
