package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

var now = time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustTx(t *testing.T, id int64, ticker string, typ TransactionType, qty, price string) *Transaction {
	t.Helper()
	tx, err := NewTransaction(id, "user123", ticker, typ, d(qty), d(price), now)
	require.NoError(t, err)
	return tx
}

func TestNewTransaction(t *testing.T) {
	tx := mustTx(t, 1, " petr4 ", TransactionBuy, "0.12345678", "25.50")
	assert.Equal(t, "PETR4", tx.Ticker)
	assert.Equal(t, "3.148147890", tx.TotalValue.StringFixed(9))
	assert.True(t, tx.TotalValue.Equal(d("3.14814789")))
}

func TestNewTransactionValidation(t *testing.T) {
	cases := []struct {
		user, ticker string
		typ          TransactionType
		qty, price   string
	}{
		{"", "PETR4", TransactionBuy, "1", "1"},
		{"u", "", TransactionBuy, "1", "1"},
		{"u", "PETR4", "HOLD", "1", "1"},
		{"u", "PETR4", TransactionSell, "0", "1"},
		{"u", "PETR4", TransactionSell, "1", "-1"},
	}
	for _, tc := range cases {
		_, err := NewTransaction(1, tc.user, tc.ticker, tc.typ, d(tc.qty), d(tc.price), now)
		assert.True(t, utils.IsValidation(err), "%+v", tc)
	}
}

func TestParseTransactionType(t *testing.T) {
	typ, err := ParseTransactionType("sell")
	require.NoError(t, err)
	assert.Equal(t, TransactionSell, typ)

	_, err = ParseTransactionType("short")
	assert.True(t, utils.IsValidation(err))
}

func TestBuildReport(t *testing.T) {
	txs := []*Transaction{
		mustTx(t, 4, "VALE3", TransactionSell, "5", "66"),
		mustTx(t, 3, "VALE3", TransactionBuy, "5", "65"),
		mustTx(t, 2, "PETR4", TransactionSell, "3", "26"),
		mustTx(t, 1, "PETR4", TransactionBuy, "10", "25"),
	}
	r := BuildReport("user123", txs, now)

	assert.Equal(t, 4, r.TotalTransactions)
	assert.Equal(t, 2, r.TotalBuyTransactions)
	assert.Equal(t, 2, r.TotalSellTransactions)
	assert.True(t, r.TotalAmountBought.Equal(d("575")))
	assert.True(t, r.TotalAmountSold.Equal(d("408")))
	assert.True(t, r.NetAmount.Equal(d("-167")))
	assert.True(t, r.CurrentPositions["PETR4"].Equal(d("7")))

	vale, ok := r.CurrentPositions["VALE3"]
	require.True(t, ok, "zero-net tickers stay in the report")
	assert.True(t, vale.IsZero())
	assert.Equal(t, now, r.GeneratedAt)
}

func TestBuildReportEmpty(t *testing.T) {
	r := BuildReport("nobody", nil, now)
	assert.Zero(t, r.TotalTransactions)
	assert.True(t, r.NetAmount.IsZero())
	assert.Empty(t, r.CurrentPositions)
}

func TestTransactionJSONCarriesStringID(t *testing.T) {
	tx := mustTx(t, 1234567890123456789, "BTC", TransactionBuy, "0.5", "43250")
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"1234567890123456789"`)

	var back Transaction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tx.ID, back.ID)
}
