package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// Report 用户交易汇总，每次请求重新计算
type Report struct {
	UserID                string                     `json:"userId"`
	TotalTransactions     int                        `json:"totalTransactions"`
	TotalBuyTransactions  int                        `json:"totalBuyTransactions"`
	TotalSellTransactions int                        `json:"totalSellTransactions"`
	TotalAmountBought     decimal.Decimal            `json:"totalAmountBought"`
	TotalAmountSold       decimal.Decimal            `json:"totalAmountSold"`
	NetAmount             decimal.Decimal            `json:"netAmount"`
	CurrentPositions      map[string]decimal.Decimal `json:"currentPositions"`
	GeneratedAt           time.Time                  `json:"generatedAt"`
}

// BuildReport 汇总交易。净持仓为零的 ticker 仍保留在 CurrentPositions 中
func BuildReport(userID string, txs []*Transaction, now time.Time) *Report {
	r := &Report{
		UserID:            userID,
		TotalTransactions: len(txs),
		TotalAmountBought: decimal.Zero,
		TotalAmountSold:   decimal.Zero,
		CurrentPositions:  make(map[string]decimal.Decimal),
		GeneratedAt:       now,
	}

	for _, t := range txs {
		if t.Type == TransactionBuy {
			r.TotalBuyTransactions++
			r.TotalAmountBought = r.TotalAmountBought.Add(t.TotalValue)
		} else {
			r.TotalSellTransactions++
			r.TotalAmountSold = r.TotalAmountSold.Add(t.TotalValue)
		}

		pos, ok := r.CurrentPositions[t.Ticker]
		if !ok {
			pos = decimal.Zero
		}
		r.CurrentPositions[t.Ticker] = pos.Add(t.SignedQuantity())
	}

	r.NetAmount = r.TotalAmountSold.Sub(r.TotalAmountBought)
	return r
}

// Page 分页的交易列表，最新在前
type Page struct {
	Content []*Transaction `json:"content"`
	*utils.Pagination
}
