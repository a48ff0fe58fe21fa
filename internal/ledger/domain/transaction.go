// 包 domain 交易台账的领域模型
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// TransactionType 交易方向
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// ParseTransactionType 解析交易方向，大小写不敏感
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TransactionBuy, TransactionSell:
		return t, nil
	}
	return "", utils.ValidationError("type must be BUY or SELL")
}

// Transaction 不可变的交易记录
type Transaction struct {
	// ID 雪花算法生成，JSON 中以字符串输出
	ID       int64           `json:"id,string"`
	UserID   string          `json:"userId"`
	Ticker   string          `json:"ticker"`
	Type     TransactionType `json:"type"`
	Quantity decimal.Decimal `json:"quantity"`
	// Price 成交时的价格快照，不随资产价格变化
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewTransaction 校验输入并创建交易，TotalValue = Quantity * Price，不做额外舍入
func NewTransaction(id int64, userID, ticker string, typ TransactionType, quantity, price decimal.Decimal, now time.Time) (*Transaction, error) {
	userID = strings.TrimSpace(userID)
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	switch {
	case userID == "":
		return nil, utils.ValidationError("userId is required")
	case ticker == "":
		return nil, utils.ValidationError("ticker is required")
	case typ != TransactionBuy && typ != TransactionSell:
		return nil, utils.ValidationError("type must be BUY or SELL")
	case !quantity.IsPositive():
		return nil, utils.ValidationError("quantity must be positive")
	case !price.IsPositive():
		return nil, utils.ValidationError("price must be positive")
	}

	return &Transaction{
		ID:         id,
		UserID:     userID,
		Ticker:     ticker,
		Type:       typ,
		Quantity:   quantity,
		Price:      price,
		TotalValue: quantity.Mul(price),
		Timestamp:  now,
	}, nil
}

// SignedQuantity 持仓方向上的数量：买入为正，卖出为负
func (t *Transaction) SignedQuantity() decimal.Decimal {
	if t.Type == TransactionSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
