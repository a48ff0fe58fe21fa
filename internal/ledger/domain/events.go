package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecordedEvent 交易入账事件
type TransactionRecordedEvent struct {
	TransactionID int64           `json:"transactionId,string"`
	UserID        string          `json:"userId"`
	Ticker        string          `json:"ticker"`
	Type          TransactionType `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func NewTransactionRecordedEvent(t *Transaction) *TransactionRecordedEvent {
	return &TransactionRecordedEvent{
		TransactionID: t.ID,
		UserID:        t.UserID,
		Ticker:        t.Ticker,
		Type:          t.Type,
		Quantity:      t.Quantity,
		Price:         t.Price,
		TotalValue:    t.TotalValue,
		OccurredAt:    t.Timestamp,
	}
}
