package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTickedEvent 资产价格变动事件
type PriceTickedEvent struct {
	Ticker        string          `json:"ticker"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	Volume        int64           `json:"volume"`
	// Trigger 触发方：scheduler 或 quote
	Trigger    string    `json:"trigger"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewPriceTickedEvent 从 tick 结果构建事件
func NewPriceTickedEvent(a *Asset, bar *Bar, trigger string) *PriceTickedEvent {
	return &PriceTickedEvent{
		Ticker:        a.Ticker,
		PreviousClose: a.PreviousClose,
		CurrentPrice:  a.CurrentPrice,
		Volume:        bar.Volume,
		Trigger:       trigger,
		OccurredAt:    bar.Timestamp,
	}
}
