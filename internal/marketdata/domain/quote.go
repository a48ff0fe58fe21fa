package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSource 报价来源
type QuoteSource string

const (
	SourceStore    QuoteSource = "STORE"
	SourceFallback QuoteSource = "FALLBACK"
)

// FallbackPrice 降级报价使用的中性占位价
var FallbackPrice = decimal.NewFromInt(100)

// Quote 资产实时报价，仅驻留缓存，不落库
type Quote struct {
	Ticker             string          `json:"ticker"`
	Name               string          `json:"name"`
	Category           string          `json:"category,omitempty"`
	CurrentPrice       decimal.Decimal `json:"currentPrice"`
	PreviousClose      decimal.Decimal `json:"previousClose"`
	PriceChange        decimal.Decimal `json:"priceChange"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	LastUpdated        time.Time       `json:"lastUpdated"`
	Source             QuoteSource     `json:"source"`
}

// NewQuote 根据资产当前状态构建报价
func NewQuote(a *Asset) *Quote {
	return &Quote{
		Ticker:             a.Ticker,
		Name:               a.Name,
		Category:           a.Category,
		CurrentPrice:       a.CurrentPrice,
		PreviousClose:      a.PreviousClose,
		PriceChange:        a.PriceChange(),
		PriceChangePercent: a.PriceChangePercent(),
		LastUpdated:        a.LastUpdated,
		Source:             SourceStore,
	}
}

// NewFallbackQuote 降级报价：固定占位价、零涨跌
func NewFallbackQuote(ticker string, now time.Time) *Quote {
	return &Quote{
		Ticker:             NormalizeTicker(ticker),
		Name:               "Unknown Asset",
		CurrentPrice:       FallbackPrice,
		PreviousClose:      FallbackPrice,
		PriceChange:        decimal.Zero,
		PriceChangePercent: decimal.Zero,
		LastUpdated:        now,
		Source:             SourceFallback,
	}
}
