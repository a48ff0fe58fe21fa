// Package domain 行情域的实体、值对象、领域服务（指标计算、行情模拟、熔断器）与仓储接口
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// 资产类别
const (
	CategoryStocks = "STOCKS"
	CategoryCrypto = "CRYPTO"
	CategoryIndex  = "INDEX"
)

var hundred = decimal.NewFromInt(100)

// Asset 可交易资产
type Asset struct {
	// Ticker 唯一代码，大写
	Ticker        string          `json:"ticker"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	LastUpdated   time.Time       `json:"lastUpdated"`
	Active        bool            `json:"active"`
}

// NormalizeTicker 去除空白并转为大写
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// NewAsset 创建新资产，昨收与现价相同
func NewAsset(ticker, name, category string, price decimal.Decimal, now time.Time) (*Asset, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, utils.ValidationError("ticker is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, utils.ValidationError("name is required")
	}
	if strings.TrimSpace(category) == "" {
		return nil, utils.ValidationError("category is required")
	}
	if !price.IsPositive() {
		return nil, utils.ValidationError("price must be positive")
	}
	return &Asset{
		Ticker:        ticker,
		Name:          name,
		Category:      strings.ToUpper(category),
		CurrentPrice:  price,
		PreviousClose: price,
		LastUpdated:   now,
		Active:        true,
	}, nil
}

// Reprice 外部价格更新：现价滚入昨收
func (a *Asset) Reprice(price decimal.Decimal, now time.Time) {
	a.PreviousClose = a.CurrentPrice
	a.CurrentPrice = price
	a.LastUpdated = now
}

// PriceChange 涨跌额
func (a *Asset) PriceChange() decimal.Decimal {
	return a.CurrentPrice.Sub(a.PreviousClose)
}

// PriceChangePercent 涨跌幅（百分比），先保留 4 位小数再乘 100
func (a *Asset) PriceChangePercent() decimal.Decimal {
	if a.PreviousClose.IsZero() {
		return decimal.Zero
	}
	return a.PriceChange().DivRound(a.PreviousClose, 4).Mul(hundred)
}

// Bar 单根 OHLCV 价格记录
type Bar struct {
	Ticker    string          `json:"ticker"`
	Open      decimal.Decimal `json:"openPrice"`
	High      decimal.Decimal `json:"highPrice"`
	Low       decimal.Decimal `json:"lowPrice"`
	Close     decimal.Decimal `json:"closePrice"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// Consistent 检查 high >= max(open, close) 且 low <= min(open, close)
func (b *Bar) Consistent() bool {
	return b.High.GreaterThanOrEqual(decimal.Max(b.Open, b.Close)) &&
		b.Low.LessThanOrEqual(decimal.Min(b.Open, b.Close))
}

// Closes 提取收盘价序列，保持输入顺序
func Closes(bars []*Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
