package gormdb

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
)

// AssetPO 资产表
type AssetPO struct {
	Ticker        string          `gorm:"column:ticker;type:varchar(20);primaryKey"`
	Name          string          `gorm:"column:name;type:varchar(128);not null"`
	Category      string          `gorm:"column:category;type:varchar(32);index;not null"`
	CurrentPrice  decimal.Decimal `gorm:"column:current_price;type:decimal(32,8);not null"`
	PreviousClose decimal.Decimal `gorm:"column:previous_close;type:decimal(32,8);not null"`
	LastUpdated   time.Time       `gorm:"column:last_updated;not null"`
	Active        bool            `gorm:"column:active;index;not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (AssetPO) TableName() string { return "marketdata_assets" }

func (po *AssetPO) ToDomain() *domain.Asset {
	return &domain.Asset{
		Ticker:        po.Ticker,
		Name:          po.Name,
		Category:      po.Category,
		CurrentPrice:  po.CurrentPrice,
		PreviousClose: po.PreviousClose,
		LastUpdated:   po.LastUpdated.UTC(),
		Active:        po.Active,
	}
}

func (po *AssetPO) FromDomain(a *domain.Asset) {
	po.Ticker = a.Ticker
	po.Name = a.Name
	po.Category = a.Category
	po.CurrentPrice = a.CurrentPrice
	po.PreviousClose = a.PreviousClose
	po.LastUpdated = a.LastUpdated.UTC()
	po.Active = a.Active
}

// PriceBarPO 价格历史表，只追加
type PriceBarPO struct {
	ID        uint64          `gorm:"primarykey"`
	Ticker    string          `gorm:"column:ticker;type:varchar(20);index:idx_ticker_ts,priority:1;not null"`
	Open      decimal.Decimal `gorm:"column:open_price;type:decimal(32,8);not null"`
	High      decimal.Decimal `gorm:"column:high_price;type:decimal(32,8);not null"`
	Low       decimal.Decimal `gorm:"column:low_price;type:decimal(32,8);not null"`
	Close     decimal.Decimal `gorm:"column:close_price;type:decimal(32,8);not null"`
	Volume    int64           `gorm:"column:volume;not null"`
	Timestamp time.Time       `gorm:"column:bar_time;index:idx_ticker_ts,priority:2;not null"`
	CreatedAt time.Time
}

func (PriceBarPO) TableName() string { return "marketdata_price_history" }

func (po *PriceBarPO) ToDomain() *domain.Bar {
	return &domain.Bar{
		Ticker:    po.Ticker,
		Open:      po.Open,
		High:      po.High,
		Low:       po.Low,
		Close:     po.Close,
		Volume:    po.Volume,
		Timestamp: po.Timestamp.UTC(),
	}
}

func (po *PriceBarPO) FromDomain(b *domain.Bar) {
	po.Ticker = b.Ticker
	po.Open = b.Open
	po.High = b.High
	po.Low = b.Low
	po.Close = b.Close
	po.Volume = b.Volume
	po.Timestamp = b.Timestamp.UTC()
}

// Models 需要自动迁移的模型
func Models() []any {
	return []any{&AssetPO{}, &PriceBarPO{}}
}
