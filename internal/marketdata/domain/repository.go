package domain

import (
	"context"
	"time"
)

// AssetRepository 资产仓储。FindByTicker/Update 在资产不存在时返回 NOT_FOUND 错误
type AssetRepository interface {
	FindByTicker(ctx context.Context, ticker string) (*Asset, error)
	ListActive(ctx context.Context) ([]*Asset, error)
	ListActiveByCategory(ctx context.Context, category string) ([]*Asset, error)
	Categories(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	// Save 按 ticker 插入或整行覆盖
	Save(ctx context.Context, asset *Asset) error
	// Update 在同一事务（行锁）内读取、修改并写回资产
	Update(ctx context.Context, ticker string, fn func(*Asset) error) (*Asset, error)
	// ApplyTick 同 Update，并把 fn 返回的 K 线与资产改价原子地一起写入；任一步失败两者都不落库
	ApplyTick(ctx context.Context, ticker string, fn func(*Asset) (*Bar, error)) (*Asset, *Bar, error)
}

// PriceHistoryRepository 价格历史仓储，只追加
type PriceHistoryRepository interface {
	Append(ctx context.Context, bar *Bar) error
	AppendBatch(ctx context.Context, bars []*Bar) error
	// FindSince 返回 from 之后的 K 线，时间倒序，同一时间按写入顺序倒序
	FindSince(ctx context.Context, ticker string, from time.Time) ([]*Bar, error)
	// FindLatest 返回最新的 n 根 K 线，时间倒序
	FindLatest(ctx context.Context, ticker string, n int) ([]*Bar, error)
	Count(ctx context.Context, ticker string) (int64, error)
}

// Cache 键值缓存，调用方负责吞掉错误
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventPublisher 领域事件发布者
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
