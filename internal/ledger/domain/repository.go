package domain

import "context"

// TransactionRepository 交易仓储，只追加
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	// ListByUser 分页查询，时间倒序，返回总数
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*Transaction, int64, error)
	// FindAllByUser 返回用户全部交易，时间倒序
	FindAllByUser(ctx context.Context, userID string) ([]*Transaction, error)
}

// AssetLookup 校验资产是否存在
type AssetLookup interface {
	AssetExists(ctx context.Context, ticker string) (bool, error)
}

// EventPublisher 领域事件发布者
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
