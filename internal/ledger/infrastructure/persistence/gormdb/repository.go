// Package gormdb 基于 GORM 的交易仓储
package gormdb

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/ledger/domain"
	"github.com/wyfcoding/marketledger/pkg/db"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// TransactionPO 交易表
type TransactionPO struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement:false"`
	UserID     string          `gorm:"column:user_id;type:varchar(64);index:idx_user_ts,priority:1;not null"`
	Ticker     string          `gorm:"column:ticker;type:varchar(20);index;not null"`
	Type       string          `gorm:"column:type;type:varchar(10);not null"`
	Quantity   decimal.Decimal `gorm:"column:quantity;type:decimal(32,8);not null"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(32,8);not null"`
	TotalValue decimal.Decimal `gorm:"column:total_value;type:decimal(40,16);not null"`
	Timestamp  time.Time       `gorm:"column:executed_at;index:idx_user_ts,priority:2;not null"`
	CreatedAt  time.Time
}

func (TransactionPO) TableName() string { return "ledger_transactions" }

func (po *TransactionPO) ToDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:         po.ID,
		UserID:     po.UserID,
		Ticker:     po.Ticker,
		Type:       domain.TransactionType(po.Type),
		Quantity:   po.Quantity,
		Price:      po.Price,
		TotalValue: po.TotalValue,
		Timestamp:  po.Timestamp.UTC(),
	}
}

func (po *TransactionPO) FromDomain(t *domain.Transaction) {
	po.ID = t.ID
	po.UserID = t.UserID
	po.Ticker = t.Ticker
	po.Type = string(t.Type)
	po.Quantity = t.Quantity
	po.Price = t.Price
	po.TotalValue = t.TotalValue
	po.Timestamp = t.Timestamp.UTC()
}

// Models 需要自动迁移的模型
func Models() []any {
	return []any{&TransactionPO{}}
}

type transactionRepository struct {
	db *db.DB
}

// NewTransactionRepository 创建交易仓储
func NewTransactionRepository(d *db.DB) domain.TransactionRepository {
	return &transactionRepository{db: d}
}

func (r *transactionRepository) Save(ctx context.Context, t *domain.Transaction) error {
	var po TransactionPO
	po.FromDomain(t)
	if err := r.db.WithContext(ctx).Create(&po).Error; err != nil {
		return utils.UpstreamError("database save transaction failed", err)
	}
	return nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*domain.Transaction, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&TransactionPO{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, utils.UpstreamError("database count transactions failed", err)
	}

	var pos []*TransactionPO
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("executed_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, 0, utils.UpstreamError("database list transactions failed", err)
	}
	return toDomain(pos), total, nil
}

func (r *transactionRepository) FindAllByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	var pos []*TransactionPO
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("executed_at desc, id desc").
		Find(&pos).Error
	if err != nil {
		return nil, utils.UpstreamError("database list transactions failed", err)
	}
	return toDomain(pos), nil
}

func toDomain(pos []*TransactionPO) []*domain.Transaction {
	res := make([]*domain.Transaction, len(pos))
	for i, po := range pos {
		res[i] = po.ToDomain()
	}
	return res
}
