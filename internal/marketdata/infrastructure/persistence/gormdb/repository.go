// Package gormdb 基于 GORM 的资产与价格历史仓储，支持 mysql/postgres/sqlite
package gormdb

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/db"
	"github.com/wyfcoding/marketledger/pkg/utils"
	"gorm.io/gorm"
)

func dbError(op string, err error) error {
	return utils.UpstreamError("database "+op+" failed", err)
}

type assetRepository struct {
	db *db.DB
}

// NewAssetRepository 创建资产仓储
func NewAssetRepository(d *db.DB) domain.AssetRepository {
	return &assetRepository{db: d}
}

func (r *assetRepository) FindByTicker(ctx context.Context, ticker string) (*domain.Asset, error) {
	var po AssetPO
	if err := r.db.WithContext(ctx).Where("ticker = ?", ticker).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("asset %s not found", ticker)
		}
		return nil, dbError("find asset", err)
	}
	return po.ToDomain(), nil
}

func (r *assetRepository) ListActive(ctx context.Context) ([]*domain.Asset, error) {
	return r.list(r.db.WithContext(ctx).Where("active = ?", true))
}

func (r *assetRepository) ListActiveByCategory(ctx context.Context, category string) ([]*domain.Asset, error) {
	return r.list(r.db.WithContext(ctx).Where("active = ? AND category = ?", true, category))
}

func (r *assetRepository) list(q *gorm.DB) ([]*domain.Asset, error) {
	var pos []*AssetPO
	if err := q.Order("ticker asc").Find(&pos).Error; err != nil {
		return nil, dbError("list assets", err)
	}
	res := make([]*domain.Asset, len(pos))
	for i, po := range pos {
		res[i] = po.ToDomain()
	}
	return res, nil
}

func (r *assetRepository) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).Model(&AssetPO{}).
		Where("active = ?", true).
		Distinct("category").
		Order("category asc").
		Pluck("category", &cats).Error
	if err != nil {
		return nil, dbError("list categories", err)
	}
	return cats, nil
}

func (r *assetRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&AssetPO{}).Count(&n).Error; err != nil {
		return 0, dbError("count assets", err)
	}
	return n, nil
}

func (r *assetRepository) Save(ctx context.Context, asset *domain.Asset) error {
	var po AssetPO
	po.FromDomain(asset)
	if err := r.db.Upsert(ctx, &po, "ticker"); err != nil {
		return dbError("save asset", err)
	}
	return nil
}

func (r *assetRepository) Update(ctx context.Context, ticker string, fn func(*domain.Asset) error) (*domain.Asset, error) {
	return r.modify(ctx, ticker, func(_ *gorm.DB, a *domain.Asset) error { return fn(a) })
}

// ApplyTick 改价与追加 K 线在同一事务内提交
func (r *assetRepository) ApplyTick(ctx context.Context, ticker string, fn func(*domain.Asset) (*domain.Bar, error)) (*domain.Asset, *domain.Bar, error) {
	var bar *domain.Bar
	asset, err := r.modify(ctx, ticker, func(tx *gorm.DB, a *domain.Asset) error {
		b, err := fn(a)
		if err != nil {
			return err
		}
		var po PriceBarPO
		po.FromDomain(b)
		if err := tx.Create(&po).Error; err != nil {
			return dbError("append price bar", err)
		}
		bar = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return asset, bar, nil
}

// modify 行锁读取资产，fn 修改后写回；fn 可在同一 tx 内写其他表
func (r *assetRepository) modify(ctx context.Context, ticker string, fn func(tx *gorm.DB, a *domain.Asset) error) (*domain.Asset, error) {
	var updated *domain.Asset
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		var po AssetPO
		if err := db.ForUpdate(tx).Where("ticker = ?", ticker).First(&po).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("asset %s not found", ticker)
			}
			return dbError("lock asset", err)
		}

		asset := po.ToDomain()
		if err := fn(tx, asset); err != nil {
			return err
		}
		po.FromDomain(asset)
		if err := tx.Save(&po).Error; err != nil {
			return dbError("update asset", err)
		}
		updated = asset
		return nil
	})
	if err != nil {
		if _, ok := utils.AsErrorWrapper(err); ok {
			return nil, err
		}
		return nil, dbError("update asset", err)
	}
	return updated, nil
}

type priceHistoryRepository struct {
	db *db.DB
}

// NewPriceHistoryRepository 创建价格历史仓储
func NewPriceHistoryRepository(d *db.DB) domain.PriceHistoryRepository {
	return &priceHistoryRepository{db: d}
}

func (r *priceHistoryRepository) Append(ctx context.Context, bar *domain.Bar) error {
	var po PriceBarPO
	po.FromDomain(bar)
	if err := r.db.WithContext(ctx).Create(&po).Error; err != nil {
		return dbError("append price bar", err)
	}
	return nil
}

func (r *priceHistoryRepository) AppendBatch(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	pos := make([]*PriceBarPO, len(bars))
	for i, b := range bars {
		pos[i] = &PriceBarPO{}
		pos[i].FromDomain(b)
	}
	if err := r.db.BatchInsert(ctx, pos, 500); err != nil {
		return dbError("append price history", err)
	}
	return nil
}

func (r *priceHistoryRepository) FindSince(ctx context.Context, ticker string, from time.Time) ([]*domain.Bar, error) {
	return r.find(r.db.WithContext(ctx).
		Where("ticker = ? AND bar_time >= ?", ticker, from.UTC()).
		Order("bar_time desc, id desc"))
}

func (r *priceHistoryRepository) FindLatest(ctx context.Context, ticker string, n int) ([]*domain.Bar, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("bar_time desc, id desc").
		Limit(n))
}

func (r *priceHistoryRepository) find(q *gorm.DB) ([]*domain.Bar, error) {
	var pos []*PriceBarPO
	if err := q.Find(&pos).Error; err != nil {
		return nil, dbError("query price history", err)
	}
	res := make([]*domain.Bar, len(pos))
	for i, po := range pos {
		res[i] = po.ToDomain()
	}
	return res, nil
}

func (r *priceHistoryRepository) Count(ctx context.Context, ticker string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&PriceBarPO{}).Where("ticker = ?", ticker).Count(&n).Error; err != nil {
		return 0, dbError("count price history", err)
	}
	return n, nil
}
