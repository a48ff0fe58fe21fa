// Package adapter 台账对行情上下文的防腐层
package adapter

import (
	"context"

	marketdata "github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// AssetLookup 通过行情资产仓储判断 ticker 是否存在
type AssetLookup struct {
	assets marketdata.AssetRepository
}

func NewAssetLookup(assets marketdata.AssetRepository) *AssetLookup {
	return &AssetLookup{assets: assets}
}

func (l *AssetLookup) AssetExists(ctx context.Context, ticker string) (bool, error) {
	if _, err := l.assets.FindByTicker(ctx, ticker); err != nil {
		if utils.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
