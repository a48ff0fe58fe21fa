// Package memory 进程内资产与价格历史仓储，用于无数据库运行和测试
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// AssetRepository 内存资产仓储，读写均返回副本。
// ApplyTick 产生的 K 线写入关联的 history
type AssetRepository struct {
	mu      sync.RWMutex
	assets  map[string]domain.Asset
	history *PriceHistoryRepository
}

// NewAssetRepository 创建内存资产仓储，history 为 nil 时使用私有的价格历史
func NewAssetRepository(history *PriceHistoryRepository) *AssetRepository {
	if history == nil {
		history = NewPriceHistoryRepository()
	}
	return &AssetRepository{assets: make(map[string]domain.Asset), history: history}
}

func (r *AssetRepository) FindByTicker(_ context.Context, ticker string) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[ticker]
	if !ok {
		return nil, utils.NotFoundError("asset %s not found", ticker)
	}
	return &a, nil
}

func (r *AssetRepository) ListActive(_ context.Context) ([]*domain.Asset, error) {
	return r.filter(func(a *domain.Asset) bool { return a.Active }), nil
}

func (r *AssetRepository) ListActiveByCategory(_ context.Context, category string) ([]*domain.Asset, error) {
	return r.filter(func(a *domain.Asset) bool { return a.Active && a.Category == category }), nil
}

func (r *AssetRepository) filter(keep func(*domain.Asset) bool) []*domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*domain.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		a := a
		if keep(&a) {
			res = append(res, &a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Ticker < res[j].Ticker })
	return res
}

func (r *AssetRepository) Categories(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	cats := make([]string, 0)
	for _, a := range r.assets {
		if _, ok := seen[a.Category]; ok || !a.Active {
			continue
		}
		seen[a.Category] = struct{}{}
		cats = append(cats, a.Category)
	}
	sort.Strings(cats)
	return cats, nil
}

func (r *AssetRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.assets)), nil
}

func (r *AssetRepository) Save(_ context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset.Ticker] = *asset
	return nil
}

func (r *AssetRepository) Update(_ context.Context, ticker string, fn func(*domain.Asset) error) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[ticker]
	if !ok {
		return nil, utils.NotFoundError("asset %s not found", ticker)
	}
	if err := fn(&a); err != nil {
		return nil, err
	}
	r.assets[ticker] = a
	out := a
	return &out, nil
}

// ApplyTick 资产锁内生成 K 线，K 线写入后才提交改价
func (r *AssetRepository) ApplyTick(_ context.Context, ticker string, fn func(*domain.Asset) (*domain.Bar, error)) (*domain.Asset, *domain.Bar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[ticker]
	if !ok {
		return nil, nil, utils.NotFoundError("asset %s not found", ticker)
	}
	bar, err := fn(&a)
	if err != nil {
		return nil, nil, err
	}

	r.history.mu.Lock()
	r.history.insert(*bar)
	r.history.mu.Unlock()

	r.assets[ticker] = a
	out := a
	return &out, bar, nil
}

// PriceHistoryRepository 内存价格历史，按 ticker 保存按时间升序的 K 线
type PriceHistoryRepository struct {
	mu   sync.RWMutex
	bars map[string][]domain.Bar
}

// NewPriceHistoryRepository 创建内存价格历史仓储
func NewPriceHistoryRepository() *PriceHistoryRepository {
	return &PriceHistoryRepository{bars: make(map[string][]domain.Bar)}
}

func (r *PriceHistoryRepository) Append(_ context.Context, bar *domain.Bar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insert(*bar)
	return nil
}

func (r *PriceHistoryRepository) AppendBatch(_ context.Context, bars []*domain.Bar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bars {
		r.insert(*b)
	}
	return nil
}

func (r *PriceHistoryRepository) insert(b domain.Bar) {
	series := r.bars[b.Ticker]
	i := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(b.Timestamp) })
	series = append(series, domain.Bar{})
	copy(series[i+1:], series[i:])
	series[i] = b
	r.bars[b.Ticker] = series
}

func (r *PriceHistoryRepository) FindSince(_ context.Context, ticker string, from time.Time) ([]*domain.Bar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	series := r.bars[ticker]
	res := make([]*domain.Bar, 0)
	for i := len(series) - 1; i >= 0 && !series[i].Timestamp.Before(from); i-- {
		b := series[i]
		res = append(res, &b)
	}
	return res, nil
}

func (r *PriceHistoryRepository) FindLatest(_ context.Context, ticker string, n int) ([]*domain.Bar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 {
		return nil, nil
	}
	series := r.bars[ticker]
	res := make([]*domain.Bar, 0, min(n, len(series)))
	for i := len(series) - 1; i >= 0 && len(res) < n; i-- {
		b := series[i]
		res = append(res, &b)
	}
	return res, nil
}

func (r *PriceHistoryRepository) Count(_ context.Context, ticker string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.bars[ticker])), nil
}
