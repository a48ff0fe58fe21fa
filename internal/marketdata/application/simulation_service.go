package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/metrics"
)

// tick 触发方
const (
	TriggerScheduler = "scheduler"
	TriggerQuote     = "quote"
)

// DefaultAssets 资产表为空时写入的默认资产
var DefaultAssets = []SeedAsset{
	{"PETR4", "Petrobras PN", domain.CategoryStocks, "25.50"},
	{"VALE3", "Vale ON", domain.CategoryStocks, "65.80"},
	{"ITUB4", "Itaú Unibanco PN", domain.CategoryStocks, "22.30"},
	{"BBDC4", "Bradesco PN", domain.CategoryStocks, "18.90"},
	{"WEGE3", "WEG ON", domain.CategoryStocks, "45.20"},
	{"BTC", "Bitcoin", domain.CategoryCrypto, "43250.00"},
	{"ETH", "Ethereum", domain.CategoryCrypto, "2680.50"},
	{"ADA", "Cardano", domain.CategoryCrypto, "0.45"},
	{"IBOV", "Ibovespa", domain.CategoryIndex, "125800.0"},
	{"IFIX", "Índice de Fundos Imobiliários", domain.CategoryIndex, "2850.0"},
}

// SeedAsset 默认资产定义
type SeedAsset struct {
	Ticker   string
	Name     string
	Category string
	Price    string
}

// SimulationConfig 模拟服务配置
type SimulationConfig struct {
	BackfillDays int
	PriceTopic   string
}

// SimulationService 驱动行情模拟：单资产 tick、全量 tick、历史回填与默认资产写入
type SimulationService struct {
	assets    domain.AssetRepository
	history   domain.PriceHistoryRepository
	sim       *domain.MarketSimulator
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	cfg       SimulationConfig
	locks     *tickerLocks
	now       func() time.Time
}

// NewSimulationService 创建模拟服务
func NewSimulationService(
	assets domain.AssetRepository,
	history domain.PriceHistoryRepository,
	sim *domain.MarketSimulator,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	cfg SimulationConfig,
) *SimulationService {
	if cfg.BackfillDays <= 0 {
		cfg.BackfillDays = 90
	}
	return &SimulationService{
		assets:    assets,
		history:   history,
		sim:       sim,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		locks:     newTickerLocks(),
		now:       time.Now,
	}
}

// TickAsset 对单个资产施加一次模拟 tick：改价与追加 K 线在同一事务内完成，成功后发布事件
func (s *SimulationService) TickAsset(ctx context.Context, ticker, trigger string) (*domain.Asset, *domain.Bar, error) {
	ticker = domain.NormalizeTicker(ticker)
	unlock := s.locks.lock(ticker)
	defer unlock()

	asset, bar, err := s.assets.ApplyTick(ctx, ticker, func(a *domain.Asset) (*domain.Bar, error) {
		return s.sim.Tick(a, s.now()), nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.RecordTick(trigger)

	if s.publisher != nil && s.cfg.PriceTopic != "" {
		evt := domain.NewPriceTickedEvent(asset, bar, trigger)
		if err := s.publisher.Publish(ctx, s.cfg.PriceTopic, ticker, evt); err != nil {
			logger.Warn(ctx, "failed to publish price tick", "ticker", ticker, "error", err)
		}
	}

	logger.Debug(ctx, "asset ticked",
		"ticker", ticker,
		"trigger", trigger,
		"previous_close", asset.PreviousClose.String(),
		"current_price", asset.CurrentPrice.String(),
	)
	return asset, bar, nil
}

// TickAll 对所有活跃资产执行一次 tick，单个资产失败不影响其他资产
func (s *SimulationService) TickAll(ctx context.Context) (int, error) {
	assets, err := s.assets.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active assets: %w", err)
	}

	var errs []error
	ticked := 0
	for _, a := range assets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, _, err := s.TickAsset(ctx, a.Ticker, TriggerScheduler); err != nil {
			logger.Error(ctx, "failed to tick asset", "ticker", a.Ticker, "error", err)
			errs = append(errs, err)
			continue
		}
		ticked++
	}
	return ticked, errors.Join(errs...)
}

// BackfillIfEmpty 资产没有任何历史时生成 BackfillDays 天的日线
func (s *SimulationService) BackfillIfEmpty(ctx context.Context, asset *domain.Asset) (int, error) {
	count, err := s.history.Count(ctx, asset.Ticker)
	if err != nil {
		return 0, fmt.Errorf("failed to count price history for %s: %w", asset.Ticker, err)
	}
	if count > 0 {
		return 0, nil
	}

	bars := s.sim.Backfill(asset.Ticker, asset.CurrentPrice, s.cfg.BackfillDays, s.now())
	if err := s.history.AppendBatch(ctx, bars); err != nil {
		return 0, fmt.Errorf("failed to backfill %s: %w", asset.Ticker, err)
	}
	logger.Info(ctx, "price history backfilled", "ticker", asset.Ticker, "bars", len(bars))
	return len(bars), nil
}

// SeedDefaults 资产表为空时写入默认资产
func (s *SimulationService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.assets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	now := s.now()
	for _, seed := range DefaultAssets {
		asset, err := domain.NewAsset(seed.Ticker, seed.Name, seed.Category, decimal.RequireFromString(seed.Price), now)
		if err != nil {
			return 0, err
		}
		if err := s.assets.Save(ctx, asset); err != nil {
			return 0, fmt.Errorf("failed to seed asset %s: %w", seed.Ticker, err)
		}
	}
	logger.Info(ctx, "default assets seeded", "count", len(DefaultAssets))
	return len(DefaultAssets), nil
}

// Bootstrap 启动初始化：可选写入默认资产，然后为无历史的活跃资产回填
func (s *SimulationService) Bootstrap(ctx context.Context, seed bool) error {
	if seed {
		if _, err := s.SeedDefaults(ctx); err != nil {
			return err
		}
	}

	assets, err := s.assets.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active assets: %w", err)
	}
	var errs []error
	for _, a := range assets {
		if _, err := s.BackfillIfEmpty(ctx, a); err != nil {
			logger.Error(ctx, "backfill failed", "ticker", a.Ticker, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
