package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/metrics"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// DefaultHistoryDays 历史区间无法解析时的默认天数
const DefaultHistoryDays = 30

// QuoteService 报价编排：缓存 -> 存储 -> 交易时段内模拟 tick -> 回写缓存，整体受熔断器保护
type QuoteService struct {
	assets   domain.AssetRepository
	history  domain.PriceHistoryRepository
	sim      *SimulationService
	cache    domain.Cache
	breaker  *domain.CircuitBreaker
	hours    *domain.MarketHours
	metrics  *metrics.Metrics
	quoteTTL time.Duration
	now      func() time.Time
}

// NewQuoteService 创建报价服务
func NewQuoteService(
	assets domain.AssetRepository,
	history domain.PriceHistoryRepository,
	sim *SimulationService,
	cache domain.Cache,
	breaker *domain.CircuitBreaker,
	hours *domain.MarketHours,
	m *metrics.Metrics,
	quoteTTL time.Duration,
) *QuoteService {
	if quoteTTL <= 0 {
		quoteTTL = 30 * time.Second
	}
	return &QuoteService{
		assets:   assets,
		history:  history,
		sim:      sim,
		cache:    cache,
		breaker:  breaker,
		hours:    hours,
		metrics:  m,
		quoteTTL: quoteTTL,
		now:      time.Now,
	}
}

// NewQuoteBreaker 创建报价链路熔断器：资源不存在和参数错误不计为失败，状态迁移记录到指标
func NewQuoteBreaker(policy domain.BreakerPolicy, m *metrics.Metrics, opts ...domain.BreakerOption) *domain.CircuitBreaker {
	policy.IsSuccessful = func(err error) bool {
		return err == nil || utils.IsNotFound(err) || utils.IsValidation(err)
	}
	hook := domain.WithStateChangeHook(func(name string, _, to domain.CircuitBreakerState) {
		m.RecordBreakerTransition(name, to.String())
	})
	opts = append([]domain.BreakerOption{hook}, opts...)
	return domain.NewCircuitBreaker("quote", policy, logger.Get(), opts...)
}

// GetQuote 获取报价。资产不存在返回 NOT_FOUND；存储故障或熔断期间返回降级报价
func (s *QuoteService) GetQuote(ctx context.Context, ticker string) (*domain.Quote, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, utils.ValidationError("ticker is required")
	}

	var quote *domain.Quote
	err := s.breaker.Execute(func() error {
		q, err := s.loadQuote(ctx, ticker)
		quote = q
		return err
	})
	switch {
	case err == nil:
		return quote, nil
	case utils.IsNotFound(err):
		return nil, err
	case errors.Is(err, domain.ErrCircuitOpen):
		logger.Debug(ctx, "quote circuit open, serving fallback", "ticker", ticker)
	default:
		logger.Warn(ctx, "quote pipeline failed, serving fallback", "ticker", ticker, "error", err)
	}

	s.metrics.RecordQuote(string(domain.SourceFallback))
	return domain.NewFallbackQuote(ticker, s.now()), nil
}

func (s *QuoteService) loadQuote(ctx context.Context, ticker string) (*domain.Quote, error) {
	key := QuoteCacheKey(ticker)
	if q := s.cachedQuote(ctx, key); q != nil {
		s.metrics.RecordQuote("CACHE")
		return q, nil
	}

	var (
		asset *domain.Asset
		err   error
	)
	if s.hours != nil && s.hours.IsOpen(s.now()) {
		asset, _, err = s.sim.TickAsset(ctx, ticker, TriggerQuote)
	} else {
		asset, err = s.assets.FindByTicker(ctx, ticker)
	}
	if err != nil {
		return nil, err
	}

	quote := domain.NewQuote(asset)
	if data, err := json.Marshal(quote); err == nil {
		if err := s.cache.Set(ctx, key, data, s.quoteTTL); err != nil {
			logger.Warn(ctx, "failed to cache quote", "key", key, "error", err)
			s.metrics.RecordCache("quote", "error")
		}
	}
	s.metrics.RecordQuote(string(domain.SourceStore))
	return quote, nil
}

// cachedQuote 读缓存，任何缓存错误都视为未命中
func (s *QuoteService) cachedQuote(ctx context.Context, key string) *domain.Quote {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "quote cache read failed", "key", key, "error", err)
		s.metrics.RecordCache("quote", "error")
		return nil
	}
	if !ok {
		s.metrics.RecordCache("quote", "miss")
		return nil
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		logger.Warn(ctx, "discarding malformed cached quote", "key", key, "error", err)
		s.metrics.RecordCache("quote", "error")
		return nil
	}
	s.metrics.RecordCache("quote", "hit")
	return &q
}

// GetHistory 返回区间内的 K 线（时间倒序）。rng 形如 30d / 6m / 1y，非法时取 30 天
func (s *QuoteService) GetHistory(ctx context.Context, ticker, rng string) ([]*domain.Bar, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, utils.ValidationError("ticker is required")
	}
	now := s.now()
	bars, err := s.history.FindSince(ctx, ticker, ParseRange(rng, now))
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// ParseRange 将 <N>d|<N>m|<N>y 转为起始时间，N = 0 即 now；无法解析或 N < 0 时回退到 30 天前
func ParseRange(rng string, now time.Time) time.Time {
	fallback := now.AddDate(0, 0, -DefaultHistoryDays)

	rng = strings.ToLower(strings.TrimSpace(rng))
	if len(rng) < 2 {
		return fallback
	}
	n, err := strconv.Atoi(rng[:len(rng)-1])
	if err != nil || n < 0 {
		return fallback
	}

	switch rng[len(rng)-1] {
	case 'd':
		return now.AddDate(0, 0, -n)
	case 'm':
		return now.AddDate(0, -n, 0)
	case 'y':
		return now.AddDate(-n, 0, 0)
	}
	return fallback
}

// UpsertAssetCommand 新增或更新资产价格
type UpsertAssetCommand struct {
	Ticker   string
	Name     string
	Category string
	Price    decimal.Decimal
}

// UpsertAsset 存在则现价滚入昨收，不存在则创建
func (s *QuoteService) UpsertAsset(ctx context.Context, cmd UpsertAssetCommand) (*domain.Asset, error) {
	fresh, err := domain.NewAsset(cmd.Ticker, cmd.Name, cmd.Category, cmd.Price, s.now())
	if err != nil {
		return nil, err
	}

	unlock := s.sim.locks.lock(fresh.Ticker)
	defer unlock()

	asset, err := s.assets.Update(ctx, fresh.Ticker, func(a *domain.Asset) error {
		a.Reprice(fresh.CurrentPrice, fresh.LastUpdated)
		return nil
	})
	if utils.IsNotFound(err) {
		if err := s.assets.Save(ctx, fresh); err != nil {
			return nil, err
		}
		asset = fresh
	} else if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, QuoteCacheKey(asset.Ticker)); err != nil {
		logger.Warn(ctx, "failed to invalidate cached quote", "ticker", asset.Ticker, "error", err)
	}
	logger.Info(ctx, "asset upserted", "ticker", asset.Ticker, "price", asset.CurrentPrice.String())
	return asset, nil
}

// ListAssets 返回活跃资产，category 非空时按类别过滤
func (s *QuoteService) ListAssets(ctx context.Context, category string) ([]*domain.Asset, error) {
	if category = strings.ToUpper(strings.TrimSpace(category)); category != "" {
		return s.assets.ListActiveByCategory(ctx, category)
	}
	return s.assets.ListActive(ctx)
}

// Categories 返回活跃资产的类别
func (s *QuoteService) Categories(ctx context.Context) ([]string, error) {
	return s.assets.Categories(ctx)
}
