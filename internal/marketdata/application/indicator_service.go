package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/pkg/logger"
	"github.com/wyfcoding/marketledger/pkg/metrics"
	"github.com/wyfcoding/marketledger/pkg/utils"
)

// MaxIndicatorPeriods 指标周期上限
const MaxIndicatorPeriods = 500

// IndicatorTTL 指标缓存 TTL
type IndicatorTTL struct {
	Default    time.Duration
	Volatility time.Duration
}

// IndicatorService 读穿缓存的技术指标计算
type IndicatorService struct {
	history domain.PriceHistoryRepository
	cache   domain.Cache
	metrics *metrics.Metrics
	ttl     IndicatorTTL
	now     func() time.Time
}

// NewIndicatorService 创建指标服务
func NewIndicatorService(history domain.PriceHistoryRepository, cache domain.Cache, m *metrics.Metrics, ttl IndicatorTTL) *IndicatorService {
	if ttl.Default <= 0 {
		ttl.Default = 5 * time.Minute
	}
	if ttl.Volatility <= 0 {
		ttl.Volatility = 10 * time.Minute
	}
	return &IndicatorService{
		history: history,
		cache:   cache,
		metrics: m,
		ttl:     ttl,
		now:     time.Now,
	}
}

// GetRSI 相对强弱指数
func (s *IndicatorService) GetRSI(ctx context.Context, ticker string, periods int) (*domain.IndicatorResult, error) {
	return s.Get(ctx, domain.IndicatorRSI, ticker, periods)
}

// GetSMA 简单移动平均
func (s *IndicatorService) GetSMA(ctx context.Context, ticker string, periods int) (*domain.IndicatorResult, error) {
	return s.Get(ctx, domain.IndicatorSMA, ticker, periods)
}

// GetVolatility 波动率
func (s *IndicatorService) GetVolatility(ctx context.Context, ticker string, periods int) (*domain.IndicatorResult, error) {
	return s.Get(ctx, domain.IndicatorVolatility, ticker, periods)
}

// Get 先查缓存，未命中时读取最新 K 线计算并回写
func (s *IndicatorService) Get(ctx context.Context, kind domain.IndicatorKind, ticker string, periods int) (*domain.IndicatorResult, error) {
	ticker = domain.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, utils.ValidationError("ticker is required")
	}
	if periods < 1 || periods > MaxIndicatorPeriods {
		return nil, utils.ValidationError("periods must be between 1 and %d", MaxIndicatorPeriods)
	}

	key := IndicatorCacheKey(kind, ticker, periods)
	if res := s.cached(ctx, kind, key); res != nil {
		return res, nil
	}

	bars, err := s.history.FindLatest(ctx, ticker, kind.Window(periods))
	if err != nil {
		return nil, err
	}

	res, err := domain.Compute(kind, ticker, bars, periods, s.now())
	if err != nil {
		return nil, err
	}

	ttl := s.ttl.Default
	if kind == domain.IndicatorVolatility {
		ttl = s.ttl.Volatility
	}
	if data, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(ctx, key, data, ttl); err != nil {
			logger.Warn(ctx, "failed to cache indicator", "key", key, "error", err)
			s.metrics.RecordCache(string(kind), "error")
		}
	}
	return res, nil
}

func (s *IndicatorService) cached(ctx context.Context, kind domain.IndicatorKind, key string) *domain.IndicatorResult {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "indicator cache read failed", "key", key, "error", err)
		s.metrics.RecordCache(string(kind), "error")
		return nil
	}
	if !ok {
		s.metrics.RecordCache(string(kind), "miss")
		return nil
	}
	var res domain.IndicatorResult
	if err := json.Unmarshal(data, &res); err != nil {
		s.metrics.RecordCache(string(kind), "error")
		return nil
	}
	s.metrics.RecordCache(string(kind), "hit")
	return &res
}
