package application

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
	"github.com/wyfcoding/marketledger/internal/marketdata/infrastructure/persistence/memory"
	"github.com/wyfcoding/marketledger/pkg/cache"
	"github.com/wyfcoding/marketledger/pkg/metrics"
)

// 2024-03-03 是周日，2024-03-04 13:00 UTC 为圣保罗 10:00
var (
	closedNow = time.Date(2024, 3, 3, 13, 0, 0, 0, time.UTC)
	openNow   = time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC)
)

var errDown = errors.New("connection refused")

// spyAssets 统计调用次数，可注入故障
type spyAssets struct {
	domain.AssetRepository
	mu       sync.Mutex
	finds    int
	fail     error
	tickFail error
}

// ApplyTick 注入 tickFail 时模拟 K 线写入失败：fn 已执行但整体不提交
func (s *spyAssets) ApplyTick(ctx context.Context, ticker string, fn func(*domain.Asset) (*domain.Bar, error)) (*domain.Asset, *domain.Bar, error) {
	s.mu.Lock()
	fail := s.tickFail
	s.mu.Unlock()
	if fail != nil {
		a, err := s.AssetRepository.FindByTicker(ctx, ticker)
		if err != nil {
			return nil, nil, err
		}
		if _, err := fn(a); err != nil {
			return nil, nil, err
		}
		return nil, nil, fail
	}
	return s.AssetRepository.ApplyTick(ctx, ticker, fn)
}

func (s *spyAssets) FindByTicker(ctx context.Context, ticker string) (*domain.Asset, error) {
	s.mu.Lock()
	s.finds++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.AssetRepository.FindByTicker(ctx, ticker)
}

func (s *spyAssets) findCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

type recordedEvent struct {
	topic string
	key   string
	event any
}

type spyPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *spyPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{topic, key, event})
	return nil
}

// brokenCache 所有操作都失败
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errDown
}
func (brokenCache) Delete(context.Context, ...string) error { return errDown }

type fixture struct {
	assets    *spyAssets
	history   *memory.PriceHistoryRepository
	cache     *cache.MemoryCache
	publisher *spyPublisher
	metrics   *metrics.Metrics
	sim       *SimulationService
	quotes    *QuoteService
	breaker   *domain.CircuitBreaker
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	history := memory.NewPriceHistoryRepository()
	f := &fixture{
		assets:    &spyAssets{AssetRepository: memory.NewAssetRepository(history)},
		history:   history,
		cache:     cache.NewMemoryCache(),
		publisher: &spyPublisher{},
		metrics:   metrics.New("test"),
	}
	clock := func() time.Time { return now }

	f.sim = NewSimulationService(f.assets, f.history,
		domain.NewMarketSimulator(rand.New(rand.NewSource(7))),
		f.publisher, f.metrics,
		SimulationConfig{BackfillDays: 10, PriceTopic: "marketdata.price.ticked"})
	f.sim.now = clock

	hours, err := domain.NewMarketHours("America/Sao_Paulo", 9, 18)
	require.NoError(t, err)

	f.breaker = NewQuoteBreaker(domain.BreakerPolicy{
		WindowSize:           10,
		MinimumCalls:         5,
		FailureRateThreshold: 0.5,
		ConsecutiveFailures:  3,
		OpenTimeout:          30 * time.Second,
	}, f.metrics, domain.WithClock(clock))

	f.quotes = NewQuoteService(f.assets, f.history, f.sim, f.cache, f.breaker, hours, f.metrics, 30*time.Second)
	f.quotes.now = clock
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	n, err := f.sim.SeedDefaults(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(DefaultAssets), n)
}
