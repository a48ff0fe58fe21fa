package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RandomSource 随机数来源，*rand.Rand 满足该接口
type RandomSource interface {
	Float64() float64
	Int63n(n int64) int64
}

var (
	minTick = decimal.RequireFromString("0.01")
	half    = decimal.RequireFromString("0.5")
	one     = decimal.NewFromInt(1)

	tickRange     = decimal.RequireFromString("0.02")  // [-1%, +1%]
	backfillRange = decimal.RequireFromString("0.05")  // [-2.5%, +2.5%]
	openBase      = decimal.RequireFromString("0.995") // [0.995, 1.005)
	openSpan      = decimal.RequireFromString("0.01")
	highSpan      = decimal.RequireFromString("0.02") // [1.0, 1.02)
	lowBase       = decimal.RequireFromString("0.98") // [0.98, 1.0)
	lowSpan       = decimal.RequireFromString("0.02")
)

// 成交量区间
const (
	tickVolumeBase     = 50_000
	tickVolumeSpan     = 500_000
	backfillVolumeBase = 100_000
	backfillVolumeSpan = 1_000_000
)

// MarketSimulator 生成模拟行情：单次 tick 与 N 日历史回填
type MarketSimulator struct {
	mu  sync.Mutex
	rnd RandomSource
}

// NewMarketSimulator 创建行情模拟器
func NewMarketSimulator(rnd RandomSource) *MarketSimulator {
	return &MarketSimulator{rnd: rnd}
}

// Tick 对资产施加一次 [-1%, +1%] 的随机波动，原地修改资产并返回对应的 K 线
func (s *MarketSimulator) Tick(a *Asset, now time.Time) *Bar {
	s.mu.Lock()
	variation := s.uniform(tickRange)
	volume := tickVolumeBase + s.rnd.Int63n(tickVolumeSpan)
	s.mu.Unlock()

	newPrice := floorTick(a.CurrentPrice.Mul(one.Add(variation)).Round(2))

	a.PreviousClose = a.CurrentPrice
	a.CurrentPrice = newPrice
	a.LastUpdated = now

	return &Bar{
		Ticker:    a.Ticker,
		Open:      a.PreviousClose,
		Close:     a.CurrentPrice,
		High:      decimal.Max(a.CurrentPrice, a.PreviousClose),
		Low:       decimal.Min(a.CurrentPrice, a.PreviousClose),
		Volume:    volume,
		Timestamp: now,
	}
}

// Backfill 从 now-days 开始逐日随机游走生成 days+1 根日线，按时间升序返回。
// 每日收盘价作为次日的基准价。
func (s *MarketSimulator) Backfill(ticker string, startPrice decimal.Decimal, days int, now time.Time) []*Bar {
	if days <= 0 || !startPrice.IsPositive() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := now.AddDate(0, 0, -days)
	cursor := startPrice
	bars := make([]*Bar, 0, days+1)

	for d := 0; d <= days; d++ {
		closePrice := floorTick(cursor.Mul(one.Add(s.uniform(backfillRange))).Round(2))
		openPrice := floorTick(closePrice.Mul(openBase.Add(s.scaled(openSpan))).Round(2))
		high := closePrice.Mul(one.Add(s.scaled(highSpan))).Round(2)
		low := floorTick(closePrice.Mul(lowBase.Add(s.scaled(lowSpan))).Round(2))
		volume := backfillVolumeBase + s.rnd.Int63n(backfillVolumeSpan)

		bars = append(bars, &Bar{
			Ticker:    ticker,
			Open:      openPrice,
			Close:     closePrice,
			High:      decimal.Max(high, openPrice, closePrice),
			Low:       decimal.Min(low, openPrice, closePrice),
			Volume:    volume,
			Timestamp: start.AddDate(0, 0, d),
		})
		cursor = closePrice
	}
	return bars
}

// uniform 返回 (r-0.5)*span，即 [-span/2, span/2)
func (s *MarketSimulator) uniform(span decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(s.rnd.Float64()).Sub(half).Mul(span)
}

// scaled 返回 r*span，即 [0, span)
func (s *MarketSimulator) scaled(span decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(s.rnd.Float64()).Mul(span)
}

func floorTick(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(minTick) {
		return minTick
	}
	return p
}
