package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorKind 技术指标类型
type IndicatorKind string

const (
	IndicatorRSI        IndicatorKind = "RSI"
	IndicatorSMA        IndicatorKind = "SMA"
	IndicatorVolatility IndicatorKind = "VOLATILITY"
)

// 指标默认周期
const (
	DefaultRSIPeriods        = 14
	DefaultSMAPeriods        = 20
	DefaultVolatilityPeriods = 30
)

// 数据不足时的返回值
var (
	NeutralRSI = decimal.NewFromInt(50)

	rsiOverbought = decimal.NewFromInt(70)
	rsiOversold   = decimal.NewFromInt(30)
	volHigh       = decimal.RequireFromString("0.05")
	volModerate   = decimal.RequireFromString("0.02")
)

// IndicatorResult 指标计算结果
type IndicatorResult struct {
	Ticker         string          `json:"ticker"`
	Indicator      IndicatorKind   `json:"indicator"`
	Value          decimal.Decimal `json:"value"`
	Periods        int             `json:"periods"`
	Signal         string          `json:"signal"`
	Interpretation string          `json:"interpretation"`
	CalculatedAt   time.Time       `json:"calculatedAt"`
}

// RSI 相对强弱指数。closes 为最新在前的收盘价序列，需要 periods+1 个数据点。
// 第 i 个差值为 closes[i-1] - closes[i]，沿检索顺序配对。
func RSI(closes []decimal.Decimal, periods int) decimal.Decimal {
	if periods < 1 || len(closes) < periods+1 {
		return NeutralRSI
	}

	gains, losses := decimal.Zero, decimal.Zero
	for i := 1; i <= periods; i++ {
		delta := closes[i-1].Sub(closes[i])
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else {
			losses = losses.Add(delta.Abs())
		}
	}

	n := decimal.NewFromInt(int64(periods))
	avgGain := gains.DivRound(n, 4)
	avgLoss := losses.DivRound(n, 4)
	if avgLoss.IsZero() {
		return hundred
	}

	rs := avgGain.DivRound(avgLoss, 4)
	return hundred.Sub(hundred.DivRound(one.Add(rs), 2))
}

// SMA 简单移动平均，取最新的 periods 个收盘价
func SMA(closes []decimal.Decimal, periods int) decimal.Decimal {
	if periods < 1 || len(closes) < periods {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, c := range closes[:periods] {
		sum = sum.Add(c)
	}
	return sum.DivRound(decimal.NewFromInt(int64(periods)), 4)
}

// Volatility 收益率标准差。closes 为最新在前，第 i 个收益率为 closes[i]/closes[i+1] - 1
func Volatility(closes []decimal.Decimal, periods int) decimal.Decimal {
	if periods < 1 || len(closes) < periods {
		return decimal.Zero
	}

	returns := make([]decimal.Decimal, 0, periods-1)
	for i := 0; i < periods-1; i++ {
		if closes[i+1].IsZero() {
			continue
		}
		returns = append(returns, closes[i].DivRound(closes[i+1], 4).Sub(one))
	}
	if len(returns) == 0 {
		return decimal.Zero
	}

	n := decimal.NewFromInt(int64(len(returns)))
	mean := decimal.Sum(decimal.Zero, returns...).DivRound(n, 4)

	sq := decimal.Zero
	for _, r := range returns {
		d := r.Sub(mean)
		sq = sq.Add(d.Mul(d))
	}
	variance := sq.DivRound(n, 4)

	v, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(v))
}

// InterpretRSI 返回 RSI 信号与说明
func InterpretRSI(v decimal.Decimal) (string, string) {
	switch {
	case v.GreaterThanOrEqual(rsiOverbought):
		return "OVERBOUGHT", "OVERBOUGHT - Consider selling"
	case v.LessThanOrEqual(rsiOversold):
		return "OVERSOLD", "OVERSOLD - Consider buying"
	default:
		return "NEUTRAL", "NEUTRAL - No strong signal"
	}
}

// InterpretVolatility 返回波动率信号与说明
func InterpretVolatility(v decimal.Decimal) (string, string) {
	switch {
	case v.GreaterThan(volHigh):
		return "HIGH", "HIGH - Asset is very volatile"
	case v.GreaterThan(volModerate):
		return "MODERATE", "MODERATE - Normal volatility levels"
	default:
		return "LOW", "LOW - Asset is relatively stable"
	}
}

// Compute 按指标类型计算并附带解读
func Compute(kind IndicatorKind, ticker string, bars []*Bar, periods int, now time.Time) (*IndicatorResult, error) {
	closes := Closes(bars)
	res := &IndicatorResult{
		Ticker:       ticker,
		Indicator:    kind,
		Periods:      periods,
		CalculatedAt: now,
	}

	switch kind {
	case IndicatorRSI:
		res.Value = RSI(closes, periods)
		res.Signal, res.Interpretation = InterpretRSI(res.Value)
	case IndicatorSMA:
		res.Value = SMA(closes, periods)
		res.Signal = "INFO"
		res.Interpretation = fmt.Sprintf("Simple Moving Average over %d periods", periods)
	case IndicatorVolatility:
		res.Value = Volatility(closes, periods)
		res.Signal, res.Interpretation = InterpretVolatility(res.Value)
	default:
		return nil, fmt.Errorf("unknown indicator: %s", kind)
	}
	return res, nil
}

// Window 指标所需的最少数据点数
func (k IndicatorKind) Window(periods int) int {
	if k == IndicatorRSI {
		return periods + 1
	}
	return periods
}
