package application

import (
	"fmt"
	"strings"

	"github.com/wyfcoding/marketledger/internal/marketdata/domain"
)

// QuoteCacheKey 报价缓存 key
func QuoteCacheKey(ticker string) string {
	return "quote:" + ticker
}

// IndicatorCacheKey 指标缓存 key，例如 rsi:PETR4:14
func IndicatorCacheKey(kind domain.IndicatorKind, ticker string, periods int) string {
	return fmt.Sprintf("%s:%s:%d", strings.ToLower(string(kind)), ticker, periods)
}
