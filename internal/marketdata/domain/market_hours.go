package domain

import (
	"fmt"
	"time"
	_ "time/tzdata" // 保证精简镜像中也能加载交易所时区
)

// MarketHours 交易时段：周一至周五，交易所本地时间 [OpenHour, CloseHour)
type MarketHours struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int
}

// NewMarketHours 按时区名称创建交易时段
func NewMarketHours(timezone string, openHour, closeHour int) (*MarketHours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load market timezone %q: %w", timezone, err)
	}
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return nil, fmt.Errorf("invalid market hours: %d-%d", openHour, closeHour)
	}
	return &MarketHours{Location: loc, OpenHour: openHour, CloseHour: closeHour}, nil
}

// IsOpen 判断给定时刻是否处于交易时段
func (m *MarketHours) IsOpen(t time.Time) bool {
	local := t.In(m.Location)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := local.Hour()
	return h >= m.OpenHour && h < m.CloseHour
}
