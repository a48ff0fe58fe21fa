package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketHours(t *testing.T) {
	mh, err := NewMarketHours("America/Sao_Paulo", 9, 18)
	require.NoError(t, err)

	brt := time.FixedZone("BRT", -3*3600)
	cases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"monday open", time.Date(2024, 3, 4, 9, 0, 0, 0, brt), true},
		{"monday midday utc", time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC), true},
		{"before open", time.Date(2024, 3, 4, 8, 59, 59, 0, brt), false},
		{"at close", time.Date(2024, 3, 4, 18, 0, 0, 0, brt), false},
		{"friday late", time.Date(2024, 3, 8, 17, 59, 0, 0, brt), true},
		{"saturday", time.Date(2024, 3, 9, 12, 0, 0, 0, brt), false},
		{"sunday", time.Date(2024, 3, 10, 12, 0, 0, 0, brt), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, mh.IsOpen(tc.at))
		})
	}
}

func TestNewMarketHoursInvalid(t *testing.T) {
	_, err := NewMarketHours("Mars/Olympus", 9, 18)
	assert.Error(t, err)
	_, err = NewMarketHours("UTC", 18, 9)
	assert.Error(t, err)
}
