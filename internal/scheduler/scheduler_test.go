package scheduler

import (
	"testing"
	"time"

	"marlin/internal/market"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1m", time.Minute, true},
		{"5m", 5 * time.Minute, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{" 15M ", 15 * time.Minute, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-1h", 0, false},
		{"7x", 0, false},
		{"1.5h", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseIntervalDuration(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func candleAt(open time.Time) market.Candle {
	return market.Candle{OpenTime: open.UnixMilli(), Close: 100}
}

func TestDropUnclosedKlineDropsInProgressCandle(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 3, 0, 0, time.UTC)
	candles := []market.Candle{
		candleAt(now.Add(-10 * time.Minute)),
		candleAt(now.Add(-5 * time.Minute)),
		candleAt(now), // opened just now, still forming
	}

	got := dropUnclosedKlineAt(candles, 5*time.Minute, now, 0)
	assert.Len(t, got, 2)
}

func TestDropUnclosedKlineKeepsClosedCandle(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 6, 0, 0, time.UTC)
	candles := []market.Candle{
		candleAt(now.Add(-11 * time.Minute)),
		candleAt(now.Add(-6 * time.Minute)), // closed a minute ago
	}

	got := dropUnclosedKlineAt(candles, 5*time.Minute, now, 0)
	assert.Len(t, got, 2)
}

func TestDropUnclosedKlineGracePeriod(t *testing.T) {
	interval := 5 * time.Minute
	opened := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	candles := []market.Candle{candleAt(opened)}

	// closed 5s ago but inside the grace window: still treated as forming
	now := opened.Add(interval).Add(5 * time.Second)
	assert.Len(t, dropUnclosedKlineAt(candles, interval, now, 10*time.Second), 0)

	now = opened.Add(interval).Add(15 * time.Second)
	assert.Len(t, dropUnclosedKlineAt(candles, interval, now, 10*time.Second), 1)
}

func TestDropUnclosedKlineEdgeInputs(t *testing.T) {
	assert.Empty(t, dropUnclosedKlineAt(nil, time.Minute, time.Now(), 0))

	candles := []market.Candle{{OpenTime: 0}}
	assert.Len(t, dropUnclosedKlineAt(candles, 0, time.Now(), 0), 1)
	assert.Len(t, dropUnclosedKlineAt(candles, time.Minute, time.Now(), 0), 1)
}
