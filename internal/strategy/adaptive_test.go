package strategy

import (
	"math"
	"testing"
	"time"

	"marlin/internal/market"
	"marlin/internal/regime"

	"github.com/stretchr/testify/assert"
)

// trendingTable builds a table long enough to classify, with the last two
// rows carrying explicit EMA values.
func trendingTable(step, prevFast, prevSlow, curFast, curSlow float64) market.Table {
	n := regime.TrendAnalysisPeriod
	rows := make([]market.Row, n)
	price := 100.0
	if step < 0 {
		price = 100 + float64(n)*(-step)
	}
	for i := range rows {
		c := price + float64(i)*step
		rows[i] = market.Row{
			Candle:    market.Candle{Open: c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 100},
			EMAFast:   curFast,
			EMASlow:   curSlow,
			ATR:       math.NaN(),
			VolumeAvg: 100,
		}
	}
	rows[n-2].EMAFast = prevFast
	rows[n-2].EMASlow = prevSlow
	return market.NewTable(rows)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAdaptiveParametersFollowRegime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAdaptive(AdaptiveConfig{Now: fixedClock(now)})

	// Strong uptrend classifies with full confidence, so parameters land on
	// the trending-up set unclamped except where the caps bite.
	table := trendingTable(1, 100.5, 100, 101, 100)
	side, ok := s.ShouldEnter(table, 100)
	assert.True(t, ok)
	assert.Equal(t, SideLong, side)

	st := s.Status()
	assert.Equal(t, regime.TrendingUp.String(), st.Regime)
	assert.InDelta(t, 1.0, st.RegimeConfidence, 1e-9)
	assert.Equal(t, 8, st.Leverage)
	assert.InDelta(t, 0.015, st.StopLossPct, 1e-9)
	assert.InDelta(t, 0.06, st.TakeProfitPct, 1e-9)
	assert.InDelta(t, 0.03, st.PositionSizePct, 1e-9)
}

func TestAdaptiveBiasSuppressesOppositeEntries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAdaptive(AdaptiveConfig{Now: fixedClock(now)})

	// Uptrend regime (LONG bias) with a bearish crossover must not short.
	table := trendingTable(1, 101, 100, 99, 100)
	_, ok := s.ShouldEnter(table, 100)
	assert.False(t, ok)
	assert.Equal(t, regime.TrendingUp.String(), s.Status().Regime)
}

func TestAdaptiveRegimeShiftExit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAdaptive(AdaptiveConfig{Now: fixedClock(now)})

	// Downtrend regime with full confidence carries a SHORT bias; a held
	// long gets closed even though stop and target are untouched.
	table := trendingTable(-1, 101, 100, 99, 100)
	pos := Position{Side: SideLong, EntryPrice: 100, StopLoss: 90, TakeProfit: 120}
	exit, reason := s.ShouldExit(table, 100, pos)
	assert.True(t, exit)
	assert.Equal(t, "regime shift to bearish", reason)
}

func TestAdaptiveUpdateIntervalGatesReclassification(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	s := NewAdaptive(AdaptiveConfig{UpdateInterval: time.Hour, Now: func() time.Time { return clock }})

	up := trendingTable(1, 100.5, 100, 101, 100)
	down := trendingTable(-1, 101, 100, 99, 100)

	s.ShouldEnter(up, 100)
	assert.Equal(t, regime.TrendingUp.String(), s.Status().Regime)

	// Ten minutes later the opposite table must not flip the regime yet.
	clock = now.Add(10 * time.Minute)
	s.ShouldEnter(down, 100)
	assert.Equal(t, regime.TrendingUp.String(), s.Status().Regime)

	clock = now.Add(time.Hour)
	s.ShouldEnter(down, 100)
	assert.Equal(t, regime.TrendingDown.String(), s.Status().Regime)
}

func TestAdaptiveUncertainKeepsPreviousParameters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAdaptive(AdaptiveConfig{Now: fixedClock(now)})

	// Too little data: Uncertain, defaults stay in force.
	short := market.NewTable([]market.Row{
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: 100, EMASlow: 100, VolumeAvg: 100},
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: 100, EMASlow: 100, VolumeAvg: 100},
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: 100, EMASlow: 100, VolumeAvg: 100},
	})
	s.ShouldEnter(short, 100)
	st := s.Status()
	assert.Equal(t, regime.Uncertain.String(), st.Regime)
	assert.Equal(t, regime.DefaultParams.Leverage, st.Leverage)
	assert.InDelta(t, regime.DefaultParams.StopLossPct, st.StopLossPct, 1e-9)
}

func TestAdaptiveLevels(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAdaptive(AdaptiveConfig{Now: fixedClock(now)})
	s.ShouldEnter(trendingTable(1, 100.5, 100, 101, 100), 100)

	assert.InDelta(t, 98.5, s.StopLoss(100, SideLong), 1e-9)
	assert.InDelta(t, 106.0, s.TakeProfit(100, SideLong), 1e-9)
	assert.InDelta(t, 101.5, s.StopLoss(100, SideShort), 1e-9)
	assert.InDelta(t, 94.0, s.TakeProfit(100, SideShort), 1e-9)
}
