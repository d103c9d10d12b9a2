package risk

import (
	"testing"
	"time"

	"marlin/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func newManager(cfg Config, now *time.Time) *Manager {
	cfg.Now = func() time.Time { return *now }
	return New(cfg)
}

func TestPositionSizeRiskBound(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{
		InitialCapital: 1000,
		RiskPerTrade:   0.01,
		MaxPositionPct: 0.05,
		MaxLeverage:    20,
	}, &now)

	// Risk bound: 1000·0.01/500 = 0.02. Allocation bound: 1000·0.05·2/50000
	// = 0.002. The smaller wins.
	size := m.PositionSize(1000, 50000, 49500, 2)
	assert.InDelta(t, 0.002, size, 1e-12)
}

func TestPositionSizeAllocationBound(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{
		InitialCapital: 1000,
		RiskPerTrade:   0.02,
		MaxPositionPct: 0.05,
		MaxLeverage:    20,
	}, &now)

	// Wide stop makes the risk bound huge; allocation caps it.
	size := m.PositionSize(1000, 100, 50, 10)
	// Risk: 20/50 = 0.4. Allocation: 1000·0.05·10/100 = 5. Risk bound wins.
	assert.InDelta(t, 0.4, size, 1e-12)
}

func TestPositionSizeFailsClosed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000}, &now)

	assert.Zero(t, m.PositionSize(0, 100, 99, 2))
	assert.Zero(t, m.PositionSize(-5, 100, 99, 2))
	assert.Zero(t, m.PositionSize(1000, 0, 99, 2))
	assert.Zero(t, m.PositionSize(1000, 100, -1, 2))
	assert.Zero(t, m.PositionSize(1000, 100, 100, 2))
	assert.Zero(t, m.PositionSize(1000, 100, 99, 0))
	assert.Zero(t, m.PositionSize(1000, 100, 99, 21))
}

func TestPositionSizeMinimumRaise(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{
		InitialCapital: 100,
		RiskPerTrade:   0.01,
		MaxPositionPct: 0.05,
		MaxLeverage:    20,
	}, &now)

	// Allocation bound 100·0.05·1/100000 = 0.00005 truncates to 0; the
	// exchange minimum applies.
	size := m.PositionSize(100, 100000, 99000, 1)
	assert.InDelta(t, 0.001, size, 1e-12)
}

func TestPositionSizeTruncatesNotRounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{
		InitialCapital: 1000,
		RiskPerTrade:   0.02,
		MaxPositionPct: 0.5,
		MaxLeverage:    20,
	}, &now)

	// Risk bound: 20/3 = 6.6666…; must become 6.666, not 6.667.
	size := m.PositionSize(1000, 10, 7, 10)
	assert.InDelta(t, 6.666, size, 1e-12)
}

func TestDailyLossLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 100, MaxDailyLossPct: 0.05}, &now)

	assert.True(t, m.CheckDailyLossLimit())
	m.RecordTrade(-6)
	// −6 ≤ −5: halted.
	assert.False(t, m.CheckDailyLossLimit())
	assert.False(t, m.CanOpenPosition(0))

	// A new day reopens trading.
	now = now.Add(24 * time.Hour)
	assert.True(t, m.CheckDailyLossLimit())
	assert.True(t, m.CanOpenPosition(0))
	assert.Zero(t, m.DailyStats().PnL)
}

func TestCanOpenPositionCountGate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000, MaxOpenPositions: 1}, &now)

	assert.True(t, m.CanOpenPosition(0))
	// Count gate fires regardless of loss-limit state.
	assert.False(t, m.CanOpenPosition(1))
	assert.False(t, m.CanOpenPosition(2))
}

func TestDailyResetIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000}, &now)

	m.RecordTrade(5)
	m.RecordTrade(-2)
	// Repeated reads within the same day must not disturb state.
	for i := 0; i < 5; i++ {
		stats := m.DailyStats()
		assert.InDelta(t, 3.0, stats.PnL, 1e-9)
		assert.Equal(t, 2, stats.Trades)
	}
	assert.True(t, m.CheckDailyLossLimit())
	assert.InDelta(t, 3.0, m.DailyStats().PnL, 1e-9)
}

func TestDailyStatsAggregates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000}, &now)

	m.RecordTrade(10)
	m.RecordTrade(20)
	m.RecordTrade(-5)
	m.RecordTrade(0)

	stats := m.DailyStats()
	assert.InDelta(t, 25.0, stats.PnL, 1e-9)
	assert.Equal(t, 4, stats.Trades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 15.0, stats.AvgWin, 1e-9)
	assert.InDelta(t, -5.0, stats.AvgLoss, 1e-9)
	assert.False(t, stats.LimitHit)
}

func TestProtectiveLevels(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000, PricePrecision: 2}, &now)

	t.Run("percentage mode", func(t *testing.T) {
		assert.InDelta(t, 98.0, m.StopLoss(100, strategy.SideLong, 0.02, 0), 1e-9)
		assert.InDelta(t, 102.0, m.StopLoss(100, strategy.SideShort, 0.02, 0), 1e-9)
		assert.InDelta(t, 106.0, m.TakeProfit(100, strategy.SideLong, 0.06), 1e-9)
		assert.InDelta(t, 94.0, m.TakeProfit(100, strategy.SideShort, 0.06), 1e-9)
	})

	t.Run("atr mode", func(t *testing.T) {
		assert.InDelta(t, 97.0, m.StopLoss(100, strategy.SideLong, 0.02, 1.5), 1e-9)
		assert.InDelta(t, 103.0, m.StopLoss(100, strategy.SideShort, 0.02, 1.5), 1e-9)
	})

	t.Run("invalid atr falls back to percentage", func(t *testing.T) {
		assert.InDelta(t, 98.0, m.StopLoss(100, strategy.SideLong, 0.02, -1), 1e-9)
	})
}

func TestDailyLossLimitAccessor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m := newManager(Config{InitialCapital: 1000, MaxDailyLossPct: 0.1}, &now)
	assert.InDelta(t, 100.0, m.DailyLossLimit(), 1e-9)

	// the halt threshold and the accessor must agree
	m.RecordTrade(-100)
	assert.False(t, m.CheckDailyLossLimit())
	assert.True(t, m.DailyStats().LimitHit)
}

func TestRiskRewardRatio(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(Config{InitialCapital: 1000}, &now)

	assert.InDelta(t, 3.0, m.RiskRewardRatio(100, 98, 106), 1e-9)
	assert.Zero(t, m.RiskRewardRatio(100, 100, 106))
}
