package strategy

import (
	"math"
	"testing"

	"marlin/internal/market"

	"github.com/stretchr/testify/assert"
)

// tableFrom builds a three-row table with explicit EMA values on the last
// two rows. Volume defaults to exactly the average.
func tableFrom(prevFast, prevSlow, curFast, curSlow float64) market.Table {
	rows := []market.Row{
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: prevFast, EMASlow: prevSlow, VolumeAvg: 100},
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: prevFast, EMASlow: prevSlow, VolumeAvg: 100},
		{Candle: market.Candle{Close: 100, Volume: 100}, EMAFast: curFast, EMASlow: curSlow, VolumeAvg: 100},
	}
	return market.NewTable(rows)
}

func TestEMACrossEntrySignals(t *testing.T) {
	s := NewEMACross(EMACrossConfig{})

	t.Run("bullish crossover", func(t *testing.T) {
		side, ok := s.ShouldEnter(tableFrom(99, 100, 101, 100), 100)
		assert.True(t, ok)
		assert.Equal(t, SideLong, side)
	})

	t.Run("bearish crossover", func(t *testing.T) {
		side, ok := s.ShouldEnter(tableFrom(101, 100, 99, 100), 100)
		assert.True(t, ok)
		assert.Equal(t, SideShort, side)
	})

	t.Run("no crossover no momentum", func(t *testing.T) {
		_, ok := s.ShouldEnter(tableFrom(101, 100, 101.0, 100), 100)
		// Fast stayed above slow without rising, so no momentum entry.
		assert.False(t, ok)
	})

	t.Run("bullish momentum", func(t *testing.T) {
		// Fast above slow on both candles, rising, spread 1% > 0.05%.
		side, ok := s.ShouldEnter(tableFrom(100.5, 100, 101, 100), 100)
		assert.True(t, ok)
		assert.Equal(t, SideLong, side)
	})
}

func TestEMACrossRejectsBadInput(t *testing.T) {
	s := NewEMACross(EMACrossConfig{})

	t.Run("short table", func(t *testing.T) {
		rows := []market.Row{{Candle: market.Candle{Close: 100}, EMAFast: 1, EMASlow: 1}}
		_, ok := s.ShouldEnter(market.NewTable(rows), 100)
		assert.False(t, ok)
	})

	t.Run("nan indicators", func(t *testing.T) {
		_, ok := s.ShouldEnter(tableFrom(math.NaN(), math.NaN(), 101, 100), 100)
		assert.False(t, ok)
	})

	t.Run("insufficient volume", func(t *testing.T) {
		rows := []market.Row{
			{Candle: market.Candle{Close: 100, Volume: 10}, EMAFast: 99, EMASlow: 100, VolumeAvg: 100},
			{Candle: market.Candle{Close: 100, Volume: 10}, EMAFast: 99, EMASlow: 100, VolumeAvg: 100},
			{Candle: market.Candle{Close: 100, Volume: 10}, EMAFast: 101, EMASlow: 100, VolumeAvg: 100},
		}
		_, ok := s.ShouldEnter(market.NewTable(rows), 100)
		assert.False(t, ok)
	})

	t.Run("holding a position", func(t *testing.T) {
		s.SetPosition(&Position{Side: SideLong, EntryPrice: 100})
		defer s.SetPosition(nil)
		_, ok := s.ShouldEnter(tableFrom(99, 100, 101, 100), 100)
		assert.False(t, ok)
	})
}

func TestEMACrossExit(t *testing.T) {
	s := NewEMACross(EMACrossConfig{})
	long := Position{Side: SideLong, EntryPrice: 100, StopLoss: 99.5, TakeProfit: 101.5}
	short := Position{Side: SideShort, EntryPrice: 100, StopLoss: 100.5, TakeProfit: 98.5}
	flat := tableFrom(101, 100, 101, 100)

	cases := []struct {
		name   string
		pos    Position
		price  float64
		table  market.Table
		exit   bool
		reason string
	}{
		{"long stop", long, 99.5, flat, true, "stop loss"},
		{"long target", long, 101.5, flat, true, "take profit"},
		{"long holds", long, 100.5, tableFrom(100.5, 100, 101, 100), false, ""},
		{"short stop", short, 100.5, flat, true, "stop loss"},
		{"short target", short, 98.4, flat, true, "take profit"},
		{"long opposite crossover", long, 100, tableFrom(101, 100, 99, 100), true, "opposite crossover"},
		{"short opposite crossover", short, 100, tableFrom(99, 100, 101, 100), true, "opposite crossover"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exit, reason := s.ShouldExit(tc.table, tc.price, tc.pos)
			assert.Equal(t, tc.exit, exit)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestEMACrossLevels(t *testing.T) {
	s := NewEMACross(EMACrossConfig{StopLossPct: 0.02, TakeProfitPct: 0.06})
	assert.InDelta(t, 98.0, s.StopLoss(100, SideLong), 1e-9)
	assert.InDelta(t, 106.0, s.TakeProfit(100, SideLong), 1e-9)
	assert.InDelta(t, 102.0, s.StopLoss(100, SideShort), 1e-9)
	assert.InDelta(t, 94.0, s.TakeProfit(100, SideShort), 1e-9)
}

func TestStatusAlwaysPresent(t *testing.T) {
	s := NewEMACross(EMACrossConfig{})
	st := s.Status()
	assert.Equal(t, "ema_crossover", st.Name)
	assert.False(t, st.HasPosition)
	assert.Empty(t, st.Regime)

	s.SetPosition(&Position{Side: SideLong})
	assert.True(t, s.Status().HasPosition)
	assert.True(t, s.HasPosition())
}
