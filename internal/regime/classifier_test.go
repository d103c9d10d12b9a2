package regime

import (
	"math"
	"testing"

	"marlin/internal/market"

	"github.com/stretchr/testify/assert"
)

func rowsFromCloses(closes []float64, atr float64) []market.Row {
	rows := make([]market.Row, len(closes))
	for i, c := range closes {
		rows[i] = market.Row{
			Candle: market.Candle{
				Open:   c,
				High:   c + 0.5,
				Low:    c - 0.5,
				Close:  c,
				Volume: 1000,
			},
			ATR: atr,
		}
	}
	return rows
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestClassifyTooFewRows(t *testing.T) {
	table := market.NewTable(rowsFromCloses(risingCloses(TrendAnalysisPeriod-1, 100, 1), math.NaN()))
	snap := Classify(table)
	assert.Equal(t, Uncertain, snap.Regime)
	assert.Zero(t, snap.Confidence)
}

func TestClassifyStrongUptrend(t *testing.T) {
	table := market.NewTable(rowsFromCloses(risingCloses(TrendAnalysisPeriod, 100, 1), math.NaN()))
	snap := Classify(table)
	assert.Equal(t, TrendingUp, snap.Regime)
	assert.InDelta(t, 1.0, snap.Confidence, 1e-9)
	assert.Greater(t, snap.PriceChangePct, 5.0)
}

func TestClassifyStrongDowntrend(t *testing.T) {
	table := market.NewTable(rowsFromCloses(risingCloses(TrendAnalysisPeriod, 200, -1), math.NaN()))
	snap := Classify(table)
	assert.Equal(t, TrendingDown, snap.Regime)
	assert.Less(t, snap.PriceChangePct, -5.0)
}

func TestClassifyFlatMarketIsDeterministic(t *testing.T) {
	// A perfectly flat series has zero true range, so the ADX calculation
	// falls back to the neutral 25 and no rule fires.
	closes := make([]float64, TrendAnalysisPeriod)
	for i := range closes {
		closes[i] = 100
	}
	rows := rowsFromCloses(closes, math.NaN())
	for i := range rows {
		rows[i].High = 100
		rows[i].Low = 100
	}
	snap := Classify(market.NewTable(rows))
	assert.Equal(t, Uncertain, snap.Regime)
	assert.Zero(t, snap.Confidence)
	assert.InDelta(t, 25.0, snap.ADX, 1e-9)
	assert.InDelta(t, 1.0, snap.ATRRatio, 1e-9)
}

func TestClassifyHighVolatilityOverride(t *testing.T) {
	rows := rowsFromCloses(risingCloses(TrendAnalysisPeriod, 100, 1), 1.0)
	rows[len(rows)-1].ATR = 3.0
	snap := Classify(market.NewTable(rows))
	assert.Equal(t, HighVolatility, snap.Regime)
	assert.Greater(t, snap.ATRRatio, 1.5)
	assert.InDelta(t, 1.0, snap.Confidence, 1e-9)
}

func TestClassifyLowVolatilityOverride(t *testing.T) {
	rows := rowsFromCloses(risingCloses(TrendAnalysisPeriod, 100, 1), 1.0)
	rows[len(rows)-1].ATR = 0.2
	snap := Classify(market.NewTable(rows))
	assert.Equal(t, LowVolatility, snap.Regime)
	assert.Less(t, snap.ATRRatio, 0.5)
	assert.InDelta(t, 1.0-snap.ATRRatio, snap.Confidence, 1e-9)
}

func TestNeutralATRRatioDoesNotOverride(t *testing.T) {
	// ATR ratio of exactly 1.0 must leave the trend classification alone.
	rows := rowsFromCloses(risingCloses(TrendAnalysisPeriod, 100, 1), 1.0)
	snap := Classify(market.NewTable(rows))
	assert.Equal(t, TrendingUp, snap.Regime)
	assert.InDelta(t, 1.0, snap.ATRRatio, 1e-9)
}

func TestParamsForEveryRegime(t *testing.T) {
	for _, r := range []Regime{TrendingUp, TrendingDown, Ranging, HighVolatility, LowVolatility} {
		p, ok := ParamsFor(r)
		assert.True(t, ok, r)
		assert.Greater(t, p.Leverage, 0)
		assert.Greater(t, p.StopLossPct, 0.0)
		assert.Greater(t, p.TakeProfitPct, p.StopLossPct)
	}
	_, ok := ParamsFor(Uncertain)
	assert.False(t, ok)

	up, _ := ParamsFor(TrendingUp)
	assert.Equal(t, BiasLong, up.EntryBias)
	assert.Equal(t, 8, up.Leverage)
	down, _ := ParamsFor(TrendingDown)
	assert.Equal(t, BiasShort, down.EntryBias)
}

func TestRollingMeanMatchesWindowSemantics(t *testing.T) {
	out := rollingMean([]float64{1, 2, 3, 4}, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.InDelta(t, 1.5, out[1], 1e-9)
	assert.InDelta(t, 3.5, out[3], 1e-9)

	withNaN := rollingMean([]float64{1, math.NaN(), 3}, 2)
	assert.True(t, math.IsNaN(withNaN[1]))
	assert.True(t, math.IsNaN(withNaN[2]))
}
