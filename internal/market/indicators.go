package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

// IndicatorConfig holds the periods used to derive the indicator columns.
type IndicatorConfig struct {
	EMAFast      int
	EMASlow      int
	ATRPeriod    int
	RSIPeriod    int
	VolumePeriod int
	BBPeriod     int
	BBStdDev     float64
}

func (c IndicatorConfig) withDefaults() IndicatorConfig {
	if c.EMAFast <= 0 {
		c.EMAFast = 9
	}
	if c.EMASlow <= 0 {
		c.EMASlow = 21
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	if c.VolumePeriod <= 0 {
		c.VolumePeriod = 20
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = 20
	}
	if c.BBStdDev <= 0 {
		c.BBStdDev = 2.0
	}
	return c
}

// AddIndicators derives the full indicator column set for a candle series and
// returns it as an immutable table. Indices inside an indicator's warmup
// window are set to NaN.
func AddIndicators(candles []Candle, cfg IndicatorConfig) Table {
	cfg = cfg.withDefaults()
	n := len(candles)
	rows := make([]Row, n)
	if n == 0 {
		return NewTable(rows)
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		rows[i].Candle = c
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	emaFast := maskWarmup(talib.Ema(closes, cfg.EMAFast), cfg.EMAFast-1)
	emaSlow := maskWarmup(talib.Ema(closes, cfg.EMASlow), cfg.EMASlow-1)
	rsi := maskWarmup(talib.Rsi(closes, cfg.RSIPeriod), cfg.RSIPeriod)
	volAvg := maskWarmup(talib.Sma(volumes, cfg.VolumePeriod), cfg.VolumePeriod-1)

	var atr []float64
	if n > cfg.ATRPeriod {
		atr = maskWarmup(talib.Atr(highs, lows, closes, cfg.ATRPeriod), cfg.ATRPeriod)
	} else {
		atr = nanSeries(n)
	}

	var bbUpper, bbMiddle, bbLower []float64
	if n >= cfg.BBPeriod {
		bbUpper, bbMiddle, bbLower = talib.BBands(closes, cfg.BBPeriod, cfg.BBStdDev, cfg.BBStdDev, talib.SMA)
		bbUpper = maskWarmup(bbUpper, cfg.BBPeriod-1)
		bbMiddle = maskWarmup(bbMiddle, cfg.BBPeriod-1)
		bbLower = maskWarmup(bbLower, cfg.BBPeriod-1)
	} else {
		bbUpper, bbMiddle, bbLower = nanSeries(n), nanSeries(n), nanSeries(n)
	}

	for i := range rows {
		rows[i].EMAFast = emaFast[i]
		rows[i].EMASlow = emaSlow[i]
		rows[i].ATR = atr[i]
		rows[i].RSI = rsi[i]
		rows[i].VolumeAvg = volAvg[i]
		rows[i].BBUpper = bbUpper[i]
		rows[i].BBMiddle = bbMiddle[i]
		rows[i].BBLower = bbLower[i]
	}
	return NewTable(rows)
}

// maskWarmup replaces the leading warmup region with NaN. talib emits zeros
// there, which would otherwise look like real values.
func maskWarmup(series []float64, warmup int) []float64 {
	if warmup > len(series) {
		warmup = len(series)
	}
	for i := 0; i < warmup; i++ {
		series[i] = math.NaN()
	}
	return series
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
