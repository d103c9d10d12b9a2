package regime

import (
	"math"

	"marlin/internal/logger"
	"marlin/internal/market"
)

const (
	// TrendAnalysisPeriod is the candle window classification looks at.
	TrendAnalysisPeriod = 100
	adxPeriod           = 14
	neutralADX          = 25.0
)

// Snapshot carries the inputs a classification was made from, for logging
// and the dashboard.
type Snapshot struct {
	Regime         Regime  `json:"regime"`
	Confidence     float64 `json:"confidence"`
	ADX            float64 `json:"adx"`
	PriceChangePct float64 `json:"price_change_pct"`
	ATRRatio       float64 `json:"atr_ratio"`
}

// Classify decides the current market regime from the most recent
// TrendAnalysisPeriod rows of the table.
//
// Trend and range detection come from ADX and the net price change over the
// window; an ATR ratio far from 1 overrides either with a volatility regime.
// Boundary values (ADX exactly 25, change exactly ±5%, ratio exactly 1.5 or
// 0.5) never trigger a rule, so the result is deterministic there.
func Classify(table market.Table) Snapshot {
	if table.Len() < TrendAnalysisPeriod {
		return Snapshot{Regime: Uncertain, ATRRatio: 1.0}
	}
	window := table.Tail(TrendAnalysisPeriod)

	first := window.At(0).Close
	last := window.At(-1).Close
	changePct := 0.0
	if first != 0 {
		changePct = (last - first) / first * 100
	}

	adx := computeADX(window, adxPeriod)
	atrRatio := atrRatio(window)

	regime := Uncertain
	confidence := 0.0

	if adx > 25 {
		switch {
		case changePct > 5:
			regime = TrendingUp
			confidence = math.Min(adx/50, 1.0)
		case changePct < -5:
			regime = TrendingDown
			confidence = math.Min(adx/50, 1.0)
		default:
			regime = Ranging
			confidence = 0.5
		}
	} else if adx < 20 {
		regime = Ranging
		confidence = (20 - adx) / 20
	}

	if atrRatio > 1.5 {
		regime = HighVolatility
		confidence = math.Min(atrRatio/2, 1.0)
	} else if atrRatio < 0.5 {
		regime = LowVolatility
		confidence = 1.0 - atrRatio
	}

	logger.Infof("market regime: %s (confidence %.1f%%, ADX %.1f, Δ %+.2f%%, ATR ratio %.2f)",
		regime, confidence*100, adx, changePct, atrRatio)

	return Snapshot{
		Regime:         regime,
		Confidence:     confidence,
		ADX:            adx,
		PriceChangePct: changePct,
		ATRRatio:       atrRatio,
	}
}

// atrRatio compares the latest ATR against the window mean. Missing ATR data
// degrades to a neutral 1.0 so volatility overrides stay off.
func atrRatio(window market.Table) float64 {
	latest := window.At(-1).ATR
	if math.IsNaN(latest) {
		return 1.0
	}
	mean := window.MeanATR()
	if math.IsNaN(mean) || mean <= 0 {
		return 1.0
	}
	return latest / mean
}

// computeADX uses simple rolling means over true range and directional
// movement. Any failure to produce a finite value returns the neutral 25,
// which by itself selects no regime.
func computeADX(window market.Table, period int) float64 {
	n := window.Len()
	if n < period*2+1 {
		return neutralADX
	}
	highs := window.Highs()
	lows := window.Lows()
	closes := window.Closes()

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))

		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := rollingMean(tr, period)
	plusMean := rollingMean(plusDM, period)
	minusMean := rollingMean(minusDM, period)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			dx[i] = math.NaN()
			continue
		}
		plusDI := 100 * plusMean[i] / atr[i]
		minusDI := 100 * minusMean[i] / atr[i]
		sum := plusDI + minusDI
		if sum == 0 {
			dx[i] = math.NaN()
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	adx := rollingMean(dx, period)
	last := adx[n-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return neutralADX
	}
	return last
}

// rollingMean mirrors a pandas rolling(window).mean(): NaN until the window
// fills, and NaN whenever the window contains a NaN.
func rollingMean(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(series[j]) {
				valid = false
				break
			}
			sum += series[j]
		}
		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}
