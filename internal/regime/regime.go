// Package regime classifies market conditions and maps each condition to a
// parameter set the adaptive strategy trades with.
package regime

type Regime string

const (
	TrendingUp     Regime = "trending_up"
	TrendingDown   Regime = "trending_down"
	Ranging        Regime = "ranging"
	HighVolatility Regime = "high_volatility"
	LowVolatility  Regime = "low_volatility"
	Uncertain      Regime = "uncertain"
)

func (r Regime) String() string { return string(r) }

// Bias restricts which side of the market a regime allows entries on.
type Bias string

const (
	BiasLong    Bias = "LONG"
	BiasShort   Bias = "SHORT"
	BiasNeutral Bias = "NEUTRAL"
)

// Params is the trading parameter set associated with one regime.
type Params struct {
	Leverage        int
	StopLossPct     float64
	TakeProfitPct   float64
	EMAFast         int
	EMASlow         int
	PositionSizePct float64
	EntryBias       Bias
	Aggressiveness  float64
}

// DefaultParams is what the strategy trades with before the first
// classification and whenever the regime is Uncertain.
var DefaultParams = Params{
	Leverage:        3,
	StopLossPct:     0.01,
	TakeProfitPct:   0.03,
	EMAFast:         9,
	EMASlow:         21,
	PositionSizePct: 0.02,
	EntryBias:       BiasNeutral,
	Aggressiveness:  0.5,
}

// ParamsFor returns the parameter set for a regime. Uncertain keeps the
// current defaults.
func ParamsFor(r Regime) (Params, bool) {
	p, ok := regimeParams[r]
	return p, ok
}

var regimeParams = map[Regime]Params{
	TrendingUp: {
		Leverage:        8,
		StopLossPct:     0.015,
		TakeProfitPct:   0.06,
		EMAFast:         5,
		EMASlow:         13,
		PositionSizePct: 0.03,
		EntryBias:       BiasLong,
		Aggressiveness:  0.8,
	},
	TrendingDown: {
		Leverage:        8,
		StopLossPct:     0.015,
		TakeProfitPct:   0.06,
		EMAFast:         5,
		EMASlow:         13,
		PositionSizePct: 0.03,
		EntryBias:       BiasShort,
		Aggressiveness:  0.8,
	},
	Ranging: {
		Leverage:        3,
		StopLossPct:     0.008,
		TakeProfitPct:   0.02,
		EMAFast:         13,
		EMASlow:         34,
		PositionSizePct: 0.02,
		EntryBias:       BiasNeutral,
		Aggressiveness:  0.5,
	},
	HighVolatility: {
		Leverage:        2,
		StopLossPct:     0.025,
		TakeProfitPct:   0.08,
		EMAFast:         9,
		EMASlow:         21,
		PositionSizePct: 0.01,
		EntryBias:       BiasNeutral,
		Aggressiveness:  0.3,
	},
	LowVolatility: {
		Leverage:        10,
		StopLossPct:     0.005,
		TakeProfitPct:   0.015,
		EMAFast:         7,
		EMASlow:         17,
		PositionSizePct: 0.04,
		EntryBias:       BiasNeutral,
		Aggressiveness:  0.9,
	},
}
