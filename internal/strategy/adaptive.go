package strategy

import (
	"math"
	"time"

	"marlin/internal/logger"
	"marlin/internal/market"
	"marlin/internal/regime"
)

// AdaptiveConfig tunes the regime-driven strategy.
type AdaptiveConfig struct {
	UpdateInterval time.Duration // how often the regime is re-evaluated
	Now            func() time.Time
}

func (c AdaptiveConfig) withDefaults() AdaptiveConfig {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Adaptive re-classifies the market regime on a fixed cadence and trades the
// parameter set mapped to the current regime. Entries are biased by the
// regime; a confident shift to the opposite bias closes the held position.
type Adaptive struct {
	cfg      AdaptiveConfig
	position *Position

	current    regime.Snapshot
	params     regime.Params
	lastUpdate time.Time
}

func NewAdaptive(cfg AdaptiveConfig) *Adaptive {
	final := cfg.withDefaults()
	return &Adaptive{
		cfg:     final,
		current: regime.Snapshot{Regime: regime.Uncertain, ATRRatio: 1.0},
		params:  regime.DefaultParams,
		// Force a classification on the first table.
		lastUpdate: final.Now().Add(-final.UpdateInterval),
	}
}

func (s *Adaptive) Name() string { return "adaptive" }

// refreshRegime re-runs classification when the update interval has elapsed.
// An Uncertain result keeps the previous parameter set.
func (s *Adaptive) refreshRegime(table market.Table) {
	now := s.cfg.Now()
	if now.Sub(s.lastUpdate) < s.cfg.UpdateInterval {
		return
	}
	s.lastUpdate = now
	snap := regime.Classify(table)
	s.current = snap

	p, ok := regime.ParamsFor(snap.Regime)
	if !ok {
		return
	}
	conf := snap.Confidence
	neutral := regime.DefaultParams

	adapted := p
	adapted.Leverage = int(float64(p.Leverage)*conf + float64(neutral.Leverage)*(1-conf))
	adapted.PositionSizePct = p.PositionSizePct * conf
	adapted.Leverage = clampInt(adapted.Leverage, 2, 10)
	adapted.StopLossPct = clamp(adapted.StopLossPct, 0.005, 0.03)
	adapted.TakeProfitPct = clamp(adapted.TakeProfitPct, 0.015, 0.1)
	s.params = adapted

	logger.Infof("%s: adapted parameters leverage=%dx sl=%.2f%% tp=%.2f%% ema=%d/%d size=%.2f%%",
		s.Name(), adapted.Leverage, adapted.StopLossPct*100, adapted.TakeProfitPct*100,
		adapted.EMAFast, adapted.EMASlow, adapted.PositionSizePct*100)
}

func (s *Adaptive) ShouldEnter(table market.Table, price float64) (Side, bool) {
	s.refreshRegime(table)

	if s.position != nil {
		return "", false
	}
	if !tableReady(table, 3) {
		return "", false
	}
	cur := table.At(-1)
	prev := table.At(-2)
	if math.IsNaN(prev.EMAFast) || math.IsNaN(prev.EMASlow) {
		return "", false
	}

	bias := s.params.EntryBias
	aggr := s.params.Aggressiveness

	// Aggressive regimes need less volume confirmation.
	threshold := 1.0 - aggr*0.3
	if !volumeOK(table, threshold) {
		return "", false
	}

	bullishCross := prev.EMAFast <= prev.EMASlow && cur.EMAFast > cur.EMASlow
	bearishCross := prev.EMAFast >= prev.EMASlow && cur.EMAFast < cur.EMASlow

	spread := math.Abs(cur.EMAFast-cur.EMASlow) / cur.EMASlow * 100
	strongMomentum := spread > 0.1*aggr

	if bias == regime.BiasLong || bias == regime.BiasNeutral {
		if bullishCross || (strongMomentum && cur.EMAFast > cur.EMASlow) {
			logger.Infof("%s: LONG signal (regime %s, confidence %.1f%%)",
				s.Name(), s.current.Regime, s.current.Confidence*100)
			return SideLong, true
		}
	}
	if bias == regime.BiasShort || bias == regime.BiasNeutral {
		if bearishCross || (strongMomentum && cur.EMAFast < cur.EMASlow) {
			logger.Infof("%s: SHORT signal (regime %s, confidence %.1f%%)",
				s.Name(), s.current.Regime, s.current.Confidence*100)
			return SideShort, true
		}
	}
	return "", false
}

func (s *Adaptive) ShouldExit(table market.Table, price float64, pos Position) (bool, string) {
	s.refreshRegime(table)

	if stopHit(price, pos) {
		return true, "stop loss"
	}
	if targetHit(price, pos) {
		return true, "take profit"
	}

	// A confident shift to the opposite bias invalidates the position.
	if s.current.Confidence > 0.7 {
		if pos.Side == SideLong && s.params.EntryBias == regime.BiasShort {
			return true, "regime shift to bearish"
		}
		if pos.Side == SideShort && s.params.EntryBias == regime.BiasLong {
			return true, "regime shift to bullish"
		}
	}
	return false, ""
}

func (s *Adaptive) StopLoss(entry float64, side Side) float64 {
	return percentStop(entry, s.params.StopLossPct, side)
}

func (s *Adaptive) TakeProfit(entry float64, side Side) float64 {
	return percentTarget(entry, s.params.TakeProfitPct, side)
}

func (s *Adaptive) SetPosition(pos *Position) { s.position = pos }
func (s *Adaptive) HasPosition() bool         { return s.position != nil }

// Regime exposes the latest classification for the dashboard.
func (s *Adaptive) Regime() regime.Snapshot { return s.current }

func (s *Adaptive) Status() Status {
	return Status{
		Name:             s.Name(),
		HasPosition:      s.position != nil,
		Leverage:         s.params.Leverage,
		StopLossPct:      s.params.StopLossPct,
		TakeProfitPct:    s.params.TakeProfitPct,
		PositionSizePct:  s.params.PositionSizePct,
		Regime:           s.current.Regime.String(),
		RegimeConfidence: s.current.Confidence,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
