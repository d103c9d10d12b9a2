package strategy

import (
	"math"

	"marlin/internal/logger"
	"marlin/internal/market"
)

// EMACrossConfig carries the fixed parameters of the crossover strategy.
type EMACrossConfig struct {
	StopLossPct     float64
	TakeProfitPct   float64
	VolumeThreshold float64 // fraction of average volume required
	MomentumSpread  float64 // minimum EMA spread in percent for momentum entries
}

func (c EMACrossConfig) withDefaults() EMACrossConfig {
	if c.StopLossPct <= 0 {
		c.StopLossPct = 0.005
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = 0.015
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 0.8
	}
	if c.MomentumSpread <= 0 {
		c.MomentumSpread = 0.05
	}
	return c
}

// EMACross enters on an EMA fast/slow crossover, or on persistent momentum
// when the fast EMA keeps pulling away from the slow one, both gated on
// volume. It exits on the opposite crossover.
type EMACross struct {
	cfg      EMACrossConfig
	position *Position
}

func NewEMACross(cfg EMACrossConfig) *EMACross {
	return &EMACross{cfg: cfg.withDefaults()}
}

func (s *EMACross) Name() string { return "ema_crossover" }

func (s *EMACross) ShouldEnter(table market.Table, price float64) (Side, bool) {
	if s.position != nil {
		return "", false
	}
	// Momentum detection needs three candles.
	if !tableReady(table, 3) {
		return "", false
	}
	cur := table.At(-1)
	prev := table.At(-2)
	if math.IsNaN(prev.EMAFast) || math.IsNaN(prev.EMASlow) {
		return "", false
	}
	if !volumeOK(table, s.cfg.VolumeThreshold) {
		return "", false
	}

	spread := math.Abs(cur.EMAFast-cur.EMASlow) / cur.EMASlow * 100

	bullishCross := prev.EMAFast <= prev.EMASlow && cur.EMAFast > cur.EMASlow
	bullishMomentum := cur.EMAFast > cur.EMASlow &&
		prev.EMAFast > prev.EMASlow &&
		cur.EMAFast > prev.EMAFast &&
		spread > s.cfg.MomentumSpread

	bearishCross := prev.EMAFast >= prev.EMASlow && cur.EMAFast < cur.EMASlow
	bearishMomentum := cur.EMAFast < cur.EMASlow &&
		prev.EMAFast < prev.EMASlow &&
		cur.EMAFast < prev.EMAFast &&
		spread > s.cfg.MomentumSpread

	switch {
	case bullishCross:
		logger.Infof("%s: LONG signal, fast EMA crossed above slow", s.Name())
		return SideLong, true
	case bullishMomentum:
		logger.Infof("%s: LONG signal, bullish momentum (spread %.3f%%)", s.Name(), spread)
		return SideLong, true
	case bearishCross:
		logger.Infof("%s: SHORT signal, fast EMA crossed below slow", s.Name())
		return SideShort, true
	case bearishMomentum:
		logger.Infof("%s: SHORT signal, bearish momentum (spread %.3f%%)", s.Name(), spread)
		return SideShort, true
	}
	return "", false
}

func (s *EMACross) ShouldExit(table market.Table, price float64, pos Position) (bool, string) {
	if stopHit(price, pos) {
		return true, "stop loss"
	}
	if targetHit(price, pos) {
		return true, "take profit"
	}
	if !tableReady(table, 2) {
		return false, ""
	}
	cur := table.At(-1)
	prev := table.At(-2)
	if math.IsNaN(prev.EMAFast) || math.IsNaN(prev.EMASlow) {
		return false, ""
	}
	if pos.Side == SideLong && prev.EMAFast >= prev.EMASlow && cur.EMAFast < cur.EMASlow {
		return true, "opposite crossover"
	}
	if pos.Side == SideShort && prev.EMAFast <= prev.EMASlow && cur.EMAFast > cur.EMASlow {
		return true, "opposite crossover"
	}
	return false, ""
}

func (s *EMACross) StopLoss(entry float64, side Side) float64 {
	return percentStop(entry, s.cfg.StopLossPct, side)
}

func (s *EMACross) TakeProfit(entry float64, side Side) float64 {
	return percentTarget(entry, s.cfg.TakeProfitPct, side)
}

func (s *EMACross) SetPosition(pos *Position) { s.position = pos }
func (s *EMACross) HasPosition() bool         { return s.position != nil }

func (s *EMACross) Status() Status {
	return Status{
		Name:          s.Name(),
		HasPosition:   s.position != nil,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
	}
}
