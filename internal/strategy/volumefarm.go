package strategy

import (
	"math"
	"time"

	"marlin/internal/logger"
	"marlin/internal/market"
)

// VolumeFarmConfig tunes the volume-generation strategy.
type VolumeFarmConfig struct {
	StopLossPct      float64
	TakeProfitPct    float64
	VolumeThreshold  float64       // fraction of average volume required
	MaxHold          time.Duration // force close after this long
	DailyVolumeGoal  float64       // notional traded per UTC day before entries stop
	ProximitySpread  float64       // EMA spread in percent treated as "flat"
	Now              func() time.Time
}

func (c VolumeFarmConfig) withDefaults() VolumeFarmConfig {
	if c.StopLossPct <= 0 {
		c.StopLossPct = 0.0015
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = 0.0025
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 0.2
	}
	if c.MaxHold <= 0 {
		c.MaxHold = 5 * time.Minute
	}
	if c.DailyVolumeGoal <= 0 {
		c.DailyVolumeGoal = 50000
	}
	if c.ProximitySpread <= 0 {
		c.ProximitySpread = 0.05
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// VolumeFarm trades often and briefly to accumulate traded notional. Entries
// are deliberately loose, exits tight and time-capped. Entries stop for the
// day once the traded-volume goal is met.
type VolumeFarm struct {
	cfg      VolumeFarmConfig
	position *Position

	dailyVolume float64
	volumeDay   time.Time
}

func NewVolumeFarm(cfg VolumeFarmConfig) *VolumeFarm {
	return &VolumeFarm{cfg: cfg.withDefaults()}
}

func (s *VolumeFarm) Name() string { return "volume_farm" }

// resetDailyVolume zeroes the traded-notional counter on the first touch of
// a new UTC day. Safe to call any number of times.
func (s *VolumeFarm) resetDailyVolume() {
	today := s.cfg.Now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(s.volumeDay) {
		s.volumeDay = today
		s.dailyVolume = 0
	}
}

// RecordVolume adds the notional of a fill towards the daily goal.
func (s *VolumeFarm) RecordVolume(notional float64) {
	s.resetDailyVolume()
	s.dailyVolume += notional
	logger.Infof("%s: daily volume %.2f / %.2f (%.1f%%)",
		s.Name(), s.dailyVolume, s.cfg.DailyVolumeGoal, s.dailyVolume/s.cfg.DailyVolumeGoal*100)
}

// DailyVolume reports progress towards the goal.
func (s *VolumeFarm) DailyVolume() (current, goal float64) {
	s.resetDailyVolume()
	return s.dailyVolume, s.cfg.DailyVolumeGoal
}

func (s *VolumeFarm) ShouldEnter(table market.Table, price float64) (Side, bool) {
	s.resetDailyVolume()
	if s.position != nil {
		return "", false
	}
	if s.dailyVolume >= s.cfg.DailyVolumeGoal {
		logger.Debugf("%s: daily volume goal reached, no more entries today", s.Name())
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
	if !volumeOK(table, s.cfg.VolumeThreshold) {
		return "", false
	}

	spread := math.Abs(cur.EMAFast-cur.EMASlow) / cur.EMASlow * 100
	emasClose := spread < s.cfg.ProximitySpread

	bullish := cur.EMAFast > prev.EMAFast && cur.EMAFast > cur.EMASlow
	bearish := cur.EMAFast < prev.EMAFast && cur.EMAFast < cur.EMASlow

	if bullish || (emasClose && cur.Close > prev.Close) {
		logger.Infof("%s: LONG signal (spread %.4f%%)", s.Name(), spread)
		return SideLong, true
	}
	if bearish || (emasClose && cur.Close < prev.Close) {
		logger.Infof("%s: SHORT signal (spread %.4f%%)", s.Name(), spread)
		return SideShort, true
	}
	return "", false
}

func (s *VolumeFarm) ShouldExit(table market.Table, price float64, pos Position) (bool, string) {
	// Time cap takes priority: turning the position over is the point.
	if !pos.EntryTime.IsZero() && s.cfg.Now().Sub(pos.EntryTime) >= s.cfg.MaxHold {
		return true, "time limit"
	}
	if stopHit(price, pos) {
		return true, "stop loss"
	}
	if targetHit(price, pos) {
		return true, "take profit"
	}
	if table.Len() >= 2 {
		cur := table.At(-1)
		prev := table.At(-2)
		if pos.Side == SideLong && cur.Close < prev.Close {
			return true, "quick exit on down close"
		}
		if pos.Side == SideShort && cur.Close > prev.Close {
			return true, "quick exit on up close"
		}
	}
	return false, ""
}

func (s *VolumeFarm) StopLoss(entry float64, side Side) float64 {
	return percentStop(entry, s.cfg.StopLossPct, side)
}

func (s *VolumeFarm) TakeProfit(entry float64, side Side) float64 {
	return percentTarget(entry, s.cfg.TakeProfitPct, side)
}

func (s *VolumeFarm) SetPosition(pos *Position) { s.position = pos }
func (s *VolumeFarm) HasPosition() bool         { return s.position != nil }

func (s *VolumeFarm) Status() Status {
	return Status{
		Name:          s.Name(),
		HasPosition:   s.position != nil,
		StopLossPct:   s.cfg.StopLossPct,
		TakeProfitPct: s.cfg.TakeProfitPct,
	}
}
