// Package risk implements fixed-fractional position sizing and the daily
// loss controls that gate trading.
package risk

import (
	"math"
	"time"

	"marlin/internal/logger"
	"marlin/internal/pkg/trading"
	"marlin/internal/strategy"
)

// Config carries the risk limits. All percentages are fractions.
type Config struct {
	InitialCapital    float64
	RiskPerTrade      float64 // of capital risked between entry and stop
	MaxPositionPct    float64 // of capital allocated per position, pre-leverage
	MaxDailyLossPct   float64 // of initial capital lost before trading halts
	MaxLeverage       int
	MaxOpenPositions  int
	QuantityPrecision int
	PricePrecision    int
	MinQuantity       float64
	Now               func() time.Time
}

func (c Config) withDefaults() Config {
	if c.RiskPerTrade <= 0 {
		c.RiskPerTrade = 0.02
	}
	if c.MaxPositionPct <= 0 {
		c.MaxPositionPct = 0.05
	}
	if c.MaxDailyLossPct <= 0 {
		c.MaxDailyLossPct = 0.05
	}
	if c.MaxLeverage <= 0 {
		c.MaxLeverage = 20
	}
	if c.MaxOpenPositions <= 0 {
		c.MaxOpenPositions = 1
	}
	if c.QuantityPrecision <= 0 {
		c.QuantityPrecision = 3
	}
	if c.PricePrecision <= 0 {
		c.PricePrecision = 2
	}
	if c.MinQuantity <= 0 {
		c.MinQuantity = 0.001
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// DailyStats summarizes the current trading day.
type DailyStats struct {
	PnL        float64 `json:"pnl"`
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"win_rate"`
	AvgWin     float64 `json:"avg_win"`
	AvgLoss    float64 `json:"avg_loss"`
	LimitHit   bool    `json:"limit_hit"`
	Day        string  `json:"day"`
}

// Manager tracks realized daily P/L and sizes positions. It is driven from
// the trading cycle goroutine; callers that need snapshots from elsewhere go
// through the dashboard sink instead.
type Manager struct {
	cfg Config

	day      time.Time
	dailyPnL float64
	trades   []float64
}

func New(cfg Config) *Manager {
	return &Manager{cfg: cfg.withDefaults()}
}

// resetDaily zeroes the daily counters on the first touch of a new UTC day.
// Called before every read and write so the rollover needs no timer.
func (m *Manager) resetDaily() {
	today := m.cfg.Now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(m.day) {
		if !m.day.IsZero() {
			logger.Infof("risk: new trading day, previous P/L %.2f over %d trade(s)", m.dailyPnL, len(m.trades))
		}
		m.day = today
		m.dailyPnL = 0
		m.trades = nil
	}
}

// PositionSize computes the quantity for a new position. Invalid inputs fail
// closed with 0. The size is the smaller of the risk-based size and the
// capital-allocation cap, truncated to the quantity precision and raised to
// the exchange minimum when the truncation left a positive size below it.
func (m *Manager) PositionSize(capital, entry, stop float64, leverage int) float64 {
	m.resetDaily()

	if capital <= 0 {
		logger.Errorf("risk: capital must be positive, got %.2f", capital)
		return 0
	}
	if entry <= 0 || stop <= 0 {
		logger.Errorf("risk: prices must be positive (entry %.4f, stop %.4f)", entry, stop)
		return 0
	}
	if leverage < 1 || leverage > m.cfg.MaxLeverage {
		logger.Errorf("risk: leverage %d outside [1,%d]", leverage, m.cfg.MaxLeverage)
		return 0
	}
	priceDiff := math.Abs(entry - stop)
	if priceDiff == 0 {
		logger.Errorf("risk: stop must differ from entry")
		return 0
	}

	riskAmount := capital * m.cfg.RiskPerTrade
	sizeByRisk := riskAmount / priceDiff

	maxNotional := capital * m.cfg.MaxPositionPct * float64(leverage)
	sizeByAllocation := maxNotional / entry

	size := math.Min(sizeByRisk, sizeByAllocation)
	final := trading.TruncateFloat(size, m.cfg.QuantityPrecision)
	if final < m.cfg.MinQuantity {
		logger.Warnf("risk: size %v below exchange minimum, using %v", final, m.cfg.MinQuantity)
		final = m.cfg.MinQuantity
	}

	logger.Infof("risk: position size %v (capital %.2f, risk %.2f, cap notional %.2f, %dx)",
		final, capital, riskAmount, maxNotional, leverage)
	return final
}

// StopLoss derives a protective stop from the entry. When atr is positive
// the stop sits 2×ATR away; otherwise the percentage applies.
func (m *Manager) StopLoss(entry float64, side strategy.Side, stopLossPct, atr float64) float64 {
	dist := entry * stopLossPct
	if atr > 0 {
		dist = atr * 2
	}
	price := entry - dist
	if side == strategy.SideShort {
		price = entry + dist
	}
	return trading.TruncateFloat(price, m.cfg.PricePrecision)
}

// TakeProfit derives the profit target from the entry and the percentage.
func (m *Manager) TakeProfit(entry float64, side strategy.Side, takeProfitPct float64) float64 {
	dist := entry * takeProfitPct
	price := entry + dist
	if side == strategy.SideShort {
		price = entry - dist
	}
	return trading.TruncateFloat(price, m.cfg.PricePrecision)
}

// CheckDailyLossLimit reports whether trading may continue today.
func (m *Manager) CheckDailyLossLimit() bool {
	m.resetDaily()
	maxLoss := m.DailyLossLimit()
	if m.dailyPnL <= -maxLoss {
		logger.Warnf("risk: daily loss limit reached (%.2f / -%.2f), trading halted for today", m.dailyPnL, maxLoss)
		return false
	}
	return true
}

// CanOpenPosition gates new entries on the position count and the daily
// loss limit.
func (m *Manager) CanOpenPosition(openPositions int) bool {
	m.resetDaily()
	if openPositions >= m.cfg.MaxOpenPositions {
		logger.Warnf("risk: maximum positions (%d) already open", m.cfg.MaxOpenPositions)
		return false
	}
	return m.CheckDailyLossLimit()
}

// RecordTrade adds one realized P/L to the daily tally. Called exactly once
// per closed position.
func (m *Manager) RecordTrade(pnl float64) {
	m.resetDaily()
	m.trades = append(m.trades, pnl)
	m.dailyPnL += pnl
	logger.Infof("risk: trade recorded %+.2f, daily P/L %.2f over %d trade(s)", pnl, m.dailyPnL, len(m.trades))
}

// DailyStats recomputes the day's aggregates from the recorded trades.
func (m *Manager) DailyStats() DailyStats {
	m.resetDaily()

	stats := DailyStats{
		PnL:    m.dailyPnL,
		Trades: len(m.trades),
		Day:    m.day.Format("2006-01-02"),
	}
	var winSum, lossSum float64
	for _, pnl := range m.trades {
		if pnl > 0 {
			stats.Wins++
			winSum += pnl
		} else if pnl < 0 {
			stats.Losses++
			lossSum += pnl
		}
	}
	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades) * 100
	}
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}
	stats.LimitHit = m.dailyPnL <= -m.DailyLossLimit()
	return stats
}

// RiskRewardRatio reports reward per unit of risk for the proposed levels,
// 0 when the stop sits on the entry.
func (m *Manager) RiskRewardRatio(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// MaxOpenPositions exposes the configured ledger bound.
func (m *Manager) MaxOpenPositions() int { return m.cfg.MaxOpenPositions }

// DailyLossLimit is the absolute daily loss, in stake currency, at which
// trading halts for the day.
func (m *Manager) DailyLossLimit() float64 {
	return m.cfg.InitialCapital * m.cfg.MaxDailyLossPct
}
