// Package strategy defines the trading strategy abstraction and its
// concrete variants.
package strategy

import (
	"math"
	"time"

	"marlin/internal/market"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// OrderSide maps a position side to the order side that opens it.
func (s Side) OrderSide() string {
	if s == SideShort {
		return "SELL"
	}
	return "BUY"
}

// CloseOrderSide maps a position side to the order side that closes it.
func (s Side) CloseOrderSide() string {
	if s == SideShort {
		return "BUY"
	}
	return "SELL"
}

// Position is the strategy-facing view of an open position. Strategies only
// see the fields exit logic needs; ownership of the full record stays with
// the trader's ledger.
type Position struct {
	Side       Side
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	EntryTime  time.Time
}

// Status is a snapshot of a strategy's current configuration and exposure.
// Every implementation returns one; regime fields stay zero for variants
// that do not classify the market. A zero Leverage or PositionSizePct means
// "use the configured default".
type Status struct {
	Name             string  `json:"name"`
	HasPosition      bool    `json:"has_position"`
	Leverage         int     `json:"leverage,omitempty"`
	StopLossPct      float64 `json:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
	PositionSizePct  float64 `json:"position_size_pct,omitempty"`
	Regime           string  `json:"regime,omitempty"`
	RegimeConfidence float64 `json:"regime_confidence,omitempty"`
}

// Strategy produces entry and exit decisions from an indicator table.
//
// Implementations are driven from a single goroutine; they are not required
// to be safe for concurrent use.
type Strategy interface {
	Name() string

	// ShouldEnter reports the side to enter on, if any. Implementations
	// must return no signal on short or NaN-tainted input, and must not
	// signal while already holding a position.
	ShouldEnter(table market.Table, price float64) (Side, bool)

	// ShouldExit reports whether the position should be closed now and the
	// reason. Stop and target checks run before variant-specific exits.
	ShouldExit(table market.Table, price float64, pos Position) (bool, string)

	// StopLoss and TakeProfit derive protective levels from the entry price
	// under the currently active parameter set.
	StopLoss(entry float64, side Side) float64
	TakeProfit(entry float64, side Side) float64

	// SetPosition records (or clears, with nil) the strategy's view of the
	// open position.
	SetPosition(pos *Position)
	HasPosition() bool

	Status() Status
}

// minTableRows is the smallest table any variant will act on.
const minTableRows = 2

// tableReady rejects tables that are too short or whose latest row still has
// warmup NaNs in the columns entry logic reads.
func tableReady(table market.Table, need int) bool {
	if need < minTableRows {
		need = minTableRows
	}
	if table.Len() < need {
		return false
	}
	last := table.Last()
	if math.IsNaN(last.Close) || math.IsNaN(last.EMAFast) || math.IsNaN(last.EMASlow) {
		return false
	}
	return true
}

// volumeOK reports whether the latest volume clears threshold×average.
// An unavailable average fails the check rather than waving entries through.
func volumeOK(table market.Table, threshold float64) bool {
	last := table.Last()
	if math.IsNaN(last.VolumeAvg) || last.VolumeAvg <= 0 {
		return false
	}
	return last.Volume >= last.VolumeAvg*threshold
}

// stopHit and targetHit are the side-aware protective checks shared by all
// variants.
func stopHit(price float64, pos Position) bool {
	if pos.StopLoss <= 0 {
		return false
	}
	if pos.Side == SideLong {
		return price <= pos.StopLoss
	}
	return price >= pos.StopLoss
}

func targetHit(price float64, pos Position) bool {
	if pos.TakeProfit <= 0 {
		return false
	}
	if pos.Side == SideLong {
		return price >= pos.TakeProfit
	}
	return price <= pos.TakeProfit
}

// percentStop and percentTarget derive protective prices from percentage
// offsets.
func percentStop(entry, pct float64, side Side) float64 {
	if side == SideLong {
		return entry * (1 - pct)
	}
	return entry * (1 + pct)
}

func percentTarget(entry, pct float64, side Side) float64 {
	if side == SideLong {
		return entry * (1 + pct)
	}
	return entry * (1 - pct)
}
