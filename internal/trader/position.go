package trader

import (
	"time"

	"marlin/internal/strategy"
)

// Position is one open position as the ledger believes it. It is a value
// type: readers get copies, and changes go through the ledger's mutation
// API, never through aliasing.
type Position struct {
	Symbol     string
	Side       strategy.Side
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	OrderID    int64
	EntryTime  time.Time

	// LevelsSynthesized marks stops and targets recreated from the current
	// parameter set during reconciliation, as opposed to the ones intended
	// at entry.
	LevelsSynthesized bool
}

// StrategyView narrows the position to the fields strategies see.
func (p Position) StrategyView() strategy.Position {
	return strategy.Position{
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		Quantity:   p.Quantity,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		EntryTime:  p.EntryTime,
	}
}

// RealizedPnL is the profit of closing the full position at exitPrice.
func (p Position) RealizedPnL(exitPrice float64) float64 {
	if p.Side == strategy.SideShort {
		return (p.EntryPrice - exitPrice) * p.Quantity
	}
	return (exitPrice - p.EntryPrice) * p.Quantity
}

// PnLPercent is the unleveraged percentage move in the position's favor.
func (p Position) PnLPercent(exitPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Side == strategy.SideShort {
		return (p.EntryPrice - exitPrice) / p.EntryPrice * 100
	}
	return (exitPrice - p.EntryPrice) / p.EntryPrice * 100
}
