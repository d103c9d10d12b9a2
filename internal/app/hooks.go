package app

import (
	"fmt"
	"strings"

	"marlin/internal/gateway/command"
)

// commandHooks renders remote-command replies from the dashboard snapshot
// only — the risk manager is unguarded and owned by the cycle goroutine, so
// the poller must never touch it. Pause and resume only flip the trader's
// flag.
func (a *App) commandHooks() command.Hooks {
	return command.Hooks{
		Status: func() string {
			snap := a.state.Snapshot()
			var b strings.Builder
			fmt.Fprintf(&b, "State: %s\n", snap.State)
			fmt.Fprintf(&b, "Pair: %s @ %.4f\n", snap.Symbol, snap.Price)
			fmt.Fprintf(&b, "Strategy: %s", snap.Strategy.Name)
			if snap.Strategy.Regime != "" {
				fmt.Fprintf(&b, " (%s, conf %.2f)", snap.Strategy.Regime, snap.Strategy.RegimeConfidence)
			}
			fmt.Fprintf(&b, "\nOpen positions: %d", len(snap.Positions))
			if snap.LastError != "" {
				fmt.Fprintf(&b, "\nLast error: %s", snap.LastError)
			}
			return b.String()
		},
		Balance: func() string {
			snap := a.state.Snapshot()
			return fmt.Sprintf("Balance: %.2f USDT", snap.Balance)
		},
		Daily: func() string {
			stats := a.state.Snapshot().DailyStats
			return fmt.Sprintf("Today (%s)\nP/L: %+.2f USDT\nTrades: %d (%d wins, %d losses)\nWin rate: %.1f%%",
				stats.Day, stats.PnL, stats.Trades, stats.Wins, stats.Losses, stats.WinRate)
		},
		Position: func() string {
			snap := a.state.Snapshot()
			if len(snap.Positions) == 0 {
				return "No open position."
			}
			var b strings.Builder
			for i, p := range snap.Positions {
				if i > 0 {
					b.WriteString("\n\n")
				}
				fmt.Fprintf(&b, "%s %s\nQty: %v @ %.4f\nStop: %.4f\nTarget: %.4f",
					p.Side, p.Symbol, p.Quantity, p.EntryPrice, p.StopLoss, p.TakeProfit)
			}
			return b.String()
		},
		Pause: func() string {
			a.trader.Pause()
			return "Trading paused. Cycles are suspended, open positions are untouched; /resume to continue."
		},
		Resume: func() string {
			a.trader.Resume()
			return "Trading resumed."
		},
	}
}
