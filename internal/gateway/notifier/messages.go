package notifier

import (
	"fmt"
	"time"

	"marlin/internal/pkg/trading"
)

// Message builders keep the alert wording in one place so the orchestrator
// and the command handler produce identical formatting.

func StartupMessage(pair, timeframe string, capital float64, testnet bool) string {
	env := "mainnet"
	if testnet {
		env = "testnet"
	}
	return fmt.Sprintf("🤖 *Bot started*\nPair: `%s` @ %s\nCapital: %.2f USDT\nEnvironment: %s",
		pair, timeframe, capital, env)
}

func ShutdownMessage(realizedPnL float64, trades int) string {
	return fmt.Sprintf("🛑 *Bot stopped*\nSession P/L: %+.2f USDT over %d trade(s)", realizedPnL, trades)
}

func EntryMessage(symbol, side string, quantity, entryPrice, stopLoss, takeProfit, leverage float64) string {
	notional := trading.Notional(entryPrice, quantity)
	slPct := trading.RelativeOffset(stopLoss, entryPrice) * 100
	tpPct := trading.RelativeOffset(takeProfit, entryPrice) * 100
	return fmt.Sprintf("📈 *%s %s*\nQty: %v (%.2f USDT) @ %.4f\nLeverage: %.0fx\nStop: %.4f (%+.2f%%)\nTarget: %.4f (%+.2f%%)",
		side, symbol, quantity, notional, entryPrice, leverage, stopLoss, slPct, takeProfit, tpPct)
}

func ExitMessage(symbol, side, reason string, exitPrice, pnl, pnlPct float64) string {
	icon := "✅"
	if pnl < 0 {
		icon = "❌"
	}
	return fmt.Sprintf("%s *Closed %s %s* @ %.4f\nReason: %s\nP/L: %+.2f USDT (%+.2f%%)",
		icon, side, symbol, exitPrice, reason, pnl, pnlPct)
}

func DailyLimitMessage(dailyPnL, limit float64) string {
	return fmt.Sprintf("⚠️ *Daily loss limit reached*\nToday: %+.2f USDT (limit %.2f)\nNew entries suspended until the next UTC day.",
		dailyPnL, limit)
}

func DailySummaryMessage(day time.Time, pnl float64, trades, wins int) string {
	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades) * 100
	}
	return fmt.Sprintf("📊 *Daily summary %s*\nP/L: %+.2f USDT\nTrades: %d (win rate %.1f%%)",
		day.Format("2006-01-02"), pnl, trades, winRate)
}

func ErrorMessage(context string, err error) string {
	return fmt.Sprintf("🚨 *Error*\n%s: %v", context, err)
}
