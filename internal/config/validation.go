package config

import (
	"fmt"

	"marlin/internal/scheduler"
)

var knownStrategies = map[string]bool{
	"ema_crossover":     true,
	"adaptive":          true,
	"volume_farm":       true,
	"funding_arbitrage": true,
}

func (c *Config) validate() error {
	if c.Trading.Capital <= 0 {
		return fmt.Errorf("trading.capital must be positive, got %v", c.Trading.Capital)
	}
	if c.Trading.Leverage < 1 || c.Trading.Leverage > 125 {
		return fmt.Errorf("trading.leverage must be within [1,125], got %d", c.Trading.Leverage)
	}
	if _, ok := scheduler.ParseIntervalDuration(c.Trading.Timeframe); !ok {
		return fmt.Errorf("trading.timeframe %q is not a valid interval", c.Trading.Timeframe)
	}
	if c.Trading.MarginType != "ISOLATED" && c.Trading.MarginType != "CROSSED" {
		return fmt.Errorf("trading.margin_type must be ISOLATED or CROSSED, got %q", c.Trading.MarginType)
	}
	if c.Trading.CycleInterval < 0 {
		return fmt.Errorf("trading.cycle_interval must not be negative")
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 0.1 {
		return fmt.Errorf("risk.risk_per_trade must be within (0,0.1], got %v", c.Risk.RiskPerTrade)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be within (0,1], got %v", c.Risk.MaxPositionPct)
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be within (0,1], got %v", c.Risk.MaxDailyLossPct)
	}
	if c.Risk.MaxLeverage < c.Trading.Leverage {
		return fmt.Errorf("risk.max_leverage (%d) below trading.leverage (%d)", c.Risk.MaxLeverage, c.Trading.Leverage)
	}
	if c.Risk.MaxOpenPositions < 1 {
		return fmt.Errorf("risk.max_open_positions must be at least 1")
	}
	if !knownStrategies[c.Strategy.Name] {
		return fmt.Errorf("strategy.name %q is not recognized", c.Strategy.Name)
	}
	if c.Telegram.EnableCommands && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.enable_commands requires telegram.bot_token and telegram.chat_id")
	}
	return nil
}
