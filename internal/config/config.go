// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ExchangeConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	APISecret   string        `mapstructure:"api_secret"`
	Testnet     bool          `mapstructure:"testnet"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type TradingConfig struct {
	Pair          string        `mapstructure:"pair"`
	Timeframe     string        `mapstructure:"timeframe"`
	Capital       float64       `mapstructure:"capital"`
	Leverage      int           `mapstructure:"leverage"`
	MarginType    string        `mapstructure:"margin_type"`
	CycleInterval time.Duration `mapstructure:"cycle_interval"`
	HistoryLimit  int           `mapstructure:"history_limit"`
}

type RiskConfig struct {
	RiskPerTrade     float64 `mapstructure:"risk_per_trade"`
	MaxPositionPct   float64 `mapstructure:"max_position_pct"`
	MaxDailyLossPct  float64 `mapstructure:"max_daily_loss_pct"`
	MaxLeverage      int     `mapstructure:"max_leverage"`
	MaxOpenPositions int     `mapstructure:"max_open_positions"`
}

type StrategyConfig struct {
	Name string `mapstructure:"name"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	ChatID         string `mapstructure:"chat_id"`
	EnableCommands bool   `mapstructure:"enable_commands"`
}

type StorageConfig struct {
	JournalPath string `mapstructure:"journal_path"`
	IntentPath  string `mapstructure:"intent_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads path, applies MARLIN_* environment overrides, fills defaults
// and validates the result.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MARLIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Pair == "" {
		c.Trading.Pair = "BTCUSDT"
	}
	c.Trading.Pair = strings.ToUpper(strings.TrimSpace(c.Trading.Pair))
	if c.Trading.Timeframe == "" {
		c.Trading.Timeframe = "5m"
	}
	if c.Trading.Leverage == 0 {
		c.Trading.Leverage = 3
	}
	if c.Trading.MarginType == "" {
		c.Trading.MarginType = "ISOLATED"
	}
	c.Trading.MarginType = strings.ToUpper(strings.TrimSpace(c.Trading.MarginType))
	if c.Trading.CycleInterval == 0 {
		c.Trading.CycleInterval = time.Minute
	}
	if c.Trading.HistoryLimit == 0 {
		c.Trading.HistoryLimit = 200
	}
	if c.Risk.RiskPerTrade == 0 {
		c.Risk.RiskPerTrade = 0.02
	}
	if c.Risk.MaxPositionPct == 0 {
		c.Risk.MaxPositionPct = 0.05
	}
	if c.Risk.MaxDailyLossPct == 0 {
		c.Risk.MaxDailyLossPct = 0.05
	}
	if c.Risk.MaxLeverage == 0 {
		c.Risk.MaxLeverage = 20
	}
	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = 1
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "ema_crossover"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.JournalPath == "" {
		c.Storage.JournalPath = "data/journal.db"
	}
	if c.Storage.IntentPath == "" {
		c.Storage.IntentPath = "data/intents.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
