// Package app wires the configured collaborators together and runs them.
package app

import (
	"context"
	"fmt"

	"marlin/internal/config"
	"marlin/internal/dashboard"
	"marlin/internal/gateway/binance"
	"marlin/internal/gateway/command"
	"marlin/internal/gateway/notifier"
	"marlin/internal/logger"
	"marlin/internal/market"
	"marlin/internal/risk"
	"marlin/internal/store"
	"marlin/internal/strategy"
	"marlin/internal/trader"
	livehttp "marlin/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App owns the built object graph. Construction is explicit here so every
// dependency is visible in one place and tests can build partial graphs.
type App struct {
	cfg     *config.Config
	cfgPath string

	trader  *trader.Trader
	server  *livehttp.Server
	poller  *command.Poller
	journal *store.Journal
	intents *store.IntentStore
	state   *dashboard.State
}

// Build constructs the full application from a validated configuration.
// cfgPath enables live reloads; pass "" to disable watching.
func Build(ctx context.Context, cfg *config.Config, cfgPath string) (*App, error) {
	client, err := binance.New(binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		APISecret:   cfg.Exchange.APISecret,
		Testnet:     cfg.Exchange.Testnet,
		HTTPTimeout: cfg.Exchange.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("building exchange client: %w", err)
	}
	if err := client.LoadSymbolInfo(ctx); err != nil {
		return nil, fmt.Errorf("loading symbol info: %w", err)
	}

	riskCfg := risk.Config{
		InitialCapital:   cfg.Trading.Capital,
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		MaxPositionPct:   cfg.Risk.MaxPositionPct,
		MaxDailyLossPct:  cfg.Risk.MaxDailyLossPct,
		MaxLeverage:      cfg.Risk.MaxLeverage,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
	}
	if info, ok := client.SymbolInfo(cfg.Trading.Pair); ok {
		riskCfg.QuantityPrecision = info.QuantityPrecision
		riskCfg.PricePrecision = info.PricePrecision
		riskCfg.MinQuantity = info.MinQuantity
	}
	riskManager := risk.New(riskCfg)

	strat, err := strategy.New(cfg.Strategy.Name, strategy.Options{
		Adaptive:   strategy.AdaptiveConfig{},
		FundingArb: strategy.FundingArbConfig{Symbol: cfg.Trading.Pair},
	})
	if err != nil {
		return nil, fmt.Errorf("building strategy: %w", err)
	}

	journal, err := store.NewJournal(cfg.Storage.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("opening trade journal: %w", err)
	}
	intents, err := store.NewIntentStore(cfg.Storage.IntentPath)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("opening intent store: %w", err)
	}

	var note notifier.TextNotifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		note = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	state := dashboard.NewState()
	bot, err := trader.New(trader.Config{
		Symbol:        cfg.Trading.Pair,
		Timeframe:     cfg.Trading.Timeframe,
		CycleInterval: cfg.Trading.CycleInterval,
		HistoryLimit:  cfg.Trading.HistoryLimit,
		Leverage:      cfg.Trading.Leverage,
		MarginType:    cfg.Trading.MarginType,
		Capital:       cfg.Trading.Capital,
		Testnet:       cfg.Exchange.Testnet,
	}, trader.Deps{
		Exchange: client,
		Feed:     market.NewFeed(client, market.IndicatorConfig{}),
		Strategy: strat,
		Risk:     riskManager,
		Notifier: note,
		State:    state,
		Journal:  journal,
		Intents:  intents,
	})
	if err != nil {
		journal.Close()
		intents.Close()
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		trader:  bot,
		journal: journal,
		intents: intents,
		state:   state,
	}

	if cfg.Server.Enabled {
		a.server, err = livehttp.NewServer(livehttp.ServerConfig{
			Addr:    cfg.Server.Addr,
			State:   state,
			Journal: journal,
		})
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("building dashboard server: %w", err)
		}
	}

	if cfg.Telegram.EnableCommands {
		a.poller, err = command.NewPoller(command.Config{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
		}, a.commandHooks())
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("building command poller: %w", err)
		}
	}

	return a, nil
}

// Run starts every component and blocks until ctx is canceled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	defer a.closeStores()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.trader.Run(ctx) })
	if a.server != nil {
		g.Go(func() error { return a.server.Start(ctx) })
	}
	if a.poller != nil {
		g.Go(func() error { return a.poller.Run(ctx) })
	}
	if a.cfgPath != "" {
		g.Go(func() error {
			return config.Watch(ctx, a.cfgPath, func(next *config.Config) {
				// Only logging honors live changes; everything else needs
				// a restart to avoid mid-cycle reconfiguration.
				logger.SetLevel(next.Log.Level)
			})
		})
	}
	return g.Wait()
}

func (a *App) closeStores() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("app: closing journal: %v", err)
		}
		a.journal = nil
	}
	if a.intents != nil {
		if err := a.intents.Close(); err != nil {
			logger.Warnf("app: closing intent store: %v", err)
		}
		a.intents = nil
	}
}
