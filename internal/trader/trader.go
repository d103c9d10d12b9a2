// Package trader runs the trading cycle: market data in, orders out.
package trader

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"marlin/internal/dashboard"
	"marlin/internal/gateway/exchange"
	"marlin/internal/gateway/notifier"
	"marlin/internal/logger"
	"marlin/internal/market"
	"marlin/internal/pkg/trading"
	"marlin/internal/risk"
	"marlin/internal/store"
	"marlin/internal/strategy"

	"gorm.io/datatypes"
)

// Config carries the orchestrator's own knobs.
type Config struct {
	Symbol        string
	Timeframe     string
	CycleInterval time.Duration
	HistoryLimit  int
	Leverage      int
	MarginType    string
	Capital       float64
	Testnet       bool
}

func (c Config) withDefaults() Config {
	if c.Symbol == "" {
		c.Symbol = "BTCUSDT"
	}
	if c.Timeframe == "" {
		c.Timeframe = "5m"
	}
	if c.CycleInterval <= 0 {
		c.CycleInterval = time.Minute
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 200
	}
	if c.Leverage <= 0 {
		c.Leverage = 3
	}
	if c.MarginType == "" {
		c.MarginType = "ISOLATED"
	}
	return c
}

// Deps are the orchestrator's collaborators, passed explicitly so tests can
// substitute any of them.
type Deps struct {
	Exchange exchange.Exchange
	Feed     *market.Feed
	Strategy strategy.Strategy
	Risk     *risk.Manager
	Notifier notifier.TextNotifier
	State    *dashboard.State
	Journal  *store.Journal     // optional
	Intents  *store.IntentStore // optional
}

// volumeRecorder is implemented by strategies that track traded notional.
type volumeRecorder interface {
	RecordVolume(notional float64)
}

// Trader owns the ledger and drives the per-cycle algorithm. The cycle
// goroutine is the only writer of ledger and daily risk state; remote
// commands reach it only through the pause flag and read-only snapshots.
type Trader struct {
	cfg  Config
	deps Deps

	ledger *Ledger
	state  atomic.Int32
	paused atomic.Bool

	lastPrice    float64
	limitAlerted bool
	sessionPnL   float64
	sessionCount int
}

func New(cfg Config, deps Deps) (*Trader, error) {
	final := cfg.withDefaults()
	if deps.Exchange == nil || deps.Feed == nil || deps.Strategy == nil || deps.Risk == nil {
		return nil, fmt.Errorf("trader requires exchange, feed, strategy and risk manager")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.Noop{}
	}
	if deps.State == nil {
		deps.State = dashboard.NewState()
	}
	t := &Trader{
		cfg:    final,
		deps:   deps,
		ledger: NewLedger(deps.Risk.MaxOpenPositions()),
	}
	t.state.Store(int32(StateInitializing))
	return t, nil
}

// State reports the current lifecycle state.
func (t *Trader) State() State { return State(t.state.Load()) }

func (t *Trader) setState(s State) {
	prev := State(t.state.Swap(int32(s)))
	if prev != s {
		logger.Infof("trader: state %s -> %s", prev, s)
	}
}

// Pause suspends cycle processing after the current cycle completes.
func (t *Trader) Pause() {
	t.paused.Store(true)
	if t.State() == StateRunning {
		t.setState(StatePaused)
	}
}

// Resume restarts cycle processing.
func (t *Trader) Resume() {
	t.paused.Store(false)
	if t.State() == StatePaused {
		t.setState(StateRunning)
	}
}

func (t *Trader) Paused() bool { return t.paused.Load() }

// Run drives the orchestrator until ctx is canceled. Configuration failures
// at startup abort; cycle failures are contained and the loop continues.
func (t *Trader) Run(ctx context.Context) error {
	if err := t.initialize(ctx); err != nil {
		t.setState(StateShuttingDown)
		t.finalReport()
		t.setState(StateStopped)
		return fmt.Errorf("trader startup: %w", err)
	}
	t.setState(StateRunning)
	t.notify(notifier.StartupMessage(t.cfg.Symbol, t.cfg.Timeframe, t.cfg.Capital, t.cfg.Testnet))

	ticker := time.NewTicker(t.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		if t.Paused() {
			t.publish()
		} else {
			t.safeCycle(ctx)
		}
		select {
		case <-ctx.Done():
			t.setState(StateShuttingDown)
			t.finalReport()
			t.setState(StateStopped)
			return nil
		case <-ticker.C:
		}
	}
}

func (t *Trader) initialize(ctx context.Context) error {
	if err := t.deps.Exchange.SetMarginType(ctx, t.cfg.Symbol, t.cfg.MarginType); err != nil {
		return fmt.Errorf("setting margin type: %w", err)
	}
	if err := t.deps.Exchange.SetLeverage(ctx, t.cfg.Symbol, t.cfg.Leverage); err != nil {
		return fmt.Errorf("setting leverage: %w", err)
	}
	return nil
}

// safeCycle contains panics and errors so one bad cycle cannot take the
// loop down.
func (t *Trader) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle panic: %v", r)
			logger.Errorf("trader: %v", err)
			t.deps.State.SetError(err)
			t.notify(notifier.ErrorMessage("trading cycle", err))
		}
	}()
	if err := t.cycle(ctx); err != nil {
		logger.Errorf("trader: cycle failed: %v", err)
		t.deps.State.SetError(err)
		t.deps.State.AddLog("error", err.Error())
		t.notify(notifier.ErrorMessage("trading cycle", err))
		return
	}
	t.deps.State.SetError(nil)
}

func (t *Trader) cycle(ctx context.Context) error {
	balance, err := t.deps.Exchange.Balance(ctx)
	if err != nil {
		return fmt.Errorf("fetching balance: %w", err)
	}

	if !t.deps.Risk.CheckDailyLossLimit() {
		if !t.limitAlerted {
			t.limitAlerted = true
			stats := t.deps.Risk.DailyStats()
			t.notify(notifier.DailyLimitMessage(stats.PnL, t.deps.Risk.DailyLossLimit()))
			logger.Warnf("trader: daily loss limit hit, skipping entries until reset")
		}
		t.publishWith(balance.Total)
		return nil
	}
	t.limitAlerted = false

	table, err := t.deps.Feed.Table(ctx, t.cfg.Symbol, t.cfg.Timeframe, t.cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("building indicator table: %w", err)
	}
	price, err := t.deps.Exchange.TickerPrice(ctx, t.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetching ticker: %w", err)
	}
	t.lastPrice = price

	if err := t.reconcile(ctx); err != nil {
		return fmt.Errorf("reconciling positions: %w", err)
	}

	t.evaluateExits(ctx, table, price)
	t.evaluateEntry(ctx, table, price, balance)

	t.publishWith(balance.Total)
	return nil
}

// reconcile trues the ledger up against the exchange: adopt unknown
// positions, drop vanished ones.
func (t *Trader) reconcile(ctx context.Context) error {
	reported, err := t.deps.Exchange.OpenPositions(ctx)
	if err != nil {
		return err
	}
	onExchange := make(map[string]exchange.Position, len(reported))
	for _, p := range reported {
		if p.Symbol == t.cfg.Symbol && p.Amount != 0 {
			onExchange[p.Symbol] = p
		}
	}

	for _, tracked := range t.ledger.Positions() {
		if _, ok := onExchange[tracked.Symbol]; !ok {
			logger.Warnf("trader: tracked %s position vanished from exchange, dropping", tracked.Symbol)
			t.ledger.Remove(tracked.Symbol)
			t.deleteIntent(ctx, tracked.Symbol)
		}
	}

	for symbol, reported := range onExchange {
		if _, ok := t.ledger.Find(symbol); ok {
			continue
		}
		adopted := t.adopt(ctx, reported)
		if err := t.ledger.Add(adopted); err != nil {
			logger.Warnf("trader: cannot adopt %s position: %v", symbol, err)
			continue
		}
		logger.Warnf("trader: adopted untracked %s %s position (qty %v, entry %.4f, synthesized levels: %t)",
			adopted.Side, symbol, adopted.Quantity, adopted.EntryPrice, adopted.LevelsSynthesized)
	}

	t.syncStrategyPosition()
	return nil
}

// adopt builds a ledger position from an exchange-reported one. The intent
// store restores the stop and target chosen at entry; without a stored
// intent they are synthesized from the active parameter set and flagged.
func (t *Trader) adopt(ctx context.Context, p exchange.Position) Position {
	side := strategy.SideLong
	if p.Amount < 0 {
		side = strategy.SideShort
	}
	pos := Position{
		Symbol:     p.Symbol,
		Side:       side,
		EntryPrice: p.EntryPrice,
		Quantity:   math.Abs(p.Amount),
		EntryTime:  time.Now().UTC(),
	}
	if t.deps.Intents != nil {
		if intent, found, err := t.deps.Intents.Get(ctx, p.Symbol); err == nil && found &&
			intent.Side == string(side) {
			pos.StopLoss = intent.StopLoss
			pos.TakeProfit = intent.TakeProfit
			pos.EntryTime = intent.EntryTime
			return pos
		}
	}
	pos.StopLoss = t.deps.Strategy.StopLoss(p.EntryPrice, side)
	pos.TakeProfit = t.deps.Strategy.TakeProfit(p.EntryPrice, side)
	pos.LevelsSynthesized = true
	return pos
}

func (t *Trader) evaluateExits(ctx context.Context, table market.Table, price float64) {
	for _, pos := range t.ledger.Positions() {
		exit, reason := t.deps.Strategy.ShouldExit(table, price, pos.StrategyView())
		if !exit {
			continue
		}
		if err := t.closePosition(ctx, pos, reason); err != nil {
			logger.Errorf("trader: closing %s position failed: %v", pos.Symbol, err)
			t.notify(notifier.ErrorMessage("closing position", err))
		}
	}
}

func (t *Trader) closePosition(ctx context.Context, pos Position, reason string) error {
	order, err := t.deps.Exchange.PlaceMarketOrder(ctx, pos.Symbol, pos.Side.CloseOrderSide(), pos.Quantity)
	if err != nil {
		return err
	}
	exitPrice := order.AvgPrice
	if exitPrice <= 0 {
		exitPrice = t.lastPrice
	}
	pnl := pos.RealizedPnL(exitPrice)
	pnlPct := pos.PnLPercent(exitPrice)

	t.deps.Risk.RecordTrade(pnl)
	t.sessionPnL += pnl
	t.sessionCount++
	t.ledger.Remove(pos.Symbol)
	t.deleteIntent(ctx, pos.Symbol)
	t.syncStrategyPosition()
	t.recordVolume(exitPrice, pos.Quantity)

	logger.Infof("trader: closed %s %s @ %.4f (%s), P/L %+.2f (%+.2f%%)",
		pos.Side, pos.Symbol, exitPrice, reason, pnl, pnlPct)
	t.deps.State.AddLog("info", fmt.Sprintf("closed %s %s @ %.4f (%s), P/L %+.2f",
		pos.Side, pos.Symbol, exitPrice, reason, pnl))
	t.notify(notifier.ExitMessage(pos.Symbol, string(pos.Side), reason, exitPrice, pnl, pnlPct))
	t.deps.State.AddTrade(dashboard.TradeEntry{
		Symbol:   pos.Symbol,
		Side:     string(pos.Side),
		Action:   "CLOSE",
		Price:    exitPrice,
		Quantity: pos.Quantity,
		PnL:      pnl,
		Reason:   reason,
	})
	t.journalTrade(ctx, pos, exitPrice, pnl, pnlPct, reason)
	return nil
}

func (t *Trader) evaluateEntry(ctx context.Context, table market.Table, price float64, balance exchange.Balance) {
	if !t.deps.Risk.CanOpenPosition(t.ledger.Len()) {
		return
	}
	side, ok := t.deps.Strategy.ShouldEnter(table, price)
	if !ok {
		return
	}

	status := t.deps.Strategy.Status()
	leverage := status.Leverage
	if leverage <= 0 {
		leverage = t.cfg.Leverage
	}
	if leverage != t.cfg.Leverage || status.Leverage > 0 {
		if err := t.deps.Exchange.SetLeverage(ctx, t.cfg.Symbol, leverage); err != nil {
			logger.Warnf("trader: adjusting leverage failed, keeping previous: %v", err)
		}
	}

	capital := balance.Available
	if capital <= 0 {
		capital = t.cfg.Capital
	}
	stop := t.deps.Strategy.StopLoss(price, side)
	size := t.deps.Risk.PositionSize(capital, price, stop, leverage)
	if size <= 0 {
		logger.Warnf("trader: %s signal skipped, size resolved to zero", side)
		return
	}
	size = t.deps.Exchange.FormatQuantity(t.cfg.Symbol, size)
	if size <= 0 {
		logger.Warnf("trader: %s signal skipped, size below exchange step", side)
		return
	}

	order, err := t.deps.Exchange.PlaceMarketOrder(ctx, t.cfg.Symbol, side.OrderSide(), size)
	if err != nil {
		logger.Errorf("trader: opening %s position failed: %v", side, err)
		t.notify(notifier.ErrorMessage("opening position", err))
		return
	}
	entryPrice := order.AvgPrice
	if entryPrice <= 0 {
		entryPrice = price
	}

	pos := Position{
		Symbol:     t.cfg.Symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   order.Quantity,
		StopLoss:   t.deps.Strategy.StopLoss(entryPrice, side),
		TakeProfit: t.deps.Strategy.TakeProfit(entryPrice, side),
		OrderID:    order.OrderID,
		EntryTime:  time.Now().UTC(),
	}
	if err := t.ledger.Add(pos); err != nil {
		logger.Errorf("trader: ledger rejected new position: %v", err)
		return
	}
	t.syncStrategyPosition()
	t.saveIntent(ctx, pos)
	t.recordVolume(entryPrice, pos.Quantity)

	logger.Infof("trader: opened %s %s qty %v @ %.4f (stop %.4f, target %.4f, %dx)",
		side, pos.Symbol, pos.Quantity, entryPrice, pos.StopLoss, pos.TakeProfit, leverage)
	t.deps.State.AddLog("info", fmt.Sprintf("opened %s %s qty %v @ %.4f",
		side, pos.Symbol, pos.Quantity, entryPrice))
	t.notify(notifier.EntryMessage(pos.Symbol, string(side), pos.Quantity, entryPrice,
		pos.StopLoss, pos.TakeProfit, float64(leverage)))
	t.deps.State.AddTrade(dashboard.TradeEntry{
		Symbol:   pos.Symbol,
		Side:     string(side),
		Action:   "OPEN",
		Price:    entryPrice,
		Quantity: pos.Quantity,
	})
}

// syncStrategyPosition keeps the strategy's private view aligned with the
// ledger. Single-position strategies see the first tracked position.
func (t *Trader) syncStrategyPosition() {
	positions := t.ledger.Positions()
	if len(positions) == 0 {
		t.deps.Strategy.SetPosition(nil)
		return
	}
	view := positions[0].StrategyView()
	t.deps.Strategy.SetPosition(&view)
}

func (t *Trader) recordVolume(price, quantity float64) {
	if rec, ok := t.deps.Strategy.(volumeRecorder); ok {
		rec.RecordVolume(trading.Notional(price, quantity))
	}
}

func (t *Trader) saveIntent(ctx context.Context, pos Position) {
	if t.deps.Intents == nil {
		return
	}
	err := t.deps.Intents.Save(ctx, store.Intent{
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		EntryTime:  pos.EntryTime,
	})
	if err != nil {
		logger.Warnf("trader: persisting position intent failed: %v", err)
	}
}

func (t *Trader) deleteIntent(ctx context.Context, symbol string) {
	if t.deps.Intents == nil {
		return
	}
	if err := t.deps.Intents.Delete(ctx, symbol); err != nil {
		logger.Warnf("trader: deleting position intent failed: %v", err)
	}
}

func (t *Trader) journalTrade(ctx context.Context, pos Position, exitPrice, pnl, pnlPct float64, reason string) {
	if t.deps.Journal == nil {
		return
	}
	status := t.deps.Strategy.Status()
	var regimeDetail datatypes.JSON
	if status.Regime != "" {
		if b, err := json.Marshal(map[string]any{
			"regime":     status.Regime,
			"confidence": status.RegimeConfidence,
		}); err == nil {
			regimeDetail = datatypes.JSON(b)
		}
	}
	rec := &store.TradeRecord{
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		Strategy:   status.Name,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
		Regime:     regimeDetail,
		EntryTime:  pos.EntryTime,
		ExitTime:   time.Now().UTC(),
	}
	if err := t.deps.Journal.Record(ctx, rec); err != nil {
		logger.Warnf("trader: journaling trade failed: %v", err)
	}
}

func (t *Trader) publish() { t.publishWith(0) }

func (t *Trader) publishWith(balance float64) {
	views := make([]dashboard.PositionView, 0, t.ledger.Len())
	for _, p := range t.ledger.Positions() {
		views = append(views, dashboard.PositionView{
			Symbol:     p.Symbol,
			Side:       string(p.Side),
			EntryPrice: p.EntryPrice,
			Quantity:   p.Quantity,
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			EntryTime:  p.EntryTime,
		})
	}
	state := t.State()
	t.deps.State.Publish(dashboard.Update{
		Running:    state == StateRunning || state == StatePaused,
		Paused:     t.Paused(),
		State:      state.String(),
		Symbol:     t.cfg.Symbol,
		Price:      t.lastPrice,
		Balance:    balance,
		Positions:  views,
		Strategy:   t.deps.Strategy.Status(),
		DailyStats: t.deps.Risk.DailyStats(),
	})
}

func (t *Trader) finalReport() {
	stats := t.deps.Risk.DailyStats()
	t.notify(notifier.DailySummaryMessage(time.Now().UTC(), stats.PnL, stats.Trades, stats.Wins))
	t.notify(notifier.ShutdownMessage(t.sessionPnL, t.sessionCount))
	t.publish()
	logger.Infof("trader: stopped, session P/L %+.2f over %d trade(s)", t.sessionPnL, t.sessionCount)
}

func (t *Trader) notify(text string) {
	if err := t.deps.Notifier.SendText(text); err != nil {
		logger.Warnf("trader: notification failed: %v", err)
	}
}
