// Package dashboard holds the lock-guarded state the HTTP layer serves.
// Background tasks publish into it; nothing here calls back into the trader.
package dashboard

import (
	"sync"
	"time"

	"marlin/internal/risk"
	"marlin/internal/strategy"
)

const (
	maxLogEntries   = 100
	maxTradeEntries = 50
)

// LogEntry is one dashboard-visible log line.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// TradeEntry is one dashboard-visible fill.
type TradeEntry struct {
	Time     time.Time `json:"time"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Action   string    `json:"action"` // OPEN or CLOSE
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	PnL      float64   `json:"pnl,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// PositionView is the dashboard's copy of an open position.
type PositionView struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	EntryTime  time.Time `json:"entry_time"`
}

// Snapshot is an immutable copy of the whole state.
type Snapshot struct {
	Running      bool            `json:"running"`
	Paused       bool            `json:"paused"`
	State        string          `json:"state"`
	Symbol       string          `json:"symbol"`
	Price        float64         `json:"price"`
	Balance      float64         `json:"balance"`
	Positions    []PositionView  `json:"positions"`
	Strategy     strategy.Status `json:"strategy"`
	DailyStats   risk.DailyStats `json:"daily_stats"`
	LastError    string          `json:"last_error,omitempty"`
	LastErrorAt  time.Time       `json:"last_error_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    time.Time       `json:"started_at"`
	Logs         []LogEntry      `json:"logs"`
	Trades       []TradeEntry    `json:"trades"`
}

// Update carries the per-cycle fields the trader publishes.
type Update struct {
	Running    bool
	Paused     bool
	State      string
	Symbol     string
	Price      float64
	Balance    float64
	Positions  []PositionView
	Strategy   strategy.Status
	DailyStats risk.DailyStats
}

// State is the shared sink. All methods take the one mutex; none of them
// block on anything else.
type State struct {
	mu        sync.RWMutex
	snap      Snapshot
	startedAt time.Time
}

func NewState() *State {
	now := time.Now().UTC()
	return &State{
		snap:      Snapshot{StartedAt: now, UpdatedAt: now},
		startedAt: now,
	}
}

// Publish replaces the per-cycle fields.
func (s *State) Publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Running = u.Running
	s.snap.Paused = u.Paused
	s.snap.State = u.State
	s.snap.Symbol = u.Symbol
	s.snap.Price = u.Price
	s.snap.Balance = u.Balance
	s.snap.Positions = append([]PositionView(nil), u.Positions...)
	s.snap.Strategy = u.Strategy
	s.snap.DailyStats = u.DailyStats
	s.snap.UpdatedAt = time.Now().UTC()
}

// AddLog appends one log line, keeping the newest maxLogEntries.
func (s *State) AddLog(level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Logs = append(s.snap.Logs, LogEntry{
		Time:    time.Now().UTC(),
		Level:   level,
		Message: message,
	})
	if n := len(s.snap.Logs); n > maxLogEntries {
		s.snap.Logs = s.snap.Logs[n-maxLogEntries:]
	}
}

// AddTrade appends one fill, keeping the newest maxTradeEntries.
func (s *State) AddTrade(t TradeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Time.IsZero() {
		t.Time = time.Now().UTC()
	}
	s.snap.Trades = append(s.snap.Trades, t)
	if n := len(s.snap.Trades); n > maxTradeEntries {
		s.snap.Trades = s.snap.Trades[n-maxTradeEntries:]
	}
}

// SetError records the latest cycle error.
func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.snap.LastError = ""
		s.snap.LastErrorAt = time.Time{}
		return
	}
	s.snap.LastError = err.Error()
	s.snap.LastErrorAt = time.Now().UTC()
}

// Snapshot returns a deep enough copy that callers can hold it without
// racing later writers.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Positions = append([]PositionView(nil), s.snap.Positions...)
	out.Logs = append([]LogEntry(nil), s.snap.Logs...)
	out.Trades = append([]TradeEntry(nil), s.snap.Trades...)
	return out
}
