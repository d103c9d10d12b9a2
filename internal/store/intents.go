package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Intent is the stop/target the bot intended for an open position. Persisted
// at entry so a restart can restore the original levels instead of
// synthesizing new ones from the current parameter set.
type Intent struct {
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	EntryTime  time.Time `json:"entry_time"`
}

// IntentStore keeps at most one intent per symbol.
type IntentStore struct {
	db *sql.DB
}

func NewIntentStore(path string) (*IntentStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("intent store: path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("intent store: opening %s: %w", path, err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS position_intents (
		symbol TEXT PRIMARY KEY,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		entry_time INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("intent store: creating schema: %w", err)
	}
	return &IntentStore{db: db}, nil
}

// Save upserts the intent for its symbol.
func (s *IntentStore) Save(ctx context.Context, in Intent) error {
	const q = `INSERT INTO position_intents
		(symbol, side, entry_price, quantity, stop_loss, take_profit, entry_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
		side=excluded.side, entry_price=excluded.entry_price,
		quantity=excluded.quantity, stop_loss=excluded.stop_loss,
		take_profit=excluded.take_profit, entry_time=excluded.entry_time`
	_, err := s.db.ExecContext(ctx, q,
		in.Symbol, in.Side, in.EntryPrice, in.Quantity,
		in.StopLoss, in.TakeProfit, in.EntryTime.UnixMilli())
	if err != nil {
		return fmt.Errorf("intent store: saving %s: %w", in.Symbol, err)
	}
	return nil
}

// Get returns the intent for symbol, reporting whether one exists.
func (s *IntentStore) Get(ctx context.Context, symbol string) (Intent, bool, error) {
	const q = `SELECT symbol, side, entry_price, quantity, stop_loss, take_profit, entry_time
		FROM position_intents WHERE symbol = ?`
	var in Intent
	var entryMillis int64
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(
		&in.Symbol, &in.Side, &in.EntryPrice, &in.Quantity,
		&in.StopLoss, &in.TakeProfit, &entryMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return Intent{}, false, nil
	}
	if err != nil {
		return Intent{}, false, fmt.Errorf("intent store: reading %s: %w", symbol, err)
	}
	in.EntryTime = time.UnixMilli(entryMillis).UTC()
	return in, true, nil
}

// Delete removes the intent for symbol. Missing rows are not an error.
func (s *IntentStore) Delete(ctx context.Context, symbol string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM position_intents WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("intent store: deleting %s: %w", symbol, err)
	}
	return nil
}

func (s *IntentStore) Close() error { return s.db.Close() }
