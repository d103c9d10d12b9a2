// Package store persists closed trades and open-position intents to SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TradeRecord is one closed round trip.
type TradeRecord struct {
	ID         int64          `gorm:"column:id;primaryKey" json:"id"`
	Symbol     string         `gorm:"column:symbol;index" json:"symbol"`
	Side       string         `gorm:"column:side" json:"side"`
	Strategy   string         `gorm:"column:strategy" json:"strategy"`
	EntryPrice float64        `gorm:"column:entry_price" json:"entry_price"`
	ExitPrice  float64        `gorm:"column:exit_price" json:"exit_price"`
	Quantity   float64        `gorm:"column:quantity" json:"quantity"`
	PnL        float64        `gorm:"column:pnl" json:"pnl"`
	PnLPct     float64        `gorm:"column:pnl_pct" json:"pnl_pct"`
	Reason     string         `gorm:"column:reason" json:"reason"`
	Regime     datatypes.JSON `gorm:"column:regime" json:"regime,omitempty"`
	EntryTime  time.Time      `gorm:"column:entry_time" json:"entry_time"`
	ExitTime   time.Time      `gorm:"column:exit_time;index" json:"exit_time"`
}

func (TradeRecord) TableName() string { return "trade_journal" }

// DailyPnL is one day's aggregate, for charting.
type DailyPnL struct {
	Day    string  `gorm:"column:day" json:"day"`
	PnL    float64 `gorm:"column:pnl" json:"pnl"`
	Trades int     `gorm:"column:trades" json:"trades"`
}

// Journal records closed trades in SQLite via Gorm.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (creating if needed) the trade journal at path.
func NewJournal(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&TradeRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrating schema: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little read parallelism for the HTTP handlers without
	// write contention.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	return &Journal{db: db}, nil
}

// Record appends one closed trade.
func (j *Journal) Record(ctx context.Context, rec *TradeRecord) error {
	if err := j.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("journal: recording trade: %w", err)
	}
	return nil
}

// Recent returns up to limit trades, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []TradeRecord
	err := j.db.WithContext(ctx).
		Order("exit_time DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("journal: listing trades: %w", err)
	}
	return out, nil
}

// DailyPnL aggregates realized P/L per UTC day over the last days days,
// oldest first.
func (j *Journal) DailyPnL(ctx context.Context, days int) ([]DailyPnL, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	var out []DailyPnL
	err := j.db.WithContext(ctx).
		Model(&TradeRecord{}).
		Select("strftime('%Y-%m-%d', exit_time) AS day, SUM(pnl) AS pnl, COUNT(*) AS trades").
		Where("exit_time >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("journal: aggregating daily pnl: %w", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return nil
}
