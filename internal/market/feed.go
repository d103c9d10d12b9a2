package market

import (
	"context"
	"fmt"

	"marlin/internal/logger"
)

// KlineSource supplies raw candle history. The Binance gateway implements it;
// tests substitute a fixture.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// Feed pulls candle history and attaches the indicator columns, producing the
// per-cycle table snapshot consumed by strategies and the regime classifier.
type Feed struct {
	source KlineSource
	cfg    IndicatorConfig
}

func NewFeed(source KlineSource, cfg IndicatorConfig) *Feed {
	return &Feed{source: source, cfg: cfg.withDefaults()}
}

func (f *Feed) Table(ctx context.Context, symbol, interval string, limit int) (Table, error) {
	candles, err := f.source.Klines(ctx, symbol, interval, limit)
	if err != nil {
		return Table{}, fmt.Errorf("fetching klines for %s %s: %w", symbol, interval, err)
	}
	logger.Debugf("feed: %d candles for %s %s", len(candles), symbol, interval)
	return AddIndicators(candles, f.cfg), nil
}
