package scheduler

import (
	"time"

	"marlin/internal/market"
)

const DefaultKlineGrace = 10 * time.Second

// DropUnclosedKline drops the last candle if it is still in progress.
// Binance returns the current, not-yet-closed kline as the last element;
// signals must only ever see completed candles.
//
// Candle times are milliseconds since epoch.
func DropUnclosedKline(candles []market.Candle, interval time.Duration) []market.Candle {
	return dropUnclosedKlineAt(candles, interval, time.Now().UTC(), DefaultKlineGrace)
}

func dropUnclosedKlineAt(candles []market.Candle, interval time.Duration, now time.Time, grace time.Duration) []market.Candle {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	if grace < 0 {
		grace = 0
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	closeTimeMs := last.OpenTime + interval.Milliseconds()
	if now.UnixMilli() < closeTimeMs+grace.Milliseconds() {
		return candles[:len(candles)-1]
	}
	return candles
}
