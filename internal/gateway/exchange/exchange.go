// Package exchange defines the narrow abstraction the trading core uses to
// talk to a derivatives exchange. The core never imports an exchange SDK
// directly; it sees only this interface, so backends can be swapped and tests
// can substitute a mock.
package exchange

import (
	"context"

	"marlin/internal/market"
)

type Exchange interface {
	// Balance returns the account's total and available stake-currency funds.
	Balance(ctx context.Context) (Balance, error)

	// TickerPrice returns the last traded price for a symbol.
	TickerPrice(ctx context.Context, symbol string) (float64, error)

	// Klines returns up to limit historical candles, oldest first.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)

	// PlaceMarketOrder submits a market order and blocks until the exchange
	// confirms it. Side is "BUY" or "SELL"; quantity is in base currency.
	PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (Order, error)

	// OpenPositions lists exchange-reported positions with non-zero amounts.
	OpenPositions(ctx context.Context) ([]Position, error)

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol, marginType string) error

	// FormatQuantity rounds a quantity to the symbol's step size and
	// precision so the exchange will accept it.
	FormatQuantity(symbol string, quantity float64) float64
}
