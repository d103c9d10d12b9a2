package exchange

import "time"

// Balance is the account's stake-currency funds.
type Balance struct {
	Total     float64
	Available float64
	UpdatedAt time.Time
}

// Position is an exchange-reported position. Amount is signed the way Binance
// reports it: positive for long, negative for short.
type Position struct {
	Symbol        string
	Amount        float64
	EntryPrice    float64
	UnrealizedPnL float64
	Leverage      float64
}

// Order is the confirmed result of an order submission.
type Order struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          string
	Quantity      float64
	AvgPrice      float64
	Status        string
}

// SymbolInfo caches the precision rules a symbol's orders must satisfy.
type SymbolInfo struct {
	QuantityPrecision int
	PricePrecision    int
	MinQuantity       float64
	StepSize          float64
	MinNotional       float64
}
