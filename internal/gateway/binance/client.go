// Package binance implements the exchange abstraction on the Binance USDⓈ-M
// futures REST API.
package binance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"marlin/internal/gateway/exchange"
	"marlin/internal/logger"
	"marlin/internal/market"
	"marlin/internal/pkg/circuit"
	"marlin/internal/scheduler"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
)

const maxHistoryLimit = 1500

// marginTypeAlreadySet is Binance error -4046: "No need to change margin type".
const marginTypeAlreadySet = -4046

// Client implements exchange.Exchange against Binance futures. All API calls
// go through a bounded-retry/backoff wrapper fronted by a circuit breaker, so
// a flapping endpoint degrades to fast local failures instead of piling up
// blocked cycles.
type Client struct {
	cfg     Config
	api     *futures.Client
	breaker *circuit.CircuitBreaker

	infoMu     sync.RWMutex
	symbolInfo map[string]exchange.SymbolInfo
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.APIKey) == "" || strings.TrimSpace(final.APISecret) == "" {
		return nil, fmt.Errorf("binance: api credentials are required")
	}
	api := futures.NewClient(final.APIKey, final.APISecret)
	api.BaseURL = final.RESTBaseURL
	api.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	c := &Client{
		cfg:        final,
		api:        api,
		breaker:    circuit.NewCircuitBreaker("binance", final.BreakerThreshold, final.BreakerTimeout),
		symbolInfo: make(map[string]exchange.SymbolInfo),
	}
	if final.Testnet {
		logger.Infof("binance: connected to testnet at %s", final.RESTBaseURL)
	} else {
		logger.Warnf("binance: connected to PRODUCTION at %s", final.RESTBaseURL)
	}
	return c, nil
}

// LoadSymbolInfo fetches precision rules for all symbols. Falling back to
// conservative BTCUSDT defaults keeps order formatting working when exchange
// info is temporarily unavailable.
func (c *Client) LoadSymbolInfo(ctx context.Context) error {
	var info *futures.ExchangeInfo
	err := c.call(ctx, "exchangeInfo", func() error {
		var err error
		info, err = c.api.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		logger.Warnf("binance: loading symbol info failed, using defaults: %v", err)
		c.infoMu.Lock()
		c.symbolInfo["BTCUSDT"] = exchange.SymbolInfo{
			QuantityPrecision: 3,
			PricePrecision:    2,
			MinQuantity:       0.001,
			StepSize:          0.001,
		}
		c.infoMu.Unlock()
		return nil
	}
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	for _, s := range info.Symbols {
		si := exchange.SymbolInfo{
			QuantityPrecision: s.QuantityPrecision,
			PricePrecision:    s.PricePrecision,
		}
		if f := s.LotSizeFilter(); f != nil {
			si.MinQuantity = parseFloat(f.MinQuantity)
			si.StepSize = parseFloat(f.StepSize)
		}
		if f := s.MinNotionalFilter(); f != nil {
			si.MinNotional = parseFloat(f.Notional)
		}
		c.symbolInfo[s.Symbol] = si
	}
	logger.Infof("binance: loaded precision info for %d symbols", len(c.symbolInfo))
	return nil
}

func (c *Client) Balance(ctx context.Context) (exchange.Balance, error) {
	var balances []*futures.Balance
	err := c.call(ctx, "balance", func() error {
		var err error
		balances, err = c.api.NewGetBalanceService().Do(ctx)
		return err
	})
	if err != nil {
		return exchange.Balance{}, fmt.Errorf("fetching balance: %w", err)
	}
	for _, b := range balances {
		if b.Asset == "USDT" {
			return exchange.Balance{
				Total:     parseFloat(b.Balance),
				Available: parseFloat(b.AvailableBalance),
				UpdatedAt: time.Now().UTC(),
			}, nil
		}
	}
	logger.Warnf("binance: USDT balance not found in account response")
	return exchange.Balance{UpdatedAt: time.Now().UTC()}, nil
}

func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	var prices []*futures.SymbolPrice
	err := c.call(ctx, "ticker", func() error {
		var err error
		prices, err = c.api.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fetching ticker for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no ticker returned for %s", symbol)
	}
	return parseFloat(prices[0].Price), nil
}

func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	var kls []*futures.Kline
	err := c.call(ctx, "klines", func() error {
		var err error
		kls, err = c.api.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s %s: %w", symbol, interval, err)
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	if d, ok := scheduler.ParseIntervalDuration(interval); ok {
		out = scheduler.DropUnclosedKline(out, d)
	}
	return out, nil
}

func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (exchange.Order, error) {
	qty := c.FormatQuantity(symbol, quantity)
	if qty <= 0 {
		return exchange.Order{}, fmt.Errorf("order quantity %v rounds to zero for %s", quantity, symbol)
	}
	clientID := "marlin-" + uuid.NewString()
	logger.Infof("binance: placing %s market order %v %s (client id %s)", side, qty, symbol, clientID)
	var resp *futures.CreateOrderResponse
	err := c.call(ctx, "order", func() error {
		var err error
		resp, err = c.api.NewCreateOrderService().
			Symbol(symbol).
			Side(futures.SideType(side)).
			Type(futures.OrderTypeMarket).
			Quantity(formatQty(qty)).
			NewClientOrderID(clientID).
			Do(ctx)
		return err
	})
	if err != nil {
		return exchange.Order{}, fmt.Errorf("placing %s order for %s: %w", side, symbol, err)
	}
	logger.Infof("binance: order %d accepted (%s)", resp.OrderID, resp.Status)
	return exchange.Order{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          string(resp.Side),
		Quantity:      qty,
		AvgPrice:      parseFloat(resp.AvgPrice),
		Status:        string(resp.Status),
	}, nil
}

func (c *Client) OpenPositions(ctx context.Context) ([]exchange.Position, error) {
	var risks []*futures.PositionRisk
	err := c.call(ctx, "positions", func() error {
		var err error
		risks, err = c.api.NewGetPositionRiskService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching open positions: %w", err)
	}
	out := make([]exchange.Position, 0, len(risks))
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		out = append(out, exchange.Position{
			Symbol:        r.Symbol,
			Amount:        amt,
			EntryPrice:    parseFloat(r.EntryPrice),
			UnrealizedPnL: parseFloat(r.UnRealizedProfit),
			Leverage:      parseFloat(r.Leverage),
		})
	}
	return out, nil
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	err := c.call(ctx, "leverage", func() error {
		_, err := c.api.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("setting leverage %dx for %s: %w", leverage, symbol, err)
	}
	logger.Infof("binance: leverage set to %dx for %s", leverage, symbol)
	return nil
}

func (c *Client) SetMarginType(ctx context.Context, symbol, marginType string) error {
	err := c.call(ctx, "marginType", func() error {
		return c.api.NewChangeMarginTypeService().
			Symbol(symbol).
			MarginType(futures.MarginType(marginType)).
			Do(ctx)
	})
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == marginTypeAlreadySet {
			logger.Debugf("binance: margin type already %s for %s", marginType, symbol)
			return nil
		}
		return fmt.Errorf("setting margin type %s for %s: %w", marginType, symbol, err)
	}
	logger.Infof("binance: margin type set to %s for %s", marginType, symbol)
	return nil
}

// SymbolInfo returns the cached precision rules for a symbol.
func (c *Client) SymbolInfo(symbol string) (exchange.SymbolInfo, bool) {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	info, ok := c.symbolInfo[symbol]
	return info, ok
}

func (c *Client) FormatQuantity(symbol string, quantity float64) float64 {
	c.infoMu.RLock()
	info, ok := c.symbolInfo[symbol]
	c.infoMu.RUnlock()
	if !ok {
		info = exchange.SymbolInfo{QuantityPrecision: 3, StepSize: 0.001}
	}
	if info.StepSize > 0 {
		quantity = math.Floor(quantity/info.StepSize) * info.StepSize
	}
	scale := math.Pow(10, float64(info.QuantityPrecision))
	return math.Round(quantity*scale) / scale
}

// call runs one API operation through the breaker and the retry policy.
// Context cancellation is terminal; everything else is treated as transient
// until the attempts run out.
func (c *Client) call(ctx context.Context, name string, fn func() error) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("binance %s: circuit open", name)
	}
	delay := c.cfg.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			c.breaker.RecordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < c.cfg.RetryAttempts {
			logger.Warnf("binance %s failed (attempt %d/%d): %v", name, attempt, c.cfg.RetryAttempts, lastErr)
			select {
			case <-ctx.Done():
				c.breaker.RecordFailure()
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.cfg.BackoffMultiplier)
		}
	}
	c.breaker.RecordFailure()
	return lastErr
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
