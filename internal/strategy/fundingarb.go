package strategy

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"marlin/internal/logger"
	"marlin/internal/market"

	"github.com/tidwall/gjson"
)

// FundingInfo is one premium-index sample.
type FundingInfo struct {
	Symbol          string
	FundingRate     float64
	NextFundingTime time.Time
	MarkPrice       float64
}

// FundingSource fetches the current funding snapshot for a symbol.
type FundingSource interface {
	FundingInfo(symbol string) (FundingInfo, error)
}

// PremiumIndexSource reads Binance's premium-index endpoint.
type PremiumIndexSource struct {
	BaseURL string
	Client  *http.Client
}

func NewPremiumIndexSource(baseURL string) *PremiumIndexSource {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	return &PremiumIndexSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *PremiumIndexSource) FundingInfo(symbol string) (FundingInfo, error) {
	url := fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", p.BaseURL, symbol)
	resp, err := p.Client.Get(url)
	if err != nil {
		return FundingInfo{}, fmt.Errorf("fetching premium index: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FundingInfo{}, fmt.Errorf("reading premium index response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return FundingInfo{}, fmt.Errorf("premium index status=%d", resp.StatusCode)
	}
	doc := gjson.ParseBytes(body)
	return FundingInfo{
		Symbol:          doc.Get("symbol").String(),
		FundingRate:     doc.Get("lastFundingRate").Float(),
		NextFundingTime: time.UnixMilli(doc.Get("nextFundingTime").Int()),
		MarkPrice:       doc.Get("markPrice").Float(),
	}, nil
}

// FundingArbConfig tunes the funding-capture strategy.
type FundingArbConfig struct {
	Symbol          string
	MinFundingRate  float64       // minimum positive rate worth capturing
	EntryWindow     time.Duration // how close to funding time entries open
	FundingInterval time.Duration // hold at most one funding interval
	Now             func() time.Time
}

func (c FundingArbConfig) withDefaults() FundingArbConfig {
	if c.Symbol == "" {
		c.Symbol = "BTCUSDT"
	}
	if c.MinFundingRate <= 0 {
		c.MinFundingRate = 0.0005
	}
	if c.EntryWindow <= 0 {
		c.EntryWindow = 30 * time.Minute
	}
	if c.FundingInterval <= 0 {
		c.FundingInterval = 8 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// FundingArb goes long shortly before a funding payment when the rate is
// positive enough, and holds until the payment lands. Shorts pay longs when
// the rate is positive, so the position side is always LONG. Stops and
// targets sit 5% out; the edge comes from the funding payment, not the
// price.
type FundingArb struct {
	cfg      FundingArbConfig
	source   FundingSource
	position *Position

	entryRate float64 // funding rate at entry, for the rate-drop exit
}

func NewFundingArb(cfg FundingArbConfig, source FundingSource) *FundingArb {
	final := cfg.withDefaults()
	if source == nil {
		source = NewPremiumIndexSource("")
	}
	return &FundingArb{cfg: final, source: source}
}

func (s *FundingArb) Name() string { return "funding_arbitrage" }

func (s *FundingArb) ShouldEnter(table market.Table, price float64) (Side, bool) {
	if s.position != nil {
		return "", false
	}
	info, err := s.source.FundingInfo(s.cfg.Symbol)
	if err != nil {
		logger.Warnf("%s: funding info unavailable: %v", s.Name(), err)
		return "", false
	}
	if info.FundingRate < s.cfg.MinFundingRate {
		logger.Debugf("%s: funding rate %.4f%% below threshold", s.Name(), info.FundingRate*100)
		return "", false
	}
	untilFunding := info.NextFundingTime.Sub(s.cfg.Now())
	if untilFunding > s.cfg.EntryWindow {
		logger.Debugf("%s: %.1fh until funding, outside entry window", s.Name(), untilFunding.Hours())
		return "", false
	}
	logger.Infof("%s: LONG signal, funding %.4f%% with %.0fm to payment",
		s.Name(), info.FundingRate*100, untilFunding.Minutes())
	s.entryRate = info.FundingRate
	return SideLong, true
}

func (s *FundingArb) ShouldExit(table market.Table, price float64, pos Position) (bool, string) {
	if stopHit(price, pos) {
		return true, "stop loss"
	}
	if targetHit(price, pos) {
		return true, "take profit"
	}
	if !pos.EntryTime.IsZero() && s.cfg.Now().Sub(pos.EntryTime) >= s.cfg.FundingInterval {
		return true, "funding interval elapsed"
	}
	info, err := s.source.FundingInfo(s.cfg.Symbol)
	if err != nil {
		// Without fresh funding data, hold.
		logger.Warnf("%s: funding info unavailable, holding: %v", s.Name(), err)
		return false, ""
	}
	if info.FundingRate <= 0 {
		return true, "funding turned negative"
	}
	if s.entryRate > 0 {
		drop := (info.FundingRate - s.entryRate) / s.entryRate * 100
		if drop < -50 {
			return true, "funding rate collapsed"
		}
	}
	return false, ""
}

func (s *FundingArb) StopLoss(entry float64, side Side) float64 {
	return percentStop(entry, 0.05, side)
}

func (s *FundingArb) TakeProfit(entry float64, side Side) float64 {
	return percentTarget(entry, 0.05, side)
}

func (s *FundingArb) SetPosition(pos *Position) {
	s.position = pos
	if pos == nil {
		s.entryRate = 0
	}
}

func (s *FundingArb) HasPosition() bool { return s.position != nil }

func (s *FundingArb) Status() Status {
	return Status{
		Name:          s.Name(),
		HasPosition:   s.position != nil,
		StopLossPct:   0.05,
		TakeProfitPct: 0.05,
	}
}
