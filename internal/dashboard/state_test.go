package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"marlin/internal/strategy"

	"github.com/stretchr/testify/assert"
)

func TestPublishAndSnapshot(t *testing.T) {
	s := NewState()
	s.Publish(Update{
		Running: true,
		State:   "running",
		Symbol:  "BTCUSDT",
		Price:   50123.4,
		Balance: 1000,
		Positions: []PositionView{
			{Symbol: "BTCUSDT", Side: "LONG", EntryPrice: 50000, Quantity: 0.002},
		},
		Strategy: strategy.Status{Name: "adaptive", Regime: "trending_up"},
	})

	snap := s.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.InDelta(t, 50123.4, snap.Price, 1e-9)
	assert.Len(t, snap.Positions, 1)
	assert.Equal(t, "adaptive", snap.Strategy.Name)
	assert.False(t, snap.UpdatedAt.IsZero())

	// Mutating the snapshot must not leak back into the sink.
	snap.Positions[0].Quantity = 99
	assert.InDelta(t, 0.002, s.Snapshot().Positions[0].Quantity, 1e-9)
}

func TestLogAndTradeBounds(t *testing.T) {
	s := NewState()
	for i := 0; i < 150; i++ {
		s.AddLog("INFO", fmt.Sprintf("line %d", i))
	}
	for i := 0; i < 80; i++ {
		s.AddTrade(TradeEntry{Symbol: "BTCUSDT", Side: "LONG", Action: "OPEN", Price: float64(i)})
	}

	snap := s.Snapshot()
	assert.Len(t, snap.Logs, 100)
	assert.Equal(t, "line 149", snap.Logs[99].Message)
	assert.Equal(t, "line 50", snap.Logs[0].Message)

	assert.Len(t, snap.Trades, 50)
	assert.InDelta(t, 79, snap.Trades[49].Price, 1e-9)
	assert.InDelta(t, 30, snap.Trades[0].Price, 1e-9)
}

func TestSetError(t *testing.T) {
	s := NewState()
	s.SetError(errors.New("exchange timeout"))
	snap := s.Snapshot()
	assert.Equal(t, "exchange timeout", snap.LastError)
	assert.False(t, snap.LastErrorAt.IsZero())

	s.SetError(nil)
	snap = s.Snapshot()
	assert.Empty(t, snap.LastError)
	assert.True(t, snap.LastErrorAt.IsZero())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.AddLog("INFO", "x")
				s.Publish(Update{Running: true, Price: float64(i*100 + j)})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.True(t, s.Snapshot().Running)
}
