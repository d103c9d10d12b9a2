package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestJournalRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewJournal(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &TradeRecord{
			Symbol:     "BTCUSDT",
			Side:       "LONG",
			Strategy:   "adaptive",
			EntryPrice: 50000,
			ExitPrice:  50500,
			Quantity:   0.002,
			PnL:        1.0,
			PnLPct:     1.0,
			Reason:     "take profit",
			Regime:     datatypes.JSON([]byte(`{"regime":"trending_up","confidence":0.9}`)),
			EntryTime:  base.Add(time.Duration(i) * time.Hour),
			ExitTime:   base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
		}
		require.NoError(t, j.Record(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	trades, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// Newest first.
	assert.True(t, trades[0].ExitTime.After(trades[1].ExitTime))
	assert.Equal(t, "BTCUSDT", trades[0].Symbol)
	assert.JSONEq(t, `{"regime":"trending_up","confidence":0.9}`, string(trades[0].Regime))
}

func TestJournalDailyPnL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewJournal(path)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	records := []struct {
		pnl    float64
		exitAt time.Time
	}{
		{5, now.Add(-26 * time.Hour)},
		{-2, now.Add(-25 * time.Hour)},
		{3, now.Add(-1 * time.Hour)},
	}
	for _, r := range records {
		require.NoError(t, j.Record(ctx, &TradeRecord{
			Symbol: "BTCUSDT", Side: "LONG", PnL: r.pnl,
			EntryTime: r.exitAt.Add(-time.Minute), ExitTime: r.exitAt,
		}))
	}

	days, err := j.DailyPnL(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, days)

	var total float64
	var trades int
	for _, d := range days {
		total += d.PnL
		trades += d.Trades
	}
	assert.InDelta(t, 6.0, total, 1e-9)
	assert.Equal(t, 3, trades)
	// Oldest day first.
	if len(days) > 1 {
		assert.Less(t, days[0].Day, days[len(days)-1].Day)
	}
}

func TestIntentStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.db")
	s, err := NewIntentStore(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	_, found, err := s.Get(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.False(t, found)

	in := Intent{
		Symbol:     "BTCUSDT",
		Side:       "LONG",
		EntryPrice: 50000,
		Quantity:   0.002,
		StopLoss:   49250,
		TakeProfit: 53000,
		EntryTime:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, in))

	got, found, err := s.Get(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, got)

	// Upsert replaces in place.
	in.StopLoss = 49000
	require.NoError(t, s.Save(ctx, in))
	got, found, err = s.Get(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 49000, got.StopLoss, 1e-9)

	require.NoError(t, s.Delete(ctx, "BTCUSDT"))
	_, found, err = s.Get(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting again is fine.
	require.NoError(t, s.Delete(ctx, "BTCUSDT"))
}

func TestStoresRejectEmptyPath(t *testing.T) {
	_, err := NewJournal("  ")
	assert.Error(t, err)
	_, err = NewIntentStore("")
	assert.Error(t, err)
}
