package market

import "math"

// Row is one candle plus its derived indicator values. Warmup indices that a
// rolling indicator cannot cover hold NaN, never zero, so downstream signal
// code can tell "no value" from "value of zero".
type Row struct {
	Candle
	EMAFast   float64 `json:"ema_fast"`
	EMASlow   float64 `json:"ema_slow"`
	ATR       float64 `json:"atr"`
	RSI       float64 `json:"rsi"`
	VolumeAvg float64 `json:"volume_avg"`
	BBUpper   float64 `json:"bb_upper"`
	BBMiddle  float64 `json:"bb_middle"`
	BBLower   float64 `json:"bb_lower"`
}

// Table is an immutable, time-ordered snapshot of indicator rows, oldest
// first. It is rebuilt from scratch every cycle; holders never mutate it.
type Table struct {
	rows []Row
}

func NewTable(rows []Row) Table {
	return Table{rows: rows}
}

func (t Table) Len() int { return len(t.rows) }

// At returns the row at index i. Negative indices count back from the most
// recent row, so At(-1) is the latest candle.
func (t Table) At(i int) Row {
	if i < 0 {
		i += len(t.rows)
	}
	return t.rows[i]
}

func (t Table) Last() Row {
	return t.rows[len(t.rows)-1]
}

// Tail returns a table holding the most recent n rows.
func (t Table) Tail(n int) Table {
	if n >= len(t.rows) {
		return t
	}
	return Table{rows: t.rows[len(t.rows)-n:]}
}

func (t Table) Closes() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Close
	}
	return out
}

func (t Table) Highs() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.High
	}
	return out
}

func (t Table) Lows() []float64 {
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Low
	}
	return out
}

// MeanATR averages the valid ATR values in the table. Returns NaN when no row
// carries a valid ATR.
func (t Table) MeanATR() float64 {
	sum := 0.0
	n := 0
	for _, r := range t.rows {
		if !math.IsNaN(r.ATR) && r.ATR > 0 {
			sum += r.ATR
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
