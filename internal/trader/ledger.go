package trader

import "fmt"

// Ledger is the ordered, bounded collection of open positions — the single
// source of truth for what the bot believes is open. It is owned by the
// cycle goroutine; other goroutines see positions only through dashboard
// snapshots.
type Ledger struct {
	max       int
	positions []Position
}

func NewLedger(max int) *Ledger {
	if max <= 0 {
		max = 1
	}
	return &Ledger{max: max}
}

func (l *Ledger) Len() int { return len(l.positions) }
func (l *Ledger) Max() int { return l.max }

// Positions returns a copy; mutations go through Add/Remove/Replace.
func (l *Ledger) Positions() []Position {
	return append([]Position(nil), l.positions...)
}

// Find returns the tracked position for symbol.
func (l *Ledger) Find(symbol string) (Position, bool) {
	for _, p := range l.positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// Add appends a position, failing when the ledger is at capacity or the
// symbol is already tracked.
func (l *Ledger) Add(p Position) error {
	if len(l.positions) >= l.max {
		return fmt.Errorf("ledger full (%d/%d)", len(l.positions), l.max)
	}
	if _, exists := l.Find(p.Symbol); exists {
		return fmt.Errorf("position for %s already tracked", p.Symbol)
	}
	l.positions = append(l.positions, p)
	return nil
}

// Remove drops the position for symbol, reporting whether one was tracked.
func (l *Ledger) Remove(symbol string) bool {
	for i, p := range l.positions {
		if p.Symbol == symbol {
			l.positions = append(l.positions[:i], l.positions[i+1:]...)
			return true
		}
	}
	return false
}

// Replace swaps the tracked position for p.Symbol, reporting whether one
// was there to replace.
func (l *Ledger) Replace(p Position) bool {
	for i, existing := range l.positions {
		if existing.Symbol == p.Symbol {
			l.positions[i] = p
			return true
		}
	}
	return false
}
