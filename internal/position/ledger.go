package position

import "sync"

// Ledger stores executed trades in memory for quick inspection.
type Ledger struct {
	mu     sync.Mutex
	trades []TradeRecord
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{trades: make([]TradeRecord, 0, capacity)}
}

// Record appends a trade to the ledger.
func (l *Ledger) Record(rec TradeRecord) {
	l.mu.Lock()
	l.trades = append(l.trades, rec)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *Ledger) Snapshot() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len reports how many trades have been recorded.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.trades)
}
