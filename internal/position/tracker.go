// Package position tracks the single open position, realized profit, and the
// append-only trade history for one strategy run. State lives only for the
// process lifetime.
package position

import (
	"math"
	"sync"
	"time"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/execution"
)

// TradeRecorder captures executed trades for later inspection.
type TradeRecorder interface {
	Record(TradeRecord)
}

// TradeRecord describes one executed buy or sell. Records are immutable once
// appended. Profit fields are set only on sells closed against a known entry.
type TradeRecord struct {
	Ts        time.Time      `json:"ts"`
	Side      execution.Side `json:"side"`
	Price     float64        `json:"price"`
	Quantity  float64        `json:"quantity"`
	Notional  float64        `json:"notional"`
	Profit    *float64       `json:"profit,omitempty"`
	ProfitPct *float64       `json:"profit_pct,omitempty"`
}

// Snapshot is a read-only view of the tracked position.
type Snapshot struct {
	Size          float64
	EntryPrice    float64
	LastExitPrice float64
	RealizedPnL   float64
}

// Flat reports whether no position is open.
func (s Snapshot) Flat() bool { return s.Size <= 0 }

// Tracker is the FLAT/LONG state machine. Size only grows on executed buys
// and shrinks (floored at zero) on executed sells; there is no short state.
type Tracker struct {
	mu       sync.Mutex
	size     float64
	entry    float64
	lastExit float64
	realized float64
	ledger   *Ledger
	recorder TradeRecorder
}

// NewTracker starts flat. The optional recorder additionally receives every
// executed trade, e.g. for JSONL audit output.
func NewTracker(recorder TradeRecorder) *Tracker {
	return &Tracker{ledger: NewLedger(0), recorder: recorder}
}

// ApplyBuy registers an executed buy, moving FLAT->LONG or adding to an
// existing position.
func (t *Tracker) ApplyBuy(price, qty float64, ts time.Time) TradeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.size += qty
	t.overwriteEntry(price)

	rec := TradeRecord{Ts: ts, Side: execution.Buy, Price: price, Quantity: qty, Notional: price * qty}
	t.append(rec)
	return rec
}

// overwriteEntry resets the cost basis to the latest buy price, including
// when adding to an open position. Swap this for a quantity-weighted average
// if the basis policy ever changes; nothing else in the state machine
// depends on how entry is derived.
func (t *Tracker) overwriteEntry(price float64) {
	t.entry = price
}

// ApplySell registers an executed sell, realizing (price-entry)*qty and
// moving back to FLAT once size hits zero.
func (t *Tracker) ApplySell(price, qty float64, ts time.Time) TradeRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := TradeRecord{Ts: ts, Side: execution.Sell, Price: price, Quantity: qty, Notional: price * qty}
	if t.entry > 0 {
		profit := (price - t.entry) * qty
		pct := (price - t.entry) / t.entry * 100
		t.realized += profit
		rec.Profit = &profit
		rec.ProfitPct = &pct
	}
	t.size = math.Max(0, t.size-qty)
	t.lastExit = price

	t.append(rec)
	return rec
}

func (t *Tracker) append(rec TradeRecord) {
	t.ledger.Record(rec)
	if t.recorder != nil {
		t.recorder.Record(rec)
	}
}

// Snapshot returns the current position view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Size:          t.size,
		EntryPrice:    t.entry,
		LastExitPrice: t.lastExit,
		RealizedPnL:   t.realized,
	}
}

// RealizedPnL returns total closed-trade profit and loss.
func (t *Tracker) RealizedPnL() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.realized
}

// Unrealized marks the open position to the supplied price, returning the
// absolute and percent P&L. Both are zero when flat or without an entry.
func (t *Tracker) Unrealized(mark float64) (pnl, pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.size <= 0 || t.entry <= 0 {
		return 0, 0
	}
	return (mark - t.entry) * t.size, (mark - t.entry) / t.entry * 100
}

// History returns a copy of every executed trade, oldest first.
func (t *Tracker) History() []TradeRecord {
	return t.ledger.Snapshot()
}
