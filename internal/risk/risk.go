// Package risk holds guard-rails applied before any order reaches the broker.
package risk

// Limits caps how much notional a single trade may take on. A zero limit
// disables the check.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether a trade of the given notional is within limits.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
