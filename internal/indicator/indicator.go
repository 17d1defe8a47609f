// Package indicator implements rolling-window technical indicators as pure
// functions over an ordered price slice. Every function degrades to a
// documented neutral value when the history is shorter than its window, so
// callers never see an error or a NaN during warm-up.
package indicator

import (
	"math"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
)

// RSI computes a Wilder-style Relative Strength Index over the last period
// deltas. Returns 50 (neutral) with fewer than period+1 prices and 100 when
// the window contains no losses.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50
	}

	deltas := make([]float64, 0, period)
	for i := len(prices) - period; i < len(prices); i++ {
		deltas = append(deltas, prices[i]-prices[i-1])
	}

	var gains, losses float64
	for _, d := range deltas {
		if d > 0 {
			gains += d
		} else {
			losses += -d
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// EMA computes an exponential moving average seeded with the simple average
// of the first period prices and smoothed over the remainder with
// k = 2/(period+1). With fewer than period prices it returns the last price,
// or 0 for an empty slice.
func EMA(period int, prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema := sum / float64(period)

	k := 2 / (float64(period) + 1)
	for _, p := range prices[period:] {
		ema = p*k + ema*(1-k)
	}
	return ema
}

// Bollinger computes the middle band as the simple average of the last
// period prices and offsets upper/lower by mult population standard
// deviations. With fewer than period prices all three bands collapse to the
// last price (or 0 when empty).
func Bollinger(prices []float64, period int, mult float64) signal.Bands {
	if period <= 0 || len(prices) < period {
		var last float64
		if len(prices) > 0 {
			last = prices[len(prices)-1]
		}
		return signal.Bands{Upper: last, Middle: last, Lower: last}
	}

	window := prices[len(prices)-period:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	middle := sum / float64(len(window))

	var variance float64
	for _, p := range window {
		d := p - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(window)))

	return signal.Bands{
		Upper:  middle + std*mult,
		Middle: middle,
		Lower:  middle - std*mult,
	}
}

// Volatility is the population standard deviation of percent price changes
// over the last window+1 prices, or 0 with insufficient data.
func Volatility(prices []float64, window int) float64 {
	if window <= 0 || len(prices) < window+1 {
		return 0
	}

	tail := prices[len(prices)-window-1:]
	changes := make([]float64, 0, window)
	for i := 1; i < len(tail); i++ {
		if tail[i-1] == 0 {
			continue
		}
		changes = append(changes, (tail[i]-tail[i-1])/tail[i-1]*100)
	}
	if len(changes) == 0 {
		return 0
	}

	var mean float64
	for _, c := range changes {
		mean += c
	}
	mean /= float64(len(changes))

	var variance float64
	for _, c := range changes {
		d := c - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(changes)))
}

// Classify maps EMA alignment to a trend label: strictly descending periods
// (short > medium > long) is an uptrend, the inverse a downtrend, anything
// else sideways. Callers decide when history is too short and report
// TrendUnknown themselves.
func Classify(e signal.EMASet) signal.Trend {
	switch {
	case e.Short > e.Medium && e.Medium > e.Long:
		return signal.TrendUp
	case e.Short < e.Medium && e.Medium < e.Long:
		return signal.TrendDown
	default:
		return signal.TrendSideways
	}
}
