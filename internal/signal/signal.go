// Package signal standardizes the value types shared between market analysis and execution layers.
package signal

import "time"

// Verdict is the trading action a decision cycle settled on.
type Verdict string

const (
	Buy  Verdict = "buy"
	Sell Verdict = "sell"
	Hold Verdict = "hold"
	// InsufficientData is emitted while the price history is still warming up.
	InsufficientData Verdict = "insufficient_data"
)

// Trend labels the EMA alignment of the market.
type Trend string

const (
	TrendUp       Trend = "uptrend"
	TrendDown     Trend = "downtrend"
	TrendSideways Trend = "sideways"
	TrendUnknown  Trend = "unknown"
)

// MACD bundles the MACD line, its signal line, and the histogram (line minus signal).
type MACD struct {
	Value     float64
	Signal    float64
	Histogram float64
}

// Bands holds the three Bollinger band levels. Upper >= Middle >= Lower for any computed window.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// EMASet groups the short/medium/long exponential moving averages used for trend detection.
type EMASet struct {
	Short  float64
	Medium float64
	Long   float64
}

// Snapshot is a point-in-time aggregate of every indicator reading. It is
// recomputed fresh each cycle and never mutated in place.
type Snapshot struct {
	Price      float64
	RSI        float64
	MACD       MACD
	Bollinger  Bands
	EMAs       EMASet
	Volatility float64 // percent
	Trend      Trend

	// HistogramTail is the bounded MACD histogram history, oldest first.
	// Crossover detection needs at least three samples.
	HistogramTail []float64

	// Ready reports whether the price history has reached the minimum length
	// required by the largest indicator window.
	Ready bool
	Ts    time.Time
}

// Signal expresses the decision produced for one cycle, with the factors that drove it.
type Signal struct {
	Verdict    Verdict
	Confidence float64 // [0,1]
	Reasons    []string
	BuyScore   float64
	SellScore  float64
	Price      float64
	Ts         time.Time
}
