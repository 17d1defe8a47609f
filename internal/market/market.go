// Package market owns the bounded price history and derived indicator series
// for a single instrument. One State instance belongs to exactly one running
// strategy and is only touched by the orchestrating goroutine.
package market

import (
	"errors"
	"math"
	"time"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/indicator"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
)

// ErrInvalidPrice rejects non-finite or non-positive observations so corrupt
// feed values never reach the indicator math.
var ErrInvalidPrice = errors.New("invalid price observation")

// Params carries the indicator windows that size every rolling buffer.
type Params struct {
	RSIPeriod        int
	BBPeriod         int
	BBStdDev         float64
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	VolatilityWindow int
	EMAShort         int
	EMAMedium        int
	EMALong          int
}

// DefaultParams mirrors the classic settings: RSI 14, Bollinger 20/2,
// MACD 12/26/9, volatility window 20, EMAs 9/21/50.
func DefaultParams() Params {
	return Params{
		RSIPeriod:        14,
		BBPeriod:         20,
		BBStdDev:         2,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		VolatilityWindow: 20,
		EMAShort:         9,
		EMAMedium:        21,
		EMALong:          50,
	}
}

// MinDataPoints is the shortest price history from which every indicator can
// be computed without falling back to its degraded default.
func (p Params) MinDataPoints() int {
	m := p.RSIPeriod
	for _, v := range []int{p.BBPeriod, p.MACDSlow + p.MACDSignal, p.VolatilityWindow, p.EMALong} {
		if v > m {
			m = v
		}
	}
	return m + 1
}

// State holds the FIFO price buffer plus the MACD derived series, the one
// indicator whose current value depends on its own history. Everything else
// is recomputed from prices each cycle. Derived series are appended only by
// Compute.
type State struct {
	params   Params
	capacity int

	prices []float64
	times  []time.Time

	macdVals      []float64
	macdHistogram []float64
}

// New constructs an empty State sized for the supplied windows. Zero or
// negative params fall back to the defaults.
func New(p Params) *State {
	def := DefaultParams()
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = def.RSIPeriod
	}
	if p.BBPeriod <= 0 {
		p.BBPeriod = def.BBPeriod
	}
	if p.BBStdDev <= 0 {
		p.BBStdDev = def.BBStdDev
	}
	if p.MACDFast <= 0 {
		p.MACDFast = def.MACDFast
	}
	if p.MACDSlow <= 0 {
		p.MACDSlow = def.MACDSlow
	}
	if p.MACDSignal <= 0 {
		p.MACDSignal = def.MACDSignal
	}
	if p.VolatilityWindow <= 0 {
		p.VolatilityWindow = def.VolatilityWindow
	}
	if p.EMAShort <= 0 {
		p.EMAShort = def.EMAShort
	}
	if p.EMAMedium <= 0 {
		p.EMAMedium = def.EMAMedium
	}
	if p.EMALong <= 0 {
		p.EMALong = def.EMALong
	}
	return &State{params: p, capacity: p.MinDataPoints()}
}

// Params returns the windows the state was built with.
func (s *State) Params() Params { return s.params }

// Record admits one price observation, evicting the oldest entry once the
// buffer is full. Non-finite or non-positive values are rejected with
// ErrInvalidPrice and leave the state untouched.
func (s *State) Record(price float64, ts time.Time) error {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return ErrInvalidPrice
	}
	s.prices = append(s.prices, price)
	s.times = append(s.times, ts)
	if len(s.prices) > s.capacity {
		s.prices = s.prices[1:]
		s.times = s.times[1:]
	}
	return nil
}

// Len reports how many observations are currently buffered.
func (s *State) Len() int { return len(s.prices) }

// Ready reports whether the buffer covers the largest indicator window.
func (s *State) Ready() bool { return len(s.prices) >= s.capacity }

// LastPrice returns the most recent observation, or 0 when empty.
func (s *State) LastPrice() float64 {
	if len(s.prices) == 0 {
		return 0
	}
	return s.prices[len(s.prices)-1]
}

// Prices returns a copy of the buffered price history, oldest first.
func (s *State) Prices() []float64 {
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}

// Compute derives a fresh indicator snapshot from the current history and
// advances the bounded derived series. It is the only mutator of those
// series and must be called once per recorded observation.
func (s *State) Compute() signal.Snapshot {
	p := s.params

	rsi := indicator.RSI(s.prices, p.RSIPeriod)

	macd := s.computeMACD()

	bands := indicator.Bollinger(s.prices, p.BBPeriod, p.BBStdDev)

	emas := signal.EMASet{
		Short:  indicator.EMA(p.EMAShort, s.prices),
		Medium: indicator.EMA(p.EMAMedium, s.prices),
		Long:   indicator.EMA(p.EMALong, s.prices),
	}

	trend := signal.TrendUnknown
	if len(s.prices) >= p.EMALong {
		trend = indicator.Classify(emas)
	}

	var ts time.Time
	if len(s.times) > 0 {
		ts = s.times[len(s.times)-1]
	}

	tail := make([]float64, len(s.macdHistogram))
	copy(tail, s.macdHistogram)

	return signal.Snapshot{
		Price:         s.LastPrice(),
		RSI:           rsi,
		MACD:          macd,
		Bollinger:     bands,
		EMAs:          emas,
		Volatility:    indicator.Volatility(s.prices, p.VolatilityWindow),
		Trend:         trend,
		HistogramTail: tail,
		Ready:         s.Ready(),
		Ts:            ts,
	}
}

// computeMACD needs slow+signal prices before it produces anything; until
// then it reports zeros and appends nothing, so the histogram tail only ever
// holds real crossover data.
func (s *State) computeMACD() signal.MACD {
	p := s.params
	if len(s.prices) < p.MACDSlow+p.MACDSignal {
		return signal.MACD{}
	}

	value := indicator.EMA(p.MACDFast, s.prices) - indicator.EMA(p.MACDSlow, s.prices)
	s.macdVals = pushBounded(s.macdVals, value, p.MACDSlow)

	sig := value
	if len(s.macdVals) >= p.MACDSignal {
		sig = indicator.EMA(p.MACDSignal, s.macdVals)
	}

	hist := value - sig
	s.macdHistogram = pushBounded(s.macdHistogram, hist, p.MACDSignal)

	return signal.MACD{Value: value, Signal: sig, Histogram: hist}
}

func pushBounded(buf []float64, v float64, capacity int) []float64 {
	buf = append(buf, v)
	if len(buf) > capacity {
		buf = buf[1:]
	}
	return buf
}
