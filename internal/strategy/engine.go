// Package strategy contains the multi-factor scoring that turns indicator
// snapshots into buy/sell/hold decisions.
package strategy

import (
	"fmt"
	"math"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/position"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
)

// Thresholds expresses the tunable knobs of the scoring engine.
type Thresholds struct {
	Oversold       float64 // RSI buy level
	NearOversold   float64
	Overbought     float64 // RSI sell level
	NearOverbought float64
	HighVolatility float64 // percent; above this, reduce risk
	MinScore       float64 // winning side must reach this to act

	ProfitTarget    float64 // fraction, e.g. 0.03
	StopLoss        float64 // fraction, e.g. 0.02
	MaxPositionSize float64 // units; buys downgrade to hold at or above
}

// DefaultThresholds returns the classic settings: RSI 30/70 with 40/60
// approach bands, 3% volatility ceiling, 3% profit target, 2% stop loss.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Oversold:        30,
		NearOversold:    40,
		Overbought:      70,
		NearOverbought:  60,
		HighVolatility:  3.0,
		MinScore:        1.5,
		ProfitTarget:    0.03,
		StopLoss:        0.02,
		MaxPositionSize: 20,
	}
}

// Engine scores a snapshot additively: each factor contributes a fixed score
// and confidence increment to the buy or sell side, and the stronger side
// wins only when it clears MinScore.
type Engine struct {
	th Thresholds
}

// NewEngine builds an engine, falling back to defaults for unset knobs.
func NewEngine(th Thresholds) *Engine {
	def := DefaultThresholds()
	if th.Oversold <= 0 {
		th.Oversold = def.Oversold
	}
	if th.NearOversold <= 0 {
		th.NearOversold = def.NearOversold
	}
	if th.Overbought <= 0 {
		th.Overbought = def.Overbought
	}
	if th.NearOverbought <= 0 {
		th.NearOverbought = def.NearOverbought
	}
	if th.HighVolatility <= 0 {
		th.HighVolatility = def.HighVolatility
	}
	if th.MinScore <= 0 {
		th.MinScore = def.MinScore
	}
	if th.ProfitTarget <= 0 {
		th.ProfitTarget = def.ProfitTarget
	}
	if th.StopLoss <= 0 {
		th.StopLoss = def.StopLoss
	}
	if th.MaxPositionSize <= 0 {
		th.MaxPositionSize = def.MaxPositionSize
	}
	return &Engine{th: th}
}

// Decide is deterministic given its inputs and never mutates them.
func (e *Engine) Decide(snap signal.Snapshot, pos position.Snapshot) signal.Signal {
	if !snap.Ready {
		return signal.Signal{
			Verdict: signal.InsufficientData,
			Reasons: []string{"not enough data points collected"},
			Price:   snap.Price,
			Ts:      snap.Ts,
		}
	}

	var buyScore, sellScore, buyConf, sellConf float64
	var reasons []string

	// RSI
	switch {
	case snap.RSI < e.th.Oversold:
		buyScore++
		buyConf += 0.2
		reasons = append(reasons, fmt.Sprintf("RSI (%.2f) indicates oversold condition", snap.RSI))
	case snap.RSI < e.th.NearOversold:
		buyScore += 0.5
		buyConf += 0.1
	}

	// MACD histogram crossover; needs three samples before it contributes.
	if n := len(snap.HistogramTail); n > 2 {
		prev := snap.HistogramTail[n-2]
		last := snap.HistogramTail[n-1]
		switch {
		case prev < 0 && last > 0:
			buyScore++
			buyConf += 0.2
			reasons = append(reasons, "MACD bullish crossover detected")
		case prev < last && last < 0:
			buyScore += 0.5
			buyConf += 0.1
		}
	}

	// Bollinger support
	if snap.Price <= snap.Bollinger.Lower*1.01 {
		buyScore++
		buyConf += 0.15
		reasons = append(reasons, "price at lower Bollinger band (support level)")
	}

	if snap.Trend == signal.TrendUp {
		buyScore += 0.5
		buyConf += 0.1
		if buyScore > 1.5 {
			reasons = append(reasons, "confirmed uptrend provides favorable buying conditions")
		}
	}

	// Sell side, mirrored.
	switch {
	case snap.RSI > e.th.Overbought:
		sellScore++
		sellConf += 0.2
		reasons = append(reasons, fmt.Sprintf("RSI (%.2f) indicates overbought condition", snap.RSI))
	case snap.RSI > e.th.NearOverbought:
		sellScore += 0.5
		sellConf += 0.1
	}

	if n := len(snap.HistogramTail); n > 2 {
		prev := snap.HistogramTail[n-2]
		last := snap.HistogramTail[n-1]
		switch {
		case prev > 0 && last < 0:
			sellScore++
			sellConf += 0.2
			reasons = append(reasons, "MACD bearish crossover detected")
		case prev > last && last > 0:
			sellScore += 0.5
			sellConf += 0.1
		}
	}

	if snap.Price >= snap.Bollinger.Upper*0.99 {
		sellScore++
		sellConf += 0.15
		reasons = append(reasons, "price at upper Bollinger band (resistance level)")
	}

	if snap.Trend == signal.TrendDown {
		sellScore += 0.5
		sellConf += 0.1
		if sellScore > 1.5 {
			reasons = append(reasons, "confirmed downtrend suggests selling")
		}
	}

	if snap.Volatility > e.th.HighVolatility {
		sellScore += 0.5
		sellConf += 0.1
		reasons = append(reasons, fmt.Sprintf("extremely high volatility (%.2f%%)", snap.Volatility))
	}

	// Position-aware overrides beat everything else.
	if pos.Size > 0 && pos.EntryPrice > 0 {
		profitPct := (snap.Price - pos.EntryPrice) / pos.EntryPrice * 100
		switch {
		case profitPct >= e.th.ProfitTarget*100:
			sellScore += 2
			sellConf += 0.4
			reasons = append(reasons, fmt.Sprintf("profit target reached: %.2f%%", profitPct))
		case profitPct <= -e.th.StopLoss*100:
			sellScore += 2
			sellConf += 0.3
			reasons = append(reasons, fmt.Sprintf("stop loss triggered: %.2f%%", profitPct))
		}
	}

	verdict := signal.Hold
	var confidence float64
	switch {
	case buyScore > sellScore && buyScore >= e.th.MinScore:
		verdict = signal.Buy
		confidence = math.Min(1, buyConf)
		if pos.Size > 0 {
			if pos.Size >= e.th.MaxPositionSize {
				verdict = signal.Hold
				reasons = append(reasons, fmt.Sprintf("maximum position size reached (%.2f)", pos.Size))
			} else {
				reasons = append([]string{fmt.Sprintf("adding to existing position of %.2f", pos.Size)}, reasons...)
			}
		}
	case sellScore > buyScore && sellScore >= e.th.MinScore:
		verdict = signal.Sell
		confidence = math.Min(1, sellConf)
		if pos.Size <= 0 {
			verdict = signal.Hold
			reasons = []string{"no position to sell"}
		}
	default:
		confidence = math.Max(0.5, 1-(buyConf+sellConf))
		if len(reasons) == 0 {
			reasons = append(reasons, "no strong signals detected")
		}
	}

	return signal.Signal{
		Verdict:    verdict,
		Confidence: confidence,
		Reasons:    reasons,
		BuyScore:   buyScore,
		SellScore:  sellScore,
		Price:      snap.Price,
		Ts:         snap.Ts,
	}
}
