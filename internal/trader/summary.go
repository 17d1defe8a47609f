package trader

import (
	"time"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/execution"
)

// Summary aggregates a finished run for the operator report.
type Summary struct {
	Cycles       int
	Runtime      time.Duration
	InitialPrice float64
	FinalPrice   float64
	MarketChange float64 // percent over the run

	Trades int
	Buys   int
	Sells  int
	Wins   int
	Losses int

	WinRate     float64 // percent of closed trades that made money
	AvgWin      float64
	AvgLoss     float64
	RealizedPnL float64

	OpenSize      float64
	UnrealizedPnL float64
	UnrealizedPct float64
}

// Summarize computes the run report, marking any open position to finalPrice.
// A zero finalPrice (unavailable at shutdown) suppresses the market-change
// and unrealized figures.
func (t *Trader) Summarize(finalPrice float64) Summary {
	s := Summary{
		Cycles:       t.cycles,
		InitialPrice: t.initialPrice,
		FinalPrice:   finalPrice,
		RealizedPnL:  t.tracker.RealizedPnL(),
	}
	if !t.started.IsZero() {
		s.Runtime = time.Since(t.started)
	}
	if t.initialPrice > 0 && finalPrice > 0 {
		s.MarketChange = (finalPrice - t.initialPrice) / t.initialPrice * 100
	}

	var winTotal, lossTotal float64
	for _, rec := range t.tracker.History() {
		s.Trades++
		switch rec.Side {
		case execution.Buy:
			s.Buys++
		case execution.Sell:
			s.Sells++
		}
		if rec.Profit == nil {
			continue
		}
		switch {
		case *rec.Profit > 0:
			s.Wins++
			winTotal += *rec.Profit
		case *rec.Profit < 0:
			s.Losses++
			lossTotal += *rec.Profit
		}
	}
	if closed := s.Wins + s.Losses; closed > 0 {
		s.WinRate = float64(s.Wins) / float64(closed) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = winTotal / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = lossTotal / float64(s.Losses)
	}

	if pos := t.tracker.Snapshot(); !pos.Flat() {
		s.OpenSize = pos.Size
		if finalPrice > 0 {
			s.UnrealizedPnL, s.UnrealizedPct = t.tracker.Unrealized(finalPrice)
		}
	}
	return s
}
