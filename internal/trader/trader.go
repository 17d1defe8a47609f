// Package trader drives the fetch → update → decide → execute polling cycle
// for a single instrument. One cycle always runs to completion; cancellation
// only takes effect at the sleep boundary between cycles.
package trader

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/broker"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/execution"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/market"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/metrics"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/position"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/risk"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/strategy"
)

// Config carries the per-run knobs of the polling loop.
type Config struct {
	Symbol    string
	AssetCode string
	Quantity  float64
	Interval  time.Duration
	Duration  time.Duration // 0 runs until the context is canceled
	Live      bool

	// Confidence floors before a signal turns into an order. Buys demand
	// more conviction than sells.
	BuyConfidenceMin  float64
	SellConfidenceMin float64
}

func (c Config) withDefaults() Config {
	if c.Quantity <= 0 {
		c.Quantity = 10
	}
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.BuyConfidenceMin <= 0 {
		c.BuyConfidenceMin = 0.6
	}
	if c.SellConfidenceMin <= 0 {
		c.SellConfidenceMin = 0.5
	}
	return c
}

// Trader owns the market state, scoring engine, position tracker, and
// executor for one run. It is not safe for concurrent use; the polling loop
// is the only caller.
type Trader struct {
	cfg     Config
	client  broker.Client
	state   *market.State
	engine  *strategy.Engine
	exec    *execution.Executor
	tracker *position.Tracker
	limits  risk.Limits
	log     zerolog.Logger

	cycles       int
	started      time.Time
	initialPrice float64
}

// New wires a trader from already-constructed collaborators.
func New(cfg Config, client broker.Client, state *market.State, engine *strategy.Engine, exec *execution.Executor, tracker *position.Tracker, limits risk.Limits, log zerolog.Logger) *Trader {
	return &Trader{
		cfg:     cfg.withDefaults(),
		client:  client,
		state:   state,
		engine:  engine,
		exec:    exec,
		tracker: tracker,
		limits:  limits,
		log:     log,
	}
}

// OnTick admits one price observation, recomputes the indicators, and
// returns the cycle's signal. market.ErrInvalidPrice is returned for corrupt
// observations and leaves all state untouched.
func (t *Trader) OnTick(price float64, now time.Time) (signal.Signal, error) {
	if err := t.state.Record(price, now); err != nil {
		return signal.Signal{}, err
	}
	snap := t.state.Compute()
	sig := t.engine.Decide(snap, t.tracker.Snapshot())
	metrics.SignalsTotal.WithLabelValues(string(sig.Verdict)).Inc()

	t.log.Debug().
		Float64("price", price).
		Float64("rsi", snap.RSI).
		Float64("macd", snap.MACD.Value).
		Float64("macd_hist", snap.MACD.Histogram).
		Float64("bb_upper", snap.Bollinger.Upper).
		Float64("bb_lower", snap.Bollinger.Lower).
		Float64("volatility", snap.Volatility).
		Str("trend", string(snap.Trend)).
		Msg("indicators")
	return sig, nil
}

// ExecuteIfWarranted turns a sufficiently confident buy/sell signal into an
// order. In simulation mode it reports what would have happened without
// touching the broker or the position tracker.
func (t *Trader) ExecuteIfWarranted(ctx context.Context, sig signal.Signal) execution.Outcome {
	var side execution.Side
	switch {
	case sig.Verdict == signal.Buy && sig.Confidence >= t.cfg.BuyConfidenceMin:
		side = execution.Buy
	case sig.Verdict == signal.Sell && sig.Confidence >= t.cfg.SellConfidenceMin:
		side = execution.Sell
	default:
		return execution.Outcome{Status: execution.StatusSkipped}
	}

	if !t.cfg.Live {
		t.log.Info().Str("side", string(side)).Float64("px", sig.Price).Float64("qty", t.cfg.Quantity).Msg("simulation: order suppressed")
		return execution.Outcome{
			Status:   execution.StatusSimulated,
			Side:     side,
			Price:    sig.Price,
			Quantity: t.cfg.Quantity,
			Notional: sig.Price * t.cfg.Quantity,
		}
	}

	notional := t.cfg.Quantity * sig.Price
	if !t.limits.Allow(notional) {
		t.log.Warn().Float64("notional", notional).Msg("trade blocked by notional limit")
		return execution.Outcome{Status: execution.StatusSkipped, Side: side}
	}

	out := t.exec.Execute(ctx, side, t.cfg.Quantity, sig.Price)
	if out.Executed() {
		t.apply(out, sig.Ts)
	}
	return out
}

func (t *Trader) apply(out execution.Outcome, ts time.Time) {
	switch out.Side {
	case execution.Buy:
		t.tracker.ApplyBuy(out.Price, out.Quantity, ts)
	case execution.Sell:
		t.tracker.ApplySell(out.Price, out.Quantity, ts)
	}
	metrics.RealizedPnL.Set(t.tracker.RealizedPnL())
}

// Run polls until the context is canceled or the configured duration
// elapses. The first cycle starts immediately.
func (t *Trader) Run(ctx context.Context) error {
	t.started = time.Now()
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if t.cfg.Duration > 0 {
		timer := time.NewTimer(t.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		t.cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			t.log.Info().Dur("duration", t.cfg.Duration).Msg("run duration elapsed")
			return nil
		case <-ticker.C:
		}
	}
}

// cycle recovers every per-cycle failure locally: a failed fetch or a
// rejected observation skips the decision and keeps the loop alive.
func (t *Trader) cycle(ctx context.Context) {
	t.cycles++
	metrics.CyclesTotal.Inc()

	quote, err := t.client.BestBidAsk(ctx, t.cfg.Symbol)
	if err != nil || quote == nil {
		metrics.FetchFailuresTotal.Inc()
		t.log.Warn().Err(err).Msg("market data unavailable, skipping cycle")
		return
	}

	now := quote.Ts
	if now.IsZero() {
		now = time.Now()
	}
	price := quote.Mid()
	if t.initialPrice == 0 {
		t.initialPrice = price
	}

	sig, err := t.OnTick(price, now)
	if err != nil {
		if errors.Is(err, market.ErrInvalidPrice) {
			t.log.Warn().Float64("price", price).Msg("rejected invalid price observation")
			return
		}
		t.log.Error().Err(err).Msg("tick failed")
		return
	}

	t.log.Info().
		Str("verdict", string(sig.Verdict)).
		Float64("confidence", sig.Confidence).
		Float64("buy_score", sig.BuyScore).
		Float64("sell_score", sig.SellScore).
		Float64("price", price).
		Strs("reasons", sig.Reasons).
		Msg("signal")

	if pos := t.tracker.Snapshot(); !pos.Flat() {
		pnl, pct := t.tracker.Unrealized(price)
		t.log.Info().Float64("size", pos.Size).Float64("entry", pos.EntryPrice).Float64("unrealized", pnl).Float64("unrealized_pct", pct).Msg("open position")
	}

	out := t.ExecuteIfWarranted(ctx, sig)
	if out.Status == execution.StatusRejected {
		t.log.Warn().Str("reason", string(out.Reason)).Str("side", string(out.Side)).Msg("order rejected")
	}
}

// Position returns the current position snapshot.
func (t *Trader) Position() position.Snapshot { return t.tracker.Snapshot() }

// History returns every executed trade, oldest first.
func (t *Trader) History() []position.TradeRecord { return t.tracker.History() }

// RealizedPnL returns the running realized profit and loss.
func (t *Trader) RealizedPnL() float64 { return t.tracker.RealizedPnL() }
