package trader

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/broker"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/execution"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/market"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/position"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/risk"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/strategy"
)

func newTestTrader(cfg Config, sim *broker.Sim) *Trader {
	log := zerolog.Nop()
	state := market.New(market.DefaultParams())
	engine := strategy.NewEngine(strategy.Thresholds{})
	tracker := position.NewTracker(nil)
	exec := execution.NewExecutor(sim, cfg.Symbol, cfg.AssetCode, 1, log)
	return New(cfg, sim, state, engine, exec, tracker, risk.Limits{}, log)
}

func baseConfig() Config {
	return Config{
		Symbol:    "XRP-USD",
		AssetCode: "XRP",
		Quantity:  10,
		Interval:  time.Second,
		Live:      true,
	}
}

func TestOnTickRejectsInvalidPrice(t *testing.T) {
	tr := newTestTrader(baseConfig(), broker.NewSim(2.0, 1000))
	if _, err := tr.OnTick(-1, time.Now()); !errors.Is(err, market.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := tr.OnTick(math.NaN(), time.Now()); !errors.Is(err, market.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for NaN, got %v", err)
	}
}

func TestOnTickWarmupReportsInsufficientData(t *testing.T) {
	tr := newTestTrader(baseConfig(), broker.NewSim(2.0, 1000))
	sig, err := tr.OnTick(2.0, time.Now())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sig.Verdict != signal.InsufficientData {
		t.Fatalf("expected insufficient_data during warm-up, got %s", sig.Verdict)
	}
}

func TestOnTickTurnsReadyAfterWarmup(t *testing.T) {
	tr := newTestTrader(baseConfig(), broker.NewSim(2.0, 1000))
	n := market.DefaultParams().MinDataPoints()
	now := time.Now()

	var sig signal.Signal
	var err error
	for i := 0; i < n; i++ {
		price := 2.0 + math.Sin(float64(i)/5)*0.01
		sig, err = tr.OnTick(price, now.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if sig.Verdict == signal.InsufficientData {
		t.Fatal("expected a real verdict after warm-up")
	}
}

func TestExecuteSkipsLowConfidence(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	tr := newTestTrader(baseConfig(), sim)

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict:    signal.Buy,
		Confidence: 0.3,
		Price:      2.0,
	})
	if out.Status != execution.StatusSkipped {
		t.Fatalf("expected skipped, got %+v", out)
	}
	if len(sim.Orders()) != 0 {
		t.Fatal("low-confidence signal must not reach the broker")
	}
}

func TestExecuteSkipsHold(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	tr := newTestTrader(baseConfig(), sim)

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict:    signal.Hold,
		Confidence: 0.9,
		Price:      2.0,
	})
	if out.Status != execution.StatusSkipped {
		t.Fatalf("expected skipped for hold, got %+v", out)
	}
}

func TestExecuteSimulationSuppressesOrders(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	cfg := baseConfig()
	cfg.Live = false
	tr := newTestTrader(cfg, sim)

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict:    signal.Buy,
		Confidence: 0.8,
		Price:      2.0,
	})
	if out.Status != execution.StatusSimulated {
		t.Fatalf("expected simulated, got %+v", out)
	}
	if out.Side != execution.Buy || out.Quantity != 10 {
		t.Fatalf("unexpected simulated outcome %+v", out)
	}
	if len(sim.Orders()) != 0 {
		t.Fatal("simulation must not place orders")
	}
	if !tr.Position().Flat() {
		t.Fatal("simulation must not mutate the position")
	}
}

func TestExecuteBuyUpdatesPosition(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	tr := newTestTrader(baseConfig(), sim)

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict:    signal.Buy,
		Confidence: 0.8,
		Price:      2.0,
		Ts:         time.Now(),
	})
	if !out.Executed() {
		t.Fatalf("expected executed, got %+v", out)
	}

	pos := tr.Position()
	if pos.Size != 10 || pos.EntryPrice != 2.0 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if len(tr.History()) != 1 {
		t.Fatalf("expected one trade, got %d", len(tr.History()))
	}
}

func TestExecuteSellRealizesProfit(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	tr := newTestTrader(baseConfig(), sim)

	if out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict: signal.Buy, Confidence: 0.8, Price: 2.0, Ts: time.Now(),
	}); !out.Executed() {
		t.Fatalf("buy failed: %+v", out)
	}

	// Move the simulated market up before selling.
	sim.PushQuote(2.5, 2.5, time.Now())
	if _, err := sim.BestBidAsk(context.Background(), "XRP-USD"); err != nil {
		t.Fatalf("advance quote: %v", err)
	}

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict: signal.Sell, Confidence: 0.7, Price: 2.5, Ts: time.Now(),
	})
	if !out.Executed() {
		t.Fatalf("sell failed: %+v", out)
	}

	if pnl := tr.RealizedPnL(); math.Abs(pnl-5.0) > 1e-9 {
		t.Fatalf("expected realized 5.0, got %.4f", pnl)
	}
	if !tr.Position().Flat() {
		t.Fatalf("expected flat after exit, got %+v", tr.Position())
	}
}

func TestExecuteBlockedByNotionalLimit(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	log := zerolog.Nop()
	cfg := baseConfig()
	state := market.New(market.DefaultParams())
	engine := strategy.NewEngine(strategy.Thresholds{})
	tracker := position.NewTracker(nil)
	exec := execution.NewExecutor(sim, cfg.Symbol, cfg.AssetCode, 1, log)
	tr := New(cfg, sim, state, engine, exec, tracker, risk.Limits{MaxNotionalPerTrade: 5}, log)

	out := tr.ExecuteIfWarranted(context.Background(), signal.Signal{
		Verdict: signal.Buy, Confidence: 0.8, Price: 2.0,
	})
	if out.Status != execution.StatusSkipped {
		t.Fatalf("expected skipped by limit, got %+v", out)
	}
	if len(sim.Orders()) != 0 {
		t.Fatal("blocked trade must not reach the broker")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	cfg := baseConfig()
	cfg.Interval = 10 * time.Millisecond
	tr := newTestTrader(cfg, sim)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestRunStopsAfterDuration(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	cfg := baseConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Duration = 50 * time.Millisecond
	tr := newTestTrader(cfg, sim)

	done := make(chan error, 1)
	go func() { done <- tr.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after duration, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after duration")
	}
}

func TestRunSurvivesUnavailableFeed(t *testing.T) {
	sim := broker.NewSim(0, 1000) // no quote at all
	cfg := baseConfig()
	cfg.Interval = 10 * time.Millisecond
	cfg.Duration = 40 * time.Millisecond
	tr := newTestTrader(cfg, sim)

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("run must survive fetch failures, got %v", err)
	}

	sum := tr.Summarize(0)
	if sum.Cycles == 0 {
		t.Fatal("expected cycles to advance despite failures")
	}
	if sum.Trades != 0 {
		t.Fatalf("no trades expected, got %d", sum.Trades)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Quantity != 10 {
		t.Fatalf("unexpected quantity %.2f", cfg.Quantity)
	}
	if cfg.Interval != 30*time.Second {
		t.Fatalf("unexpected interval %s", cfg.Interval)
	}
	if cfg.BuyConfidenceMin != 0.6 || cfg.SellConfidenceMin != 0.5 {
		t.Fatalf("unexpected confidence floors %.2f/%.2f", cfg.BuyConfidenceMin, cfg.SellConfidenceMin)
	}
}
