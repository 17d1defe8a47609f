package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/broker"
)

func newExecutor(sim *broker.Sim) *Executor {
	return NewExecutor(sim, "XRP-USD", "XRP", 1, zerolog.Nop())
}

func TestBuyWithSufficientFunds(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Buy, 10, 2.0)
	if !out.Executed() {
		t.Fatalf("expected executed, got %+v", out)
	}
	if out.Quantity != 10 || out.Price != 2.0 {
		t.Fatalf("unexpected fill: %+v", out)
	}
	if out.Notional != 20 {
		t.Fatalf("expected notional 20, got %.2f", out.Notional)
	}

	orders := sim.Orders()
	if len(orders) != 1 || orders[0].Side != "buy" || orders[0].Symbol != "XRP-USD" {
		t.Fatalf("unexpected orders: %+v", orders)
	}
}

func TestBuyAdjustsDownToBuyingPower(t *testing.T) {
	// 100 units at 2.0 costs 200 against 50 of buying power.
	// Adjusted: 100 * (50/200 * 0.95) = 23.75, floored to 23.
	sim := broker.NewSim(2.0, 50)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Buy, 100, 2.0)
	if !out.Executed() {
		t.Fatalf("expected executed after adjustment, got %+v", out)
	}
	if out.Quantity != 23 {
		t.Fatalf("expected adjusted quantity 23, got %.2f", out.Quantity)
	}
}

func TestBuyRejectedWhenAdjustmentBelowMinimum(t *testing.T) {
	// 10 units at 2.0 costs 20; 1 of buying power adjusts to
	// 10 * (1/20 * 0.95) = 0.475, floored to 0, below the minimum unit.
	sim := broker.NewSim(2.0, 1)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Buy, 10, 2.0)
	if out.Status != StatusRejected || out.Reason != ReasonInsufficientFunds {
		t.Fatalf("expected insufficient_funds rejection, got %+v", out)
	}
	if len(sim.Orders()) != 0 {
		t.Fatal("rejected buy must not reach the venue")
	}
}

func TestSellWithSufficientHoldings(t *testing.T) {
	sim := broker.NewSim(2.0, 100)
	sim.SetHolding("XRP", 50)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Sell, 20, 2.0)
	if !out.Executed() {
		t.Fatalf("expected executed, got %+v", out)
	}
	if out.Quantity != 20 {
		t.Fatalf("unexpected quantity %.2f", out.Quantity)
	}
}

func TestSellAdjustsDownToHoldings(t *testing.T) {
	// Requesting 100 against 50 held: 50 * 0.99 = 49.5, floored to 49.
	sim := broker.NewSim(2.0, 100)
	sim.SetHolding("XRP", 50)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Sell, 100, 2.0)
	if !out.Executed() {
		t.Fatalf("expected executed after adjustment, got %+v", out)
	}
	if out.Quantity != 49 {
		t.Fatalf("expected adjusted quantity 49, got %.2f", out.Quantity)
	}
}

func TestSellRejectedWithoutHoldings(t *testing.T) {
	sim := broker.NewSim(2.0, 100)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Sell, 10, 2.0)
	if out.Status != StatusRejected || out.Reason != ReasonNoHoldings {
		t.Fatalf("expected no_holdings rejection, got %+v", out)
	}
	if len(sim.Orders()) != 0 {
		t.Fatal("rejected sell must not reach the venue")
	}
}

func TestSellRejectedWhenHoldingsBelowMinimum(t *testing.T) {
	// 0.5 held adjusts to 0.495 floored to 0, under the minimum unit.
	sim := broker.NewSim(2.0, 100)
	sim.SetHolding("XRP", 0.5)
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Sell, 10, 2.0)
	if out.Status != StatusRejected || out.Reason != ReasonNoHoldings {
		t.Fatalf("expected no_holdings rejection, got %+v", out)
	}
}

func TestOrderFailureReportsExternalFailure(t *testing.T) {
	sim := broker.NewSim(2.0, 1000)
	sim.FailNextOrder(errors.New("venue down"))
	exec := newExecutor(sim)

	out := exec.Execute(context.Background(), Buy, 5, 2.0)
	if out.Status != StatusRejected || out.Reason != ReasonExternalFailure {
		t.Fatalf("expected external_failure, got %+v", out)
	}

	// The failure is consumed; the next attempt goes through.
	out = exec.Execute(context.Background(), Buy, 5, 2.0)
	if !out.Executed() {
		t.Fatalf("expected recovery on next attempt, got %+v", out)
	}
}

func TestSideAPIValues(t *testing.T) {
	if Buy.apiValue() != "buy" || Sell.apiValue() != "sell" {
		t.Fatalf("unexpected wire values: %q %q", Buy.apiValue(), Sell.apiValue())
	}
}
