package market

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/signal"
)

func TestMinDataPoints(t *testing.T) {
	p := DefaultParams()
	// max(14, 20, 26+9, 20, 50) + 1
	if got := p.MinDataPoints(); got != 51 {
		t.Fatalf("expected 51, got %d", got)
	}
}

func TestNewDefaultsZeroParams(t *testing.T) {
	s := New(Params{})
	if s.Params() != DefaultParams() {
		t.Fatalf("zero params should default, got %+v", s.Params())
	}
}

func TestRecordRejectsBadPrices(t *testing.T) {
	s := New(DefaultParams())
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.Record(bad, time.Now()); !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("price %v: expected ErrInvalidPrice, got %v", bad, err)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("rejected prices must not be buffered, len=%d", s.Len())
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	s := New(DefaultParams())
	cap := s.Params().MinDataPoints()
	base := time.Now()
	for i := 0; i < cap+10; i++ {
		if err := s.Record(float64(i+1), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if s.Len() != cap {
		t.Fatalf("expected bounded len %d, got %d", cap, s.Len())
	}
	prices := s.Prices()
	if prices[0] != 11 {
		t.Fatalf("oldest should have been evicted, head=%v", prices[0])
	}
	if s.LastPrice() != float64(cap+10) {
		t.Fatalf("unexpected last price %v", s.LastPrice())
	}
}

func TestReadyTransition(t *testing.T) {
	s := New(DefaultParams())
	cap := s.Params().MinDataPoints()
	for i := 0; i < cap-1; i++ {
		if err := s.Record(1+float64(i)*0.001, time.Now()); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if s.Ready() {
		t.Fatal("ready one observation early")
	}
	if err := s.Record(1.1, time.Now()); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !s.Ready() {
		t.Fatal("expected ready at capacity")
	}
}

func TestComputeWarmupSnapshot(t *testing.T) {
	s := New(DefaultParams())
	now := time.Now()
	if err := s.Record(2, now); err != nil {
		t.Fatalf("record: %v", err)
	}
	snap := s.Compute()
	if snap.Ready {
		t.Fatal("one observation should not be ready")
	}
	if snap.RSI != 50 {
		t.Fatalf("warm-up RSI should be neutral, got %.2f", snap.RSI)
	}
	if snap.MACD != (signal.MACD{}) {
		t.Fatalf("warm-up MACD should be zero, got %+v", snap.MACD)
	}
	if snap.Trend != signal.TrendUnknown {
		t.Fatalf("warm-up trend should be unknown, got %s", snap.Trend)
	}
	if len(snap.HistogramTail) != 0 {
		t.Fatalf("no histogram entries expected during warm-up, got %d", len(snap.HistogramTail))
	}
	if !snap.Ts.Equal(now) {
		t.Fatalf("snapshot timestamp mismatch: %v vs %v", snap.Ts, now)
	}
}

// fill records n observations, computing after each one, and returns the
// final snapshot.
func fill(t *testing.T, s *State, n int, price func(i int) float64) signal.Snapshot {
	t.Helper()
	var snap signal.Snapshot
	base := time.Now()
	for i := 0; i < n; i++ {
		if err := s.Record(price(i), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		snap = s.Compute()
	}
	return snap
}

func TestComputeFullHistory(t *testing.T) {
	s := New(DefaultParams())
	snap := fill(t, s, s.Params().MinDataPoints(), func(i int) float64 {
		return 100 + math.Sin(float64(i)/3)*2
	})
	if !snap.Ready {
		t.Fatal("expected ready snapshot")
	}
	if snap.RSI < 0 || snap.RSI > 100 {
		t.Fatalf("RSI out of bounds: %.2f", snap.RSI)
	}
	if !(snap.Bollinger.Upper >= snap.Bollinger.Middle && snap.Bollinger.Middle >= snap.Bollinger.Lower) {
		t.Fatalf("band ordering violated: %+v", snap.Bollinger)
	}
	if snap.Trend == signal.TrendUnknown {
		t.Fatal("full history should classify a trend")
	}
	if math.Abs(snap.MACD.Histogram-(snap.MACD.Value-snap.MACD.Signal)) > 1e-12 {
		t.Fatalf("histogram identity broken: %+v", snap.MACD)
	}
	if len(snap.HistogramTail) == 0 {
		t.Fatal("expected histogram tail entries with full history")
	}
	last := snap.HistogramTail[len(snap.HistogramTail)-1]
	if math.Abs(last-snap.MACD.Histogram) > 1e-12 {
		t.Fatalf("tail should end with current histogram: %v vs %v", last, snap.MACD.Histogram)
	}
}

func TestHistogramTailBounded(t *testing.T) {
	s := New(DefaultParams())
	snap := fill(t, s, s.Params().MinDataPoints()+30, func(i int) float64 {
		return 50 + math.Sin(float64(i)/4)
	})
	if len(snap.HistogramTail) > s.Params().MACDSignal {
		t.Fatalf("histogram tail unbounded: %d", len(snap.HistogramTail))
	}
}

func TestPricesReturnsCopy(t *testing.T) {
	s := New(DefaultParams())
	if err := s.Record(5, time.Now()); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := s.Prices()
	p[0] = 999
	if s.LastPrice() != 5 {
		t.Fatal("Prices must return a copy")
	}
}
