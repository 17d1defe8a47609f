package broker

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimOrder records one order placed against the simulator.
type SimOrder struct {
	ID       string
	Side     string
	Symbol   string
	Quantity float64
	Price    float64
}

// Sim implements Client against an in-memory account. Tests script exact
// quotes with PushQuote; offline runs enable a random walk instead, which
// keeps synthetic prices clearly confined to this explicit degraded mode.
type Sim struct {
	mu          sync.Mutex
	scripted    []Quote
	last        Quote
	haveQuote   bool
	walk        bool
	rnd         *rand.Rand
	buyingPower float64
	holdings    map[string]float64
	orders      []SimOrder
	orderErr    error
}

// NewSim creates a simulator with the given starting quote midpoint and
// buying power. Without PushQuote or EnableWalk it repeats the start quote.
func NewSim(startPrice, buyingPower float64) *Sim {
	s := &Sim{
		buyingPower: buyingPower,
		holdings:    make(map[string]float64),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if startPrice > 0 {
		s.last = Quote{Bid: startPrice, Ask: startPrice}
		s.haveQuote = true
	}
	return s
}

// PushQuote appends a scripted quote consumed in FIFO order by BestBidAsk.
func (s *Sim) PushQuote(bid, ask float64, ts time.Time) {
	s.mu.Lock()
	s.scripted = append(s.scripted, Quote{Bid: bid, Ask: ask, Ts: ts})
	s.mu.Unlock()
}

// EnableWalk turns on a ±0.5% random walk from the last quote.
func (s *Sim) EnableWalk(seed int64) {
	s.mu.Lock()
	s.walk = true
	s.rnd = rand.New(rand.NewSource(seed))
	s.mu.Unlock()
}

// SetHolding seeds the simulated holdings for one asset.
func (s *Sim) SetHolding(assetCode string, qty float64) {
	s.mu.Lock()
	s.holdings[assetCode] = qty
	s.mu.Unlock()
}

// FailNextOrder makes the next PlaceMarketOrder return err.
func (s *Sim) FailNextOrder(err error) {
	s.mu.Lock()
	s.orderErr = err
	s.mu.Unlock()
}

// BestBidAsk pops the next scripted quote, advances the random walk, or
// repeats the last quote. With no quote at all it reports ErrUnavailable.
func (s *Sim) BestBidAsk(_ context.Context, _ string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(s.scripted) > 0:
		s.last = s.scripted[0]
		s.scripted = s.scripted[1:]
		s.haveQuote = true
	case s.walk && s.haveQuote:
		mid := s.last.Mid() * (1 + (s.rnd.Float64()-0.5)*0.01)
		s.last = Quote{Bid: mid, Ask: mid}
	case !s.haveQuote:
		return nil, ErrUnavailable
	}

	q := s.last
	if q.Ts.IsZero() {
		q.Ts = time.Now()
	}
	return &q, nil
}

// Account reports the remaining simulated buying power.
func (s *Sim) Account(_ context.Context) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Account{BuyingPower: s.buyingPower}, nil
}

// Holdings reports the simulated quantity for one asset.
func (s *Sim) Holdings(_ context.Context, assetCode string) (*Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Holding{AssetCode: assetCode, Quantity: s.holdings[assetCode]}, nil
}

// PlaceMarketOrder fills immediately at the last quote midpoint, adjusting
// the simulated balances.
func (s *Sim) PlaceMarketOrder(_ context.Context, side, symbol, quantity string) (*OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.orderErr != nil {
		err := s.orderErr
		s.orderErr = nil
		return nil, err
	}

	qty, err := strconv.ParseFloat(quantity, 64)
	if err != nil || qty <= 0 {
		return nil, ErrUnavailable
	}
	price := s.last.Mid()
	asset := assetFromSymbol(symbol)

	switch side {
	case "buy":
		s.buyingPower -= qty * price
		s.holdings[asset] += qty
	case "sell":
		s.holdings[asset] -= qty
		s.buyingPower += qty * price
	}

	order := SimOrder{ID: uuid.NewString(), Side: side, Symbol: symbol, Quantity: qty, Price: price}
	s.orders = append(s.orders, order)
	return &OrderResult{ID: order.ID, State: "filled", ExecutedPrice: price, ExecutedQty: qty}, nil
}

// TradingPairs echoes back the requested symbols.
func (s *Sim) TradingPairs(_ context.Context, symbols ...string) ([]string, error) {
	out := make([]string, len(symbols))
	copy(out, symbols)
	return out, nil
}

// Orders returns a copy of every placed order.
func (s *Sim) Orders() []SimOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimOrder, len(s.orders))
	copy(out, s.orders)
	return out
}

func assetFromSymbol(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '-' {
			return symbol[:i]
		}
	}
	return symbol
}
