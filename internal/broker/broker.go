// Package broker hosts the trading API client the bot depends on. The core
// only ever sees the Client interface and the clean value types below;
// response-shape quirks of the wire API stay inside this package.
package broker

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that no usable market data came back; callers skip
// the decision cycle and keep polling.
var ErrUnavailable = errors.New("market data unavailable")

// Quote is the current best bid and ask for a trading pair.
type Quote struct {
	Bid float64
	Ask float64
	Ts  time.Time
}

// Mid returns the bid/ask midpoint used as the cycle price.
func (q Quote) Mid() float64 { return (q.Bid + q.Ask) / 2 }

// Account reports the cash available to open new positions.
type Account struct {
	BuyingPower float64
}

// Holding reports the quantity of one asset available for trading.
type Holding struct {
	AssetCode string
	Quantity  float64
}

// OrderResult describes an accepted market order. ExecutedPrice and
// ExecutedQty are zero when the venue does not echo fill details; callers
// then fall back to the quoted price and requested quantity.
type OrderResult struct {
	ID            string
	State         string
	ExecutedPrice float64
	ExecutedQty   float64
}

// Client is the complete broker surface the bot consumes. Side is the
// venue's lowercase "buy"/"sell" and quantity a decimal string, matching the
// wire format.
type Client interface {
	BestBidAsk(ctx context.Context, symbol string) (*Quote, error)
	Account(ctx context.Context) (*Account, error)
	Holdings(ctx context.Context, assetCode string) (*Holding, error)
	PlaceMarketOrder(ctx context.Context, side, symbol, quantity string) (*OrderResult, error)
	TradingPairs(ctx context.Context, symbols ...string) ([]string, error)
}
