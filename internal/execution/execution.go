// Package execution handles order gating and submission against the broker.
package execution

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/broker"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/metrics"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a position-reducing order.
	Sell Side = "SELL"
)

func (s Side) apiValue() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Status classifies an execution attempt.
type Status string

const (
	StatusExecuted  Status = "executed"
	StatusRejected  Status = "failed"
	StatusSimulated Status = "simulated"
	StatusSkipped   Status = "skipped"
)

// Reason explains a rejected order.
type Reason string

const (
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonNoHoldings        Reason = "no_holdings"
	ReasonExternalFailure   Reason = "external_failure"
)

// Outcome is the structured result of one execution attempt. Rejections are
// values, never errors that abort the polling loop.
type Outcome struct {
	Status   Status
	Reason   Reason
	Side     Side
	Price    float64
	Quantity float64
	Notional float64
}

// Executed reports whether the attempt resulted in a filled order.
func (o Outcome) Executed() bool { return o.Status == StatusExecuted }

// Executor verifies funds/holdings before submitting market orders.
// Quantity arithmetic runs on decimals because the wire format is decimal
// strings and the venue rejects float dust.
type Executor struct {
	client    broker.Client
	symbol    string
	assetCode string
	minQty    decimal.Decimal
	log       zerolog.Logger
}

// NewExecutor wires an executor for one trading pair. minQty is the smallest
// tradable quantity; adjusted orders below it are rejected outright.
func NewExecutor(client broker.Client, symbol, assetCode string, minQty float64, log zerolog.Logger) *Executor {
	if minQty <= 0 {
		minQty = 1
	}
	return &Executor{
		client:    client,
		symbol:    symbol,
		assetCode: assetCode,
		minQty:    decimal.NewFromFloat(minQty),
		log:       log,
	}
}

// Execute attempts a market order of qty units around the given price.
func (e *Executor) Execute(ctx context.Context, side Side, qty, price float64) Outcome {
	if side == Sell {
		return e.sell(ctx, qty, price)
	}
	return e.buy(ctx, qty, price)
}

func (e *Executor) buy(ctx context.Context, qty, price float64) Outcome {
	acct, err := e.client.Account(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("account lookup failed")
		return e.reject(Buy, ReasonExternalFailure)
	}

	quantity := decimal.NewFromFloat(qty)
	cost := qty * price
	if cost > acct.BuyingPower {
		// One downward adjustment scaled by available funds, with a 5%
		// buffer, floored to whole tradable units.
		scale := decimal.NewFromFloat(acct.BuyingPower / cost * 0.95)
		quantity = quantity.Mul(scale).Floor()
		if quantity.LessThan(e.minQty) {
			e.log.Warn().Float64("cost", cost).Float64("buying_power", acct.BuyingPower).Msg("buy rejected: insufficient funds")
			return e.reject(Buy, ReasonInsufficientFunds)
		}
		e.log.Warn().Float64("requested", qty).Str("adjusted", quantity.String()).Msg("buy quantity reduced to fit buying power")
	}

	return e.submit(ctx, Buy, quantity, price)
}

func (e *Executor) sell(ctx context.Context, qty, price float64) Outcome {
	holding, err := e.client.Holdings(ctx, e.assetCode)
	if err != nil {
		e.log.Error().Err(err).Msg("holdings lookup failed")
		return e.reject(Sell, ReasonExternalFailure)
	}

	quantity := decimal.NewFromFloat(qty)
	if qty > holding.Quantity {
		if holding.Quantity <= 0 {
			e.log.Warn().Str("asset", e.assetCode).Msg("sell rejected: no holdings")
			return e.reject(Sell, ReasonNoHoldings)
		}
		// 99% of available, 1% buffer against in-flight balance changes.
		quantity = decimal.NewFromFloat(holding.Quantity * 0.99).Floor()
		if quantity.LessThan(e.minQty) {
			e.log.Warn().Float64("available", holding.Quantity).Msg("sell rejected: holdings below minimum tradable unit")
			return e.reject(Sell, ReasonNoHoldings)
		}
		e.log.Warn().Float64("requested", qty).Str("adjusted", quantity.String()).Msg("sell quantity reduced to available holdings")
	}

	return e.submit(ctx, Sell, quantity, price)
}

func (e *Executor) submit(ctx context.Context, side Side, quantity decimal.Decimal, price float64) Outcome {
	res, err := e.client.PlaceMarketOrder(ctx, side.apiValue(), e.symbol, quantity.String())
	if err != nil {
		e.log.Error().Err(err).Str("side", string(side)).Msg("order placement failed")
		return e.reject(side, ReasonExternalFailure)
	}

	execQty, _ := quantity.Float64()
	if res.ExecutedQty > 0 {
		execQty = res.ExecutedQty
	}
	execPrice := price
	if res.ExecutedPrice > 0 {
		execPrice = res.ExecutedPrice
	}

	metrics.OrdersTotal.WithLabelValues(e.symbol, string(side)).Inc()
	e.log.Info().Str("sym", e.symbol).Str("side", string(side)).Float64("qty", execQty).Float64("px", execPrice).Str("order_id", res.ID).Msg("order executed")
	return Outcome{
		Status:   StatusExecuted,
		Side:     side,
		Price:    execPrice,
		Quantity: execQty,
		Notional: execPrice * execQty,
	}
}

func (e *Executor) reject(side Side, reason Reason) Outcome {
	metrics.OrderRejectionsTotal.WithLabelValues(string(reason)).Inc()
	return Outcome{Status: StatusRejected, Reason: reason, Side: side}
}
