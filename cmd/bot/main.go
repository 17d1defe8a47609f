// Binary bot runs the crypto trading strategy loop. Simulation is the
// default; pass -live to place real orders.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bernardogv/robinhood-api-trading-2.0/internal/broker"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/config"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/execution"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/market"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/metrics"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/position"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/risk"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/strategy"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/trader"
	"github.com/bernardogv/robinhood-api-trading-2.0/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	symbol := flag.String("symbol", "", "trading pair, overrides config")
	quantity := flag.Float64("quantity", 0, "units per order, overrides config")
	interval := flag.Int("interval", 0, "seconds between cycles, overrides config")
	duration := flag.Int("duration", 0, "run length in seconds, overrides config")
	live := flag.Bool("live", false, "place real orders instead of simulating")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewLogger(cfg.App.LogLevel)

	if *symbol != "" {
		cfg.Broker.Symbol = *symbol
	}
	if *quantity > 0 {
		cfg.Run.Quantity = *quantity
	}
	if *interval > 0 {
		cfg.Run.IntervalSecs = *interval
	}
	if *duration > 0 {
		cfg.Run.DurationSecs = *duration
	}
	if *live {
		cfg.Run.Live = true
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := buildClient(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build broker client")
	}

	// Startup precondition: a failed authentication aborts before the loop.
	acct, err := client.Account(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("broker authentication failed, check API credentials")
	}
	log.Info().Float64("buying_power", acct.BuyingPower).Msg("broker authenticated")

	verifyPair(ctx, client, cfg.Broker.Symbol, log)

	tr, closeRecorder, err := buildTrader(cfg, client, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build trader")
	}
	defer closeRecorder()

	if cfg.Run.Live {
		log.Warn().Msg("LIVE TRADING MODE: real orders will be placed")
	} else {
		log.Info().Msg("simulation mode: no orders will be placed")
	}
	log.Info().
		Str("symbol", cfg.Broker.Symbol).
		Float64("quantity", cfg.Run.Quantity).
		Int("interval_secs", cfg.Run.IntervalSecs).
		Int("duration_secs", cfg.Run.DurationSecs).
		Msg("strategy starting")

	if err := tr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("run stopped")
	}

	reportSummary(tr, client, cfg.Broker.Symbol, log)
}

func buildClient(cfg *config.Config, log zerolog.Logger) (broker.Client, error) {
	if cfg.Broker.Mode == "sim" {
		sim := broker.NewSim(100, 10_000)
		sim.EnableWalk(time.Now().UnixNano())
		return sim, nil
	}
	creds, err := broker.LoadCredentialsFromEnv()
	if err != nil {
		return nil, err
	}
	opts := []broker.RESTOption{broker.WithBaseURL(cfg.Broker.BaseURL)}
	if cfg.Broker.TimeoutSecs > 0 {
		opts = append(opts, broker.WithTimeout(time.Duration(cfg.Broker.TimeoutSecs)*time.Second))
	}
	return broker.NewRESTClient(creds, log, opts...), nil
}

func verifyPair(ctx context.Context, client broker.Client, symbol string, log zerolog.Logger) {
	pairs, err := client.TradingPairs(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Msg("could not verify trading pair, continuing anyway")
		return
	}
	for _, p := range pairs {
		if p == symbol {
			log.Info().Str("symbol", symbol).Msg("trading pair verified")
			return
		}
	}
	log.Warn().Str("symbol", symbol).Msg("trading pair not found in venue listing")
}

func buildTrader(cfg *config.Config, client broker.Client, log zerolog.Logger) (*trader.Trader, func(), error) {
	state := market.New(market.Params{
		RSIPeriod:        cfg.Indicators.RSIPeriod,
		BBPeriod:         cfg.Indicators.BBPeriod,
		BBStdDev:         cfg.Indicators.BBStdDev,
		MACDFast:         cfg.Indicators.MACDFast,
		MACDSlow:         cfg.Indicators.MACDSlow,
		MACDSignal:       cfg.Indicators.MACDSignal,
		VolatilityWindow: cfg.Indicators.VolatilityWindow,
		EMAShort:         cfg.Indicators.EMAShort,
		EMAMedium:        cfg.Indicators.EMAMedium,
		EMALong:          cfg.Indicators.EMALong,
	})
	engine := strategy.NewEngine(strategy.Thresholds{
		Oversold:        cfg.Strategy.Oversold,
		NearOversold:    cfg.Strategy.NearOversold,
		Overbought:      cfg.Strategy.Overbought,
		NearOverbought:  cfg.Strategy.NearOverbought,
		HighVolatility:  cfg.Strategy.HighVolatility,
		MinScore:        cfg.Strategy.MinScore,
		ProfitTarget:    cfg.Strategy.ProfitTarget,
		StopLoss:        cfg.Strategy.StopLoss,
		MaxPositionSize: cfg.Strategy.MaxPositionSize,
	})

	closeRecorder := func() {}
	var recorder position.TradeRecorder
	if cfg.Run.TradesPath != "" {
		jsonl, err := position.NewJSONLRecorder(cfg.Run.TradesPath)
		if err != nil {
			return nil, nil, err
		}
		recorder = jsonl
		closeRecorder = func() { _ = jsonl.Close() }
	}
	tracker := position.NewTracker(recorder)

	exec := execution.NewExecutor(client, cfg.Broker.Symbol, cfg.Broker.AssetCode, cfg.Run.MinOrderQty, log)
	tr := trader.New(trader.Config{
		Symbol:            cfg.Broker.Symbol,
		AssetCode:         cfg.Broker.AssetCode,
		Quantity:          cfg.Run.Quantity,
		Interval:          time.Duration(cfg.Run.IntervalSecs) * time.Second,
		Duration:          time.Duration(cfg.Run.DurationSecs) * time.Second,
		Live:              cfg.Run.Live,
		BuyConfidenceMin:  cfg.Strategy.BuyConfidenceMin,
		SellConfidenceMin: cfg.Strategy.SellConfidenceMin,
	}, client, state, engine, exec, tracker, risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade}, log)
	return tr, closeRecorder, nil
}

func reportSummary(tr *trader.Trader, client broker.Client, symbol string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var finalPrice float64
	if q, err := client.BestBidAsk(ctx, symbol); err == nil && q != nil {
		finalPrice = q.Mid()
	}

	s := tr.Summarize(finalPrice)
	ev := log.Info().
		Int("cycles", s.Cycles).
		Dur("runtime", s.Runtime).
		Int("trades", s.Trades).
		Int("buys", s.Buys).
		Int("sells", s.Sells).
		Float64("realized_pnl", s.RealizedPnL)
	if s.InitialPrice > 0 && s.FinalPrice > 0 {
		ev = ev.Float64("initial_price", s.InitialPrice).
			Float64("final_price", s.FinalPrice).
			Float64("market_change_pct", s.MarketChange)
	}
	if s.Wins+s.Losses > 0 {
		ev = ev.Float64("win_rate", s.WinRate).Float64("avg_win", s.AvgWin).Float64("avg_loss", s.AvgLoss)
	}
	if s.OpenSize > 0 {
		ev = ev.Float64("open_size", s.OpenSize).
			Float64("unrealized_pnl", s.UnrealizedPnL).
			Float64("unrealized_pct", s.UnrealizedPct)
	}
	ev.Msg("run summary")
}
