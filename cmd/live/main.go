// Binary live streams ticks for both legs, runs the estimator and z-score
// logic on the joined stream, and logs the signals it would trade. No orders
// are ever placed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"pairtrader-go/internal/config"
	"pairtrader-go/internal/exchange"
	"pairtrader-go/internal/filter"
	"pairtrader-go/internal/metrics"
	"pairtrader-go/internal/risk"
	sig "pairtrader-go/internal/signal"
	"pairtrader-go/internal/strategy"
	"pairtrader-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	provider := flag.String("provider", exchange.ProviderStub, "tick source: stub or binance")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	perpSym := cfg.Data.PerpSymbol
	futureSym := cfg.Data.FutureInstrument
	feed := exchange.NewFeed(*provider, []string{perpSym, futureSym}, log)
	ticks := make(chan sig.Tick, 1024)

	go func() {
		if err := feed.Run(ctx, ticks); err != nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	est := filter.Build(cfg.Filter.Mode, cfg.Filter.Delta, cfg.Filter.MeasurementNoise, cfg.Filter.Window)
	stats := strategy.NewRollingStats(cfg.Signal.ZScoreWindow)
	strat := strategy.NewSpreadReversion(cfg.Signal.ZEntry, cfg.Signal.ZExit)
	limits := risk.Limits{MinHedgeRatio: cfg.Signal.MinHedgeRatio}

	last := map[string]float64{}
	direction := 0

	log.Info().Str("perp", perpSym).Str("future", futureSym).Msg("live signal monitor started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case tk := <-ticks:
			last[tk.Symbol] = tk.Price

			// Evaluate once per future-leg tick, after both legs have traded.
			if tk.Symbol != futureSym {
				continue
			}
			perpPx, ok := last[perpSym]
			if !ok {
				continue
			}

			_, resid, err := est.Update(tk.Price, perpPx)
			if err != nil {
				log.Fatal().Err(err).Msg("estimator degenerated")
			}
			_, hedge := est.Beta()

			stats.Push(resid)
			z, ok := stats.Score()
			if !ok || !limits.Tradable(hedge) {
				continue
			}

			action := strat.Advise(direction, z)
			if action == sig.Hold {
				continue
			}
			switch action {
			case sig.EnterLong:
				direction = 1
			case sig.EnterShort:
				direction = -1
			case sig.Exit:
				direction = 0
			}

			metrics.SignalsTotal.WithLabelValues(action.String()).Inc()
			log.Info().
				Time("ts", tk.Ts).
				Str("action", action.String()).
				Float64("zscore", z).
				Float64("hedge_ratio", hedge).
				Msg("signal")
		}
	}
}
