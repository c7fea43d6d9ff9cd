// Binary backtest replays an aligned pair series through the Kalman
// estimator and the mean-reversion simulator, then reports summary metrics.
package main

import (
	"flag"
	"fmt"
	"os"

	"pairtrader-go/internal/backtest"
	"pairtrader-go/internal/config"
	"pairtrader-go/internal/filter"
	"pairtrader-go/internal/margin"
	"pairtrader-go/internal/market"
	"pairtrader-go/internal/risk"
	"pairtrader-go/internal/strategy"
	"pairtrader-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	pairsPath := flag.String("pairs", "", "override the aligned pairs CSV path")
	outPath := flag.String("out", "", "override the trade log CSV path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewConsoleLogger(cfg.App.LogLevel)

	input := cfg.Data.PairsPath
	if *pairsPath != "" {
		input = *pairsPath
	}
	pairs, err := market.ReadPairs(input)
	if err != nil {
		log.Fatal().Err(err).Msg("load pairs")
	}
	log.Info().Int("pairs", len(pairs)).Str("path", input).Msg("loaded aligned series")

	est := filter.Build(cfg.Filter.Mode, cfg.Filter.Delta, cfg.Filter.MeasurementNoise, cfg.Filter.Window)
	strat := strategy.NewSpreadReversion(cfg.Signal.ZEntry, cfg.Signal.ZExit)
	limits := risk.Limits{MinHedgeRatio: cfg.Signal.MinHedgeRatio}
	account := margin.NewAccount(cfg.Margin.InitialCash, cfg.Margin.Leverage, cfg.Margin.MaintenanceMarginRatio)

	sim := backtest.NewSimulator(est, strat, limits, backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		TradeNotional:  cfg.Backtest.TradeNotional,
		ZScoreWindow:   cfg.Signal.ZScoreWindow,
	}, log).WithAccount(account)

	entries, err := sim.Run(pairs)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
	if len(entries) == 0 {
		log.Warn().Msg("no trades were generated")
		return
	}

	output := cfg.Backtest.LogPath
	if *outPath != "" {
		output = *outPath
	}
	if output != "" {
		if err := backtest.WriteLogCSV(output, entries); err != nil {
			log.Fatal().Err(err).Msg("write trade log")
		}
		log.Info().Int("entries", len(entries)).Str("path", output).Msg("trade log written")
	}

	metrics := backtest.Evaluate(entries)
	printMetrics(metrics, "Strategy Evaluation")

	if account.Liquidated() {
		log.Warn().Msg("margin account was liquidated during the run")
	} else {
		log.Info().Float64("cash", account.Cash()).Msg("margin account survived the run")
	}
}

func printMetrics(m backtest.Metrics, title string) {
	fmt.Printf("\n=== %s ===\n", title)
	fmt.Printf("Total Return: %.4f\n", m.TotalReturn)
	fmt.Printf("Sharpe Ratio: %.4f\n", m.SharpeRatio)
	fmt.Printf("Max Drawdown: %.4f\n", m.MaxDrawdown)
	fmt.Printf("Number of Trades: %d\n", m.TradeCount)
	fmt.Printf("Average Trade PnL: %.4f\n", m.AvgTradePnL)
}
