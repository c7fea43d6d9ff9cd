// Binary fetch downloads the perpetual and fixed-maturity candle series,
// cleans them, and writes the raw, processed, and aligned CSV snapshots the
// backtest consumes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pairtrader-go/internal/config"
	"pairtrader-go/internal/exchange"
	"pairtrader-go/internal/market"
	"pairtrader-go/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	_ = godotenv.Load() // best-effort

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := exchange.NewClient(
		cfg.Data.BinanceBaseURL,
		cfg.Data.DeribitBaseURL,
		exchange.WithBinanceAPIKey(os.Getenv("BINANCE_API_KEY")),
	)

	interval := cfg.Data.Resolution + "m"
	perp, err := client.BinanceKlines(ctx, cfg.Data.PerpSymbol, interval, cfg.Data.Limit)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch perp klines")
	}
	log.Info().Int("bars", len(perp)).Str("symbol", cfg.Data.PerpSymbol).Msg("fetched perp series")

	future, err := client.DeribitChart(ctx, cfg.Data.FutureInstrument, cfg.Data.Resolution, cfg.Data.Limit, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Msg("fetch future chart")
	}
	log.Info().Int("bars", len(future)).Str("instrument", cfg.Data.FutureInstrument).Msg("fetched future series")

	if err := writeSeries(cfg, cfg.Data.PerpSymbol, perp); err != nil {
		log.Fatal().Err(err).Msg("write perp series")
	}
	if err := writeSeries(cfg, cfg.Data.FutureInstrument, future); err != nil {
		log.Fatal().Err(err).Msg("write future series")
	}

	pairs := market.AlignPairs(market.Preprocess(future), market.Preprocess(perp))
	if err := market.WritePairs(cfg.Data.PairsPath, pairs); err != nil {
		log.Fatal().Err(err).Msg("write aligned pairs")
	}
	log.Info().Int("pairs", len(pairs)).Str("path", cfg.Data.PairsPath).Msg("aligned series written")
}

func writeSeries(cfg *config.Config, name string, candles []market.Candle) error {
	slug := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	if err := market.WriteCandles(filepath.Join(cfg.Data.RawDir, slug+"_raw.csv"), candles); err != nil {
		return err
	}
	return market.WriteCandles(filepath.Join(cfg.Data.ProcessedDir, slug+"_processed.csv"), market.Preprocess(candles))
}
