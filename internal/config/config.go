// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Data describes the two price series and where their CSV snapshots live.
type Data struct {
	PerpSymbol       string `yaml:"perp_symbol"`
	FutureInstrument string `yaml:"future_instrument"`
	RawDir           string `yaml:"raw_dir"`
	ProcessedDir     string `yaml:"processed_dir"`
	PairsPath        string `yaml:"pairs_path"`
	BinanceBaseURL   string `yaml:"binance_base_url"`
	DeribitBaseURL   string `yaml:"deribit_base_url"`
	Resolution       string `yaml:"resolution"`
	Limit            int    `yaml:"limit"`
}

// Filter groups the tunable knobs of the linear-state estimator.
type Filter struct {
	Mode             string  `yaml:"mode"` // "standard" or "rolling"
	Delta            float64 `yaml:"delta"`
	MeasurementNoise float64 `yaml:"measurement_noise"`
	Window           int     `yaml:"window"` // rolling variant only
}

// Signal holds the z-score windowing and threshold parameters.
type Signal struct {
	ZScoreWindow  int     `yaml:"zscore_window"`
	ZEntry        float64 `yaml:"z_entry"`
	ZExit         float64 `yaml:"z_exit"`
	MinHedgeRatio float64 `yaml:"min_hedge_ratio"`
}

// Backtest captures simulation sizing and output settings.
type Backtest struct {
	InitialCapital float64 `yaml:"initial_capital"`
	TradeNotional  float64 `yaml:"trade_notional"`
	LogPath        string  `yaml:"log_path"`
}

// Margin configures the peripheral margin-account model.
type Margin struct {
	InitialCash            float64 `yaml:"initial_cash"`
	Leverage               float64 `yaml:"leverage"`
	MaintenanceMarginRatio float64 `yaml:"maintenance_margin_ratio"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Data     Data     `yaml:"data"`
	Filter   Filter   `yaml:"filter"`
	Signal   Signal   `yaml:"signal"`
	Backtest Backtest `yaml:"backtest"`
	Margin   Margin   `yaml:"margin"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
