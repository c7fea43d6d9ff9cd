// Package backtest runs the mean-reversion simulation over an aligned pair
// series and reduces its trade log to summary metrics.
package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pairtrader-go/internal/filter"
	"pairtrader-go/internal/margin"
	"pairtrader-go/internal/market"
	"pairtrader-go/internal/metrics"
	"pairtrader-go/internal/risk"
	"pairtrader-go/internal/signal"
	"pairtrader-go/internal/strategy"
)

// Position is the simulator's state: flat, long the spread, or short it.
type Position int

const (
	Flat Position = iota
	Long
	Short
)

// String returns the label used in the trade log.
func (p Position) String() string {
	switch p {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

func (p Position) direction() int {
	switch p {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// TradeLogEntry is the immutable record appended once per evaluated step.
// Ineligible steps produce no entry at all, leaving gaps in the timeline.
type TradeLogEntry struct {
	Ts            time.Time `json:"timestamp"`
	Position      Position  `json:"position"`
	ZScore        float64   `json:"zscore"`
	Spread        float64   `json:"spread"`
	HedgeRatio    float64   `json:"hedge_ratio"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	Equity        float64   `json:"equity"`
	EntrySignal   bool      `json:"entry_signal"`
	ExitSignal    bool      `json:"exit_signal"`
}

// Config sizes the simulation.
type Config struct {
	InitialCapital float64
	TradeNotional  float64
	ZScoreWindow   int
}

// Simulator owns one run: one estimator, one strategy, one trade log.
// Construct a fresh one per backtest; replaying the same input through a
// fresh simulator yields a bit-identical log.
type Simulator struct {
	est     filter.Estimator
	strat   *strategy.SpreadReversion
	limits  risk.Limits
	cfg     Config
	log     zerolog.Logger
	account *margin.Account
}

// NewSimulator wires the estimator, strategy, and limits into a run, filling
// config defaults (capital and notional 100000, z-score window 40).
func NewSimulator(est filter.Estimator, strat *strategy.SpreadReversion, limits risk.Limits, cfg Config, log zerolog.Logger) *Simulator {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = 100_000
	}
	if cfg.TradeNotional <= 0 {
		cfg.TradeNotional = 100_000
	}
	if cfg.ZScoreWindow <= 0 {
		cfg.ZScoreWindow = 40
	}
	return &Simulator{est: est, strat: strat, limits: limits, cfg: cfg, log: log}
}

// WithAccount attaches a margin account that shadows the simulated position:
// legs are set at entry, marked for liquidation checks each eligible step,
// and flattened at exit. The account never alters the trade log itself.
func (s *Simulator) WithAccount(account *margin.Account) *Simulator {
	s.account = account
	return s
}

// estRow pairs one estimator output with the prices that produced it.
type estRow struct {
	signal.SpreadSample
	future float64
	perp   float64
}

// tradableRow is an estRow whose z-score is defined.
type tradableRow struct {
	estRow
	z float64
}

// Run executes the full pipeline: estimate the spread and hedge ratio over
// every pair, materialize rolling z-scores, drop the warm-up rows, then walk
// the tradable sequence with the position state machine.
func (s *Simulator) Run(pairs []market.PricePair) ([]TradeLogEntry, error) {
	rows, err := s.estimate(pairs)
	if err != nil {
		return nil, err
	}
	return s.simulate(s.score(rows)), nil
}

func (s *Simulator) estimate(pairs []market.PricePair) ([]estRow, error) {
	rows := make([]estRow, 0, len(pairs))
	var prevSign int
	havePrev := false

	for _, p := range pairs {
		_, resid, err := s.est.Update(p.Future, p.Perp)
		if err != nil {
			return nil, fmt.Errorf("estimator update at %s: %w", p.Ts.Format(time.RFC3339), err)
		}
		_, hedge := s.est.Beta()

		sign := signOf(hedge)
		if havePrev && sign != prevSign {
			s.log.Warn().Time("ts", p.Ts).Float64("hedge_ratio", hedge).Msg("hedge ratio flipped sign")
		}
		prevSign, havePrev = sign, true

		metrics.PairsProcessed.Inc()
		rows = append(rows, estRow{
			SpreadSample: signal.SpreadSample{Ts: p.Ts, Spread: resid, HedgeRatio: hedge},
			future:       p.Future,
			perp:         p.Perp,
		})
	}
	return rows, nil
}

// score computes rolling z-scores and excludes every row without a defined
// one, so warm-up samples never reach the state machine.
func (s *Simulator) score(rows []estRow) []tradableRow {
	stats := strategy.NewRollingStats(s.cfg.ZScoreWindow)
	tradable := make([]tradableRow, 0, len(rows))
	for _, r := range rows {
		stats.Push(r.Spread)
		z, ok := stats.Score()
		if !ok {
			continue
		}
		tradable = append(tradable, tradableRow{estRow: r, z: z})
	}
	return tradable
}

func (s *Simulator) simulate(tradable []tradableRow) []TradeLogEntry {
	position := Flat
	equity := s.cfg.InitialCapital
	var entryFuture, entryPerp float64
	entryHedge := 1.0

	entries := make([]TradeLogEntry, 0, len(tradable))
	for i := 1; i < len(tradable); i++ {
		r := tradable[i]
		entryFlag := false
		exitFlag := false
		var unrealized, realized float64

		// Ineligible steps are skipped before anything else: no entries, no
		// exits, no mark-to-market, and no trade-log entry.
		if !s.limits.Tradable(r.HedgeRatio) {
			continue
		}

		switch position {
		case Flat:
			action := s.strat.Advise(position.direction(), r.z)
			if (action == signal.EnterLong || action == signal.EnterShort) && s.limits.Allow(s.cfg.TradeNotional) {
				if action == signal.EnterLong {
					position = Long
				} else {
					position = Short
				}
				entryFlag = true
				entryFuture, entryPerp, entryHedge = r.future, r.perp, r.HedgeRatio
				s.openAccountLegs(position, entryFuture, entryPerp, entryHedge)
				metrics.SignalsTotal.WithLabelValues(action.String()).Inc()
				metrics.TradesTotal.WithLabelValues(position.String()).Inc()
			}

		case Long:
			longQty := s.cfg.TradeNotional / entryFuture
			shortQty := s.cfg.TradeNotional * entryHedge / entryPerp
			unrealized = longQty*(r.future-entryFuture) + shortQty*(entryPerp-r.perp)
			s.markAccount(r)
			if s.strat.Advise(position.direction(), r.z) == signal.Exit {
				position = Flat
				realized = unrealized
				equity += realized
				unrealized = 0
				exitFlag = true
				s.flattenAccount(realized)
				metrics.SignalsTotal.WithLabelValues(signal.Exit.String()).Inc()
			}

		case Short:
			shortQty := s.cfg.TradeNotional / entryFuture
			longQty := s.cfg.TradeNotional * entryHedge / entryPerp
			unrealized = shortQty*(entryFuture-r.future) + longQty*(r.perp-entryPerp)
			s.markAccount(r)
			if s.strat.Advise(position.direction(), r.z) == signal.Exit {
				position = Flat
				realized = unrealized
				equity += realized
				unrealized = 0
				exitFlag = true
				s.flattenAccount(realized)
				metrics.SignalsTotal.WithLabelValues(signal.Exit.String()).Inc()
			}
		}

		entries = append(entries, TradeLogEntry{
			Ts:            r.Ts,
			Position:      position,
			ZScore:        r.z,
			Spread:        r.Spread,
			HedgeRatio:    r.HedgeRatio,
			RealizedPnL:   realized,
			UnrealizedPnL: unrealized,
			Equity:        equity,
			EntrySignal:   entryFlag,
			ExitSignal:    exitFlag,
		})
	}
	return entries
}

func (s *Simulator) openAccountLegs(position Position, entryFuture, entryPerp, entryHedge float64) {
	if s.account == nil {
		return
	}
	futureQty := s.cfg.TradeNotional / entryFuture
	perpQty := s.cfg.TradeNotional * entryHedge / entryPerp
	if position == Short {
		futureQty, perpQty = -futureQty, -perpQty
	}
	// Long the spread means long the future leg and short the perp leg.
	s.account.SetLegs(
		margin.Leg{Qty: -perpQty, EntryPrice: entryPerp},
		margin.Leg{Qty: futureQty, EntryPrice: entryFuture},
	)
}

func (s *Simulator) markAccount(r tradableRow) {
	if s.account == nil || s.account.Liquidated() {
		return
	}
	if s.account.CheckLiquidation(r.perp, r.future) {
		s.log.Warn().Time("ts", r.Ts).Msg("margin account breached maintenance ratio")
	}
}

func (s *Simulator) flattenAccount(realized float64) {
	if s.account == nil {
		return
	}
	s.account.Flatten(realized)
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
