package backtest

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairtrader-go/internal/filter"
	"pairtrader-go/internal/market"
	"pairtrader-go/internal/risk"
	"pairtrader-go/internal/strategy"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func pairSeries(n int, future, perp func(i int) float64) []market.PricePair {
	pairs := make([]market.PricePair, n)
	for i := range pairs {
		pairs[i] = market.PricePair{
			Ts:     base.Add(time.Duration(i) * time.Minute),
			Future: future(i),
			Perp:   perp(i),
		}
	}
	return pairs
}

func newSimulator(est filter.Estimator) *Simulator {
	strat := strategy.NewSpreadReversion(0.8, 0.8)
	limits := risk.Limits{MinHedgeRatio: 0.05}
	return NewSimulator(est, strat, limits, Config{}, zerolog.Nop())
}

func TestConstantEqualSeriesNeverEnters(t *testing.T) {
	pairs := pairSeries(50,
		func(int) float64 { return 100 },
		func(int) float64 { return 100 },
	)
	sim := newSimulator(filter.NewRollingKalman(500, 1e-5, 0.001))

	entries, err := sim.Run(pairs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected tradable steps after warm-up")
	}
	for _, e := range entries {
		if e.Position != Flat || e.EntrySignal {
			t.Fatalf("unexpected entry on constant series: %+v", e)
		}
		if math.Abs(e.ZScore) >= 0.8 {
			t.Fatalf("z-score left the neutral band: %g", e.ZScore)
		}
		if math.Abs(e.HedgeRatio-1) > 0.05 {
			t.Fatalf("hedge ratio did not stay near 1: %g", e.HedgeRatio)
		}
	}
}

func TestStepChangeTriggersEntry(t *testing.T) {
	pairs := pairSeries(60,
		func(i int) float64 {
			if i >= 45 {
				return 105 // +5% step in the future leg
			}
			return 100
		},
		func(int) float64 { return 100 },
	)
	sim := newSimulator(filter.NewRollingKalman(500, 1e-5, 0.001))

	entries, err := sim.Run(pairs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	found := false
	for _, e := range entries {
		if e.EntrySignal && !e.Ts.After(base.Add(55*time.Minute)) {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected an entry within 10 steps of the step-change")
	}
}

func TestEntryExitPairingAndEquity(t *testing.T) {
	pairs := pairSeries(60,
		func(i int) float64 {
			if i >= 45 {
				return 105
			}
			return 100
		},
		func(int) float64 { return 100 },
	)
	sim := newSimulator(filter.NewRollingKalman(500, 1e-5, 0.001))

	entries, err := sim.Run(pairs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	prevPos := Flat
	open := false
	for i, e := range entries {
		if e.EntrySignal && e.ExitSignal {
			t.Fatalf("entry and exit on the same step %d", i)
		}
		if (prevPos == Long && e.Position == Short) || (prevPos == Short && e.Position == Long) {
			t.Fatalf("direct long/short flip at step %d", i)
		}
		if e.EntrySignal {
			if open {
				t.Fatalf("entry while already open at step %d", i)
			}
			open = true
			if e.Position == Flat {
				t.Fatalf("entry step logged flat position")
			}
		}
		if e.ExitSignal {
			if !open {
				t.Fatalf("exit without entry at step %d", i)
			}
			open = false
			if e.Position != Flat {
				t.Fatalf("exit step logged open position")
			}
			if e.UnrealizedPnL != 0 {
				t.Fatalf("unrealized not zeroed at exit")
			}
		}
		// Equity moves only at exit steps.
		if i > 0 {
			prevEquity := entries[i-1].Equity
			if e.ExitSignal {
				if e.Equity != prevEquity+e.RealizedPnL {
					t.Fatalf("equity not updated by realized pnl at exit")
				}
			} else if e.Equity != prevEquity {
				t.Fatalf("equity changed outside an exit at step %d", i)
			}
			if !e.ExitSignal && e.RealizedPnL != 0 {
				t.Fatalf("realized pnl outside an exit at step %d", i)
			}
		}
		prevPos = e.Position
	}
}

func TestReplayIsBitIdentical(t *testing.T) {
	future := func(i int) float64 { return 100 + 3*math.Sin(float64(i)/7) }
	perp := func(i int) float64 { return 99.5 + 3*math.Sin(float64(i)/7+0.2) }
	pairs := pairSeries(200, future, perp)

	first, err := newSimulator(filter.NewRollingKalman(500, 1e-5, 0.001)).Run(pairs)
	if err != nil {
		t.Fatalf("first run error: %v", err)
	}
	second, err := newSimulator(filter.NewRollingKalman(500, 1e-5, 0.001)).Run(pairs)
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay produced a different trade log")
	}
}

func TestInsufficientDataYieldsEmptyLog(t *testing.T) {
	pairs := pairSeries(10,
		func(i int) float64 { return 100 + float64(i) },
		func(i int) float64 { return 100 + float64(i) },
	)
	sim := newSimulator(filter.NewKalman(1e-2, 0.001))

	entries, err := sim.Run(pairs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty log below the z-score window, got %d entries", len(entries))
	}
}

type failingEstimator struct{}

func (failingEstimator) Update(_, _ float64) (float64, float64, error) {
	return 0, 0, filter.ErrDegenerateGain
}
func (failingEstimator) Beta() (float64, float64) { return 0, 0 }
func (failingEstimator) Reset()                   {}

func TestDegeneracyAbortsRun(t *testing.T) {
	pairs := pairSeries(5,
		func(int) float64 { return 100 },
		func(int) float64 { return 100 },
	)
	sim := newSimulator(failingEstimator{})

	if _, err := sim.Run(pairs); !errors.Is(err, filter.ErrDegenerateGain) {
		t.Fatalf("expected ErrDegenerateGain, got %v", err)
	}
}

func TestIneligibleStepsLeaveGaps(t *testing.T) {
	// A negative hedge ratio freezes the whole step, so with a stub estimator
	// pinned negative the log must stay empty.
	sim := newSimulator(negativeHedgeEstimator{})
	pairs := pairSeries(60,
		func(i int) float64 { return 100 + float64(i) },
		func(int) float64 { return 100 },
	)

	entries, err := sim.Run(pairs)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries for ineligible steps, got %d", len(entries))
	}
}

type negativeHedgeEstimator struct{}

func (negativeHedgeEstimator) Update(y, x float64) (float64, float64, error) {
	return 0, math.Sin(y + x), nil
}
func (negativeHedgeEstimator) Beta() (float64, float64) { return 0, -1 }
func (negativeHedgeEstimator) Reset()                   {}
