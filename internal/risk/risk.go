// Package risk encodes the guard-rails applied before any simulated exposure.
package risk

import "math"

// Limits collects the eligibility rules consulted once per step.
type Limits struct {
	// MinHedgeRatio is the magnitude floor below which a step is skipped
	// outright: no entries, no exits, no mark-to-market.
	MinHedgeRatio float64
	// MaxNotionalPerTrade caps the per-trade notional; zero disables the cap.
	MaxNotionalPerTrade float64
}

// Tradable reports whether the hedge ratio permits trading this step.
// Non-positive or too-small ratios freeze the step entirely.
func (l Limits) Tradable(hedgeRatio float64) bool {
	if hedgeRatio <= 0 {
		return false
	}
	return math.Abs(hedgeRatio) >= l.MinHedgeRatio
}

// Allow reports whether a trade of the given notional fits the cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}
