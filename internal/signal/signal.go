// Package signal standardizes payloads shared between the estimator, strategy, and simulation layers.
package signal

import "time"

// Tick models a single price observation for one leg of the traded pair.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time
}

// SpreadSample carries one step of estimator output: the residual of the
// linear model and the hedge ratio that produced it.
type SpreadSample struct {
	Ts         time.Time
	Spread     float64
	HedgeRatio float64
}

// Action enumerates what the spread-reversion logic wants done with the position.
type Action int

const (
	// Hold means no transition this step.
	Hold Action = iota
	// EnterLong buys the spread (long the future leg, short the perp leg).
	EnterLong
	// EnterShort sells the spread.
	EnterShort
	// Exit flattens whatever position is open.
	Exit
)

// String returns the label used for logging and metrics.
func (a Action) String() string {
	switch a {
	case EnterLong:
		return "enter_long"
	case EnterShort:
		return "enter_short"
	case Exit:
		return "exit"
	default:
		return "hold"
	}
}

// Signal expresses the advice produced for one tradable step.
type Signal struct {
	Ts     time.Time
	Action Action
	ZScore float64
}
