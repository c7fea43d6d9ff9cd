package strategy

import "pairtrader-go/internal/signal"

// SpreadReversion maps z-scores to position transitions. Entries are
// symmetric around zero; exits are the one-sided tests of the reference
// strategy (a long exits on z < z_exit, not z > -z_exit), kept literally.
type SpreadReversion struct {
	zEntry float64
	zExit  float64
}

// NewSpreadReversion builds the threshold logic, defaulting both thresholds
// to 0.8 when non-positive values are given.
func NewSpreadReversion(zEntry, zExit float64) *SpreadReversion {
	if zEntry <= 0 {
		zEntry = 0.8
	}
	if zExit <= 0 {
		zExit = 0.8
	}
	return &SpreadReversion{zEntry: zEntry, zExit: zExit}
}

// Name returns the identifier used for logging.
func (s *SpreadReversion) Name() string { return "SpreadReversion" }

// Advise evaluates one tradable step. direction is the current position:
// 0 flat, +1 long the spread, -1 short the spread.
func (s *SpreadReversion) Advise(direction int, z float64) signal.Action {
	switch {
	case direction == 0 && z < -s.zEntry:
		return signal.EnterLong
	case direction == 0 && z > s.zEntry:
		return signal.EnterShort
	case direction > 0 && z < s.zExit:
		return signal.Exit
	case direction < 0 && z > -s.zExit:
		return signal.Exit
	default:
		return signal.Hold
	}
}
