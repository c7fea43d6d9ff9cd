// Package strategy contains the signal-generation logic that turns the
// estimator's residual stream into entry/exit advice.
package strategy

import "math"

// RollingStats keeps a trailing fixed-size window of residuals and exposes
// the sample mean and standard deviation over it. The z-score is undefined
// until the window has filled; callers must drop those leading samples from
// the tradable sequence entirely.
type RollingStats struct {
	window int
	values []float64
}

// NewRollingStats builds a window of the given size, defaulting to 40.
func NewRollingStats(window int) *RollingStats {
	if window <= 0 {
		window = 40
	}
	return &RollingStats{window: window, values: make([]float64, 0, window)}
}

// Push appends a residual, evicting the oldest once the window is full.
func (r *RollingStats) Push(v float64) {
	if len(r.values) == r.window {
		copy(r.values, r.values[1:])
		r.values[len(r.values)-1] = v
		return
	}
	r.values = append(r.values, v)
}

// Full reports whether enough samples exist for a defined z-score.
func (r *RollingStats) Full() bool { return len(r.values) == r.window }

// Mean returns the sample mean over the current window.
func (r *RollingStats) Mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.values {
		sum += v
	}
	return sum / float64(len(r.values))
}

// Std returns the sample standard deviation (n-1 denominator) over the
// current window, 0 when fewer than two samples exist.
func (r *RollingStats) Std() float64 {
	n := len(r.values)
	if n < 2 {
		return 0
	}
	mean := r.Mean()
	var ss float64
	for _, v := range r.values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Score returns the z-score of the most recent sample against the window.
// ok is false while the window is filling or when the deviation is zero;
// such steps carry no defined score and are excluded from trading.
func (r *RollingStats) Score() (z float64, ok bool) {
	if !r.Full() {
		return 0, false
	}
	std := r.Std()
	if std == 0 {
		return 0, false
	}
	latest := r.values[len(r.values)-1]
	return (latest - r.Mean()) / std, true
}
