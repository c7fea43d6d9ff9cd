// Package filter implements the recursive linear-state estimators that track
// the intercept and hedge ratio between the future and perp price series.
package filter

import (
	"errors"
	"strings"
)

// ErrDegenerateGain is returned when the innovation variance collapses to
// (near) zero and the Kalman gain can no longer be computed. Callers must
// abort the run; the filters never emit NaN.
var ErrDegenerateGain = errors.New("filter: degenerate innovation variance in gain computation")

const degenerateEps = 1e-12

// Estimator is the shared contract of both filter variants: feed one (y, x)
// observation, get the model's prediction for y and the residual back.
type Estimator interface {
	// Update folds one observation into the model state.
	Update(y, x float64) (yhat, resid float64, err error)
	// Beta returns the current intercept and hedge ratio.
	Beta() (intercept, hedge float64)
	// Reset reinitializes beta to zero and the covariance to identity.
	Reset()
}

// state is the numerical core shared by both variants: a 2-vector beta over
// the feature [1, x], its 2x2 covariance, the process-noise diagonal
// coefficient, and the scalar measurement-noise variance.
type state struct {
	beta [2]float64
	p    [2][2]float64
	vw   float64
	ve   float64
}

func (s *state) reset(delta, r float64) {
	s.beta = [2]float64{}
	s.p = [2][2]float64{{1, 0}, {0, 1}}
	s.vw = delta / (1 - delta)
	s.ve = r
}

// gain computes the prediction, residual, and Kalman gain for one
// observation. Returns ErrDegenerateGain when the innovation variance S is
// numerically zero.
func (s *state) gain(y, x float64) (yhat, resid float64, k [2]float64, pf [2]float64, err error) {
	yhat = s.beta[0] + s.beta[1]*x

	// P·f for f = [1, x]; P stays symmetric so this doubles as f·P.
	pf[0] = s.p[0][0] + s.p[0][1]*x
	pf[1] = s.p[1][0] + s.p[1][1]*x

	innov := pf[0] + pf[1]*x + s.ve
	if innov < degenerateEps && innov > -degenerateEps {
		return 0, 0, k, pf, ErrDegenerateGain
	}

	resid = y - yhat
	k[0] = pf[0] / innov
	k[1] = pf[1] / innov
	return yhat, resid, k, pf, nil
}

// Kalman is the continuously adapting variant. Its covariance step is the
// reference's simplified adjustment: no predict-step noise inflation, and the
// scalar measurement noise is added to every covariance element after the
// measurement update. That deviates from the canonical predict/update split
// on purpose; "correcting" it changes the numerical output.
type Kalman struct {
	state
	delta float64
	r     float64
}

// NewKalman builds the continuous filter, defaulting delta to 1e-2 and the
// measurement noise to 0.001 when non-positive values are given.
func NewKalman(delta, r float64) *Kalman {
	if delta <= 0 {
		delta = 1e-2
	}
	if r <= 0 {
		r = 0.001
	}
	k := &Kalman{delta: delta, r: r}
	k.Reset()
	return k
}

// Reset restores the canonical zero-beta, identity-covariance state.
func (f *Kalman) Reset() {
	f.state.reset(f.delta, f.r)
}

// Update folds one observation into the model.
func (f *Kalman) Update(y, x float64) (float64, float64, error) {
	yhat, resid, k, pf, err := f.gain(y, x)
	if err != nil {
		return 0, 0, err
	}

	f.beta[0] += k[0] * resid
	f.beta[1] += k[1] * resid

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			f.p[i][j] = f.p[i][j] - k[i]*pf[j] + f.r
		}
	}
	return yhat, resid, nil
}

// Beta returns the current intercept and hedge ratio.
func (f *Kalman) Beta() (float64, float64) {
	return f.beta[0], f.beta[1]
}

// RollingKalman is the windowed variant: a canonical predict/update cycle
// each step, plus a full state reset once more than window residuals have
// accumulated. The reset throws away all prior learning; that is the
// regime-adaptation mechanism, not an accident.
type RollingKalman struct {
	state
	window  int
	delta   float64
	r       float64
	history []float64
	resets  int
}

// NewRollingKalman builds the windowed filter, defaulting the window to 500,
// delta to 1e-5, and the measurement noise to 0.001.
func NewRollingKalman(window int, delta, r float64) *RollingKalman {
	if window <= 0 {
		window = 500
	}
	if delta <= 0 {
		delta = 1e-5
	}
	if r <= 0 {
		r = 0.001
	}
	f := &RollingKalman{window: window, delta: delta, r: r}
	f.Reset()
	return f
}

// Reset reinitializes beta, covariance, and the residual history.
func (f *RollingKalman) Reset() {
	f.state.reset(f.delta, f.r)
	f.history = f.history[:0]
}

// Update runs predict (covariance inflation by the process noise) then the
// measurement update. Once the residual history has filled the window, the
// state is reset before the next observation is folded in, so the rollover
// observation becomes the first sample of the new regime.
func (f *RollingKalman) Update(y, x float64) (float64, float64, error) {
	if len(f.history) >= f.window {
		f.Reset()
		f.resets++
	}

	f.p[0][0] += f.vw
	f.p[1][1] += f.vw

	yhat, resid, k, pf, err := f.gain(y, x)
	if err != nil {
		return 0, 0, err
	}

	f.beta[0] += k[0] * resid
	f.beta[1] += k[1] * resid

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			f.p[i][j] -= k[i] * pf[j]
		}
	}

	f.history = append(f.history, resid)
	return yhat, resid, nil
}

// Beta returns the current intercept and hedge ratio.
func (f *RollingKalman) Beta() (float64, float64) {
	return f.beta[0], f.beta[1]
}

// Resets reports how many window rollovers have occurred.
func (f *RollingKalman) Resets() int { return f.resets }

// Build returns the estimator variant matching the configured mode,
// falling back to the continuous filter for unknown modes.
func Build(mode string, delta, r float64, window int) Estimator {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "rolling", "windowed":
		return NewRollingKalman(window, delta, r)
	default:
		return NewKalman(delta, r)
	}
}
