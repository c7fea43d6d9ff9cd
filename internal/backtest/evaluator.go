package backtest

import "math"

const annualization = 252

// Metrics is the scalar summary of a completed trade log.
type Metrics struct {
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	TradeCount  int
	AvgTradePnL float64
}

// Map exposes the metrics as the string-keyed mapping reported to callers.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"Total Return":      m.TotalReturn,
		"Sharpe Ratio":      m.SharpeRatio,
		"Max Drawdown":      m.MaxDrawdown,
		"Number of Trades":  float64(m.TradeCount),
		"Average Trade PnL": m.AvgTradePnL,
	}
}

// Evaluate reduces a trade log to summary metrics. It is a pure function: an
// empty log yields zero-valued metrics with TradeCount 0 rather than an
// error.
//
// Total return is measured against the equity before the first logged step
// (first equity minus that step's PnL), so a log whose first row already
// realized PnL still reports it. Sharpe is the mean over the sample standard
// deviation of per-step total PnL, annualized by sqrt(252), and defined as 0
// when the deviation is 0. Max drawdown is the largest peak-to-trough drop of
// the cumulative curve seeded from the first equity value.
func Evaluate(entries []TradeLogEntry) Metrics {
	var m Metrics
	if len(entries) == 0 {
		return m
	}

	pnl := make([]float64, len(entries))
	for i, e := range entries {
		pnl[i] = e.RealizedPnL + e.UnrealizedPnL
	}
	mean, std := meanStd(pnl)

	first := entries[0].Equity
	last := entries[len(entries)-1].Equity
	m.TotalReturn = last - (first - pnl[0])
	if std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(annualization)
	}

	cum := first
	peak := cum
	for _, p := range pnl {
		cum += p
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	m.TradeCount = len(entries)
	m.AvgTradePnL = mean
	return m
}

// meanStd returns the mean and sample standard deviation (n-1 denominator,
// 0 for fewer than two values).
func meanStd(values []float64) (mean, std float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
