// Package market holds the aligned two-leg price series model and its CSV persistence.
package market

import (
	"sort"
	"time"
)

// Candle is one OHLCV bar for a single instrument.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePair is one aligned observation of the two legs: the fixed-maturity
// future close and the perpetual close sharing a timestamp.
type PricePair struct {
	Ts     time.Time
	Future float64
	Perp   float64
}

// Preprocess drops duplicate timestamps (keeping the first occurrence) and
// sorts the series ascending, matching the snapshot cleaning done before any
// backtest consumes the data.
func Preprocess(candles []Candle) []Candle {
	seen := make(map[int64]struct{}, len(candles))
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		key := c.Ts.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.Before(out[j].Ts) })
	return out
}

// AlignPairs inner-joins the future and perp candle series on timestamp and
// returns the ordered pair sequence. Bars present in only one leg are dropped.
func AlignPairs(futures, perps []Candle) []PricePair {
	perpByTs := make(map[int64]float64, len(perps))
	for _, c := range perps {
		perpByTs[c.Ts.UnixNano()] = c.Close
	}

	pairs := make([]PricePair, 0, len(futures))
	for _, c := range futures {
		perp, ok := perpByTs[c.Ts.UnixNano()]
		if !ok {
			continue
		}
		pairs = append(pairs, PricePair{Ts: c.Ts, Future: c.Close, Perp: perp})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Ts.Before(pairs[j].Ts) })
	return pairs
}
