package market

import (
	"path/filepath"
	"testing"
	"time"
)

func ts(minute int) time.Time {
	return time.Date(2025, 6, 1, 12, minute, 0, 0, time.UTC)
}

func TestPreprocessDedupesAndSorts(t *testing.T) {
	candles := []Candle{
		{Ts: ts(2), Close: 102},
		{Ts: ts(0), Close: 100},
		{Ts: ts(2), Close: 999}, // duplicate, later occurrence dropped
		{Ts: ts(1), Close: 101},
	}

	out := Preprocess(candles)
	if len(out) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if !out[i-1].Ts.Before(out[i].Ts) {
			t.Fatalf("candles not sorted at index %d", i)
		}
	}
	if out[2].Close != 102 {
		t.Fatalf("expected first occurrence kept, got close %.0f", out[2].Close)
	}
}

func TestAlignPairsInnerJoin(t *testing.T) {
	futures := []Candle{
		{Ts: ts(0), Close: 101},
		{Ts: ts(1), Close: 102},
		{Ts: ts(3), Close: 104}, // no matching perp bar
	}
	perps := []Candle{
		{Ts: ts(0), Close: 100},
		{Ts: ts(1), Close: 100.5},
		{Ts: ts(2), Close: 100.7}, // no matching future bar
	}

	pairs := AlignPairs(futures, perps)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Future != 101 || pairs[0].Perp != 100 {
		t.Fatalf("unexpected first pair: %+v", pairs[0])
	}
	if !pairs[0].Ts.Before(pairs[1].Ts) {
		t.Fatalf("pairs not ordered")
	}
}

func TestCandleCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "candles.csv")
	candles := []Candle{
		{Ts: ts(0), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Ts: ts(1), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 12},
	}

	if err := WriteCandles(path, candles); err != nil {
		t.Fatalf("WriteCandles error: %v", err)
	}
	loaded, err := ReadCandles(path)
	if err != nil {
		t.Fatalf("ReadCandles error: %v", err)
	}
	if len(loaded) != len(candles) {
		t.Fatalf("expected %d candles, got %d", len(candles), len(loaded))
	}
	if !loaded[1].Ts.Equal(candles[1].Ts) || loaded[1].Close != candles[1].Close {
		t.Fatalf("round trip mismatch: %+v", loaded[1])
	}
}

func TestPairCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.csv")
	pairs := []PricePair{
		{Ts: ts(0), Future: 101.25, Perp: 100.5},
		{Ts: ts(1), Future: 102, Perp: 101},
	}

	if err := WritePairs(path, pairs); err != nil {
		t.Fatalf("WritePairs error: %v", err)
	}
	loaded, err := ReadPairs(path)
	if err != nil {
		t.Fatalf("ReadPairs error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(loaded))
	}
	if loaded[0].Future != 101.25 || loaded[0].Perp != 100.5 {
		t.Fatalf("round trip mismatch: %+v", loaded[0])
	}
}

func TestReadPairsMissingFile(t *testing.T) {
	if _, err := ReadPairs(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
