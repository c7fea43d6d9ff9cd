package market

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var candleHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}
var pairHeader = []string{"timestamp", "future", "perp"}

// WriteCandles persists a candle series as CSV, creating parent directories.
func WriteCandles(path string, candles []Candle) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(candleHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range candles {
		row := []string{
			c.Ts.UTC().Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCandles loads a candle series from CSV written by WriteCandles.
func ReadCandles(path string) ([]Candle, error) {
	rows, err := readRows(path, len(candleHeader))
	if err != nil {
		return nil, err
	}
	candles := make([]Candle, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", row[0], err)
		}
		vals, err := parseFloats(row[1:])
		if err != nil {
			return nil, err
		}
		candles = append(candles, Candle{
			Ts: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return candles, nil
}

// WritePairs persists an aligned pair series as CSV.
func WritePairs(path string, pairs []PricePair) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(pairHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range pairs {
		row := []string{p.Ts.UTC().Format(time.RFC3339), formatFloat(p.Future), formatFloat(p.Perp)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadPairs loads an aligned pair series from CSV written by WritePairs.
func ReadPairs(path string) ([]PricePair, error) {
	rows, err := readRows(path, len(pairHeader))
	if err != nil {
		return nil, err
	}
	pairs := make([]PricePair, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", row[0], err)
		}
		vals, err := parseFloats(row[1:])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, PricePair{Ts: ts, Future: vals[0], Perp: vals[1]})
	}
	return pairs, nil
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return file, nil
}

func readRows(path string, width int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = width
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil // skip header
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", field, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
