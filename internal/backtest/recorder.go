package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var logHeader = []string{
	"timestamp", "position", "zscore", "spread", "hedge_ratio",
	"realized_pnl", "unrealized_pnl", "equity", "entry_signal", "exit_signal",
}

// WriteLogCSV persists a trade log as CSV, creating parent directories.
func WriteLogCSV(path string, entries []TradeLogEntry) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(logHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.Ts.UTC().Format(time.RFC3339),
			e.Position.String(),
			strconv.FormatFloat(e.ZScore, 'f', -1, 64),
			strconv.FormatFloat(e.Spread, 'f', -1, 64),
			strconv.FormatFloat(e.HedgeRatio, 'f', -1, 64),
			strconv.FormatFloat(e.RealizedPnL, 'f', -1, 64),
			strconv.FormatFloat(e.UnrealizedPnL, 'f', -1, 64),
			strconv.FormatFloat(e.Equity, 'f', -1, 64),
			strconv.FormatBool(e.EntrySignal),
			strconv.FormatBool(e.ExitSignal),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// JSONLRecorder appends trade log entries as JSON lines for later analysis.
type JSONLRecorder struct {
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single entry to the underlying JSONL file.
func (r *JSONLRecorder) Record(entry TradeLogEntry) {
	_ = r.enc.Encode(entry)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
