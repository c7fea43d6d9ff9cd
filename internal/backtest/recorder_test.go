package backtest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEntries() []TradeLogEntry {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []TradeLogEntry{
		{Ts: ts, Position: Long, ZScore: -1.1, Spread: -2.5, HedgeRatio: 0.98, Equity: 100_000, EntrySignal: true},
		{Ts: ts.Add(time.Minute), Position: Flat, ZScore: 0.2, Spread: 0.4, HedgeRatio: 0.98, RealizedPnL: 120, Equity: 100_120, ExitSignal: true},
	}
}

func TestWriteLogCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trade_log.csv")
	if err := WriteLogCSV(path, sampleEntries()); err != nil {
		t.Fatalf("WriteLogCSV error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written log: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][9] != "exit_signal" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "long" || rows[2][1] != "flat" {
		t.Fatalf("unexpected position columns: %v / %v", rows[1], rows[2])
	}
	if rows[2][5] != "120" {
		t.Fatalf("unexpected realized pnl column: %v", rows[2])
	}
}

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade_log.jsonl")
	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	for _, e := range sampleEntries() {
		recorder.Record(e)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		t.Fatalf("expected first line in recorder output")
	}
	var decoded TradeLogEntry
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if decoded.Position != Long || !decoded.EntrySignal {
		t.Fatalf("unexpected decoded entry: %+v", decoded)
	}
	if !scanner.Scan() {
		t.Fatalf("expected second line in recorder output")
	}
}
