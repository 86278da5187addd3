package datafeed

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleCSV = `timestamp,open,high,low,close,volume
2026-01-06T09:20:00Z,100.0,100.5,99.5,100.2,1500
2026-01-06T09:15:00Z,99.8,100.2,99.6,100.0,1200
`

func TestLoadBarsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "RELIANCE.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	bars, err := LoadBarsCSV(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	// Sorted oldest first regardless of file order.
	want := time.Date(2026, 1, 6, 9, 15, 0, 0, time.UTC)
	if !bars[0].Timestamp.Equal(want) {
		t.Errorf("first bar at %s, want %s", bars[0].Timestamp, want)
	}
	if bars[0].Close != 100.0 || bars[0].Volume != 1200 {
		t.Errorf("first bar parsed wrong: %+v", bars[0])
	}

	// Indicator fields start at the missing sentinel.
	if bars[0].VWAP == bars[0].VWAP { // NaN != NaN
		t.Error("expected VWAP to start missing")
	}
}

func TestLoadBarsCSV_BadRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	content := "timestamp,open,high,low,close,volume\nnot-a-time,1,2,3,4,5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadBarsCSV(path); err == nil {
		t.Error("expected error on malformed timestamp")
	}
}

func TestLoadBarsDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"RELIANCE.csv", "INFY.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleCSV), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Non-CSV files are skipped.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := LoadBarsDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("got %d symbols, want 2", len(data))
	}
	if _, ok := data["RELIANCE"]; !ok {
		t.Error("symbol name should come from the file name")
	}
}

func TestLoadBarsDir_Empty(t *testing.T) {
	if _, err := LoadBarsDir(t.TempDir()); err == nil {
		t.Error("expected error for a directory without bar files")
	}
}
