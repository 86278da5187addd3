package datafeed

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fazecat/intraday/Internal/types"
)

// LoadBarsCSV reads one symbol's bars from a CSV file with the header
// timestamp,open,high,low,close,volume. Timestamps are RFC3339.
func LoadBarsCSV(path string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	bars := make([]types.Bar, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 6 {
			return nil, fmt.Errorf("%s row %d: expected 6 columns, got %d", path, i+2, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad timestamp %q: %w", path, i+2, rec[0], err)
		}
		open, err1 := strconv.ParseFloat(rec[1], 64)
		high, err2 := strconv.ParseFloat(rec[2], 64)
		low, err3 := strconv.ParseFloat(rec[3], 64)
		closePx, err4 := strconv.ParseFloat(rec[4], 64)
		volume, err5 := strconv.ParseInt(rec[5], 10, 64)
		for _, e := range []error{err1, err2, err3, err4, err5} {
			if e != nil {
				return nil, fmt.Errorf("%s row %d: bad number: %w", path, i+2, e)
			}
		}
		bars = append(bars, types.NewBar(ts, open, high, low, closePx, volume))
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// LoadBarsDir loads every *.csv under dir; the symbol is the file name
// without the extension.
func LoadBarsDir(dir string) (map[string][]types.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir %s: %w", dir, err)
	}

	data := make(map[string][]types.Bar)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		symbol := strings.TrimSuffix(name, ".csv")
		bars, err := LoadBarsCSV(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			data[symbol] = bars
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no bar files found in %s", dir)
	}
	return data, nil
}
