package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fazecat/intraday/Internal/strategy/metrics"
	"github.com/fazecat/intraday/Internal/types"
)

// WriteTradeLog writes the full trade history to a CSV file, one row per fill.
func WriteTradeLog(path string, trades []types.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trade log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"time", "symbol", "side", "quantity", "entry", "exit", "pnl", "reason"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range trades {
		row := []string{
			t.Time.Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			strconv.Itoa(t.Quantity),
			strconv.FormatFloat(t.Entry, 'f', 2, 64),
			strconv.FormatFloat(t.Exit, 'f', 2, 64),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			t.Reason,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write trade row: %w", err)
		}
	}
	return w.Error()
}

// WriteSymbolSummary writes per-symbol aggregates to a CSV file.
func WriteSymbolSummary(path string, trades []types.TradeRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"symbol", "trades", "wins", "win_rate", "pnl"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, s := range metrics.CalculateSymbolStats(trades) {
		row := []string{
			s.Symbol,
			strconv.Itoa(s.Trades),
			strconv.Itoa(s.Wins),
			strconv.FormatFloat(s.WinRate, 'f', 4, 64),
			strconv.FormatFloat(s.PnL, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return w.Error()
}
