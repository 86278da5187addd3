package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/fazecat/intraday/Internal/strategy/metrics"
	"github.com/fazecat/intraday/Internal/utils/config"
	"github.com/fazecat/intraday/Internal/utils/export"
	"github.com/fazecat/intraday/Internal/utils/formatting"

	datafeed "github.com/fazecat/intraday/Internal/database"
)

func main() {
	dataDir := flag.String("data", "data", "directory of per-symbol bar CSVs")
	capital := flag.Float64("capital", 100000, "starting capital")
	tradesOut := flag.String("trades-out", "", "optional CSV path for the trade log")
	summaryOut := flag.String("summary-out", "", "optional CSV path for per-symbol stats")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("⚠️ Could not load config.yaml, using defaults: %v\n", err)
		cfg = config.Default()
	}

	data, err := datafeed.LoadBarsDir(*dataDir)
	if err != nil {
		log.Fatalf("Failed to load bar data: %v", err)
	}
	log.Printf("📊 Loaded %d symbols from %s\n", len(data), *dataDir)

	engine := metrics.NewBacktestEngine(data, cfg, *capital)
	result := engine.Run()

	printResult(result)

	if *tradesOut != "" {
		if err := export.WriteTradeLog(*tradesOut, result.Trades); err != nil {
			log.Fatalf("Failed to export trade log: %v", err)
		}
		log.Printf("✅ Trade log written to %s\n", *tradesOut)
	}
	if *summaryOut != "" {
		if err := export.WriteSymbolSummary(*summaryOut, result.Trades); err != nil {
			log.Fatalf("Failed to export symbol summary: %v", err)
		}
		log.Printf("✅ Symbol summary written to %s\n", *summaryOut)
	}
}

func printResult(result metrics.BacktestResult) {
	report := metrics.CalculatePerformance(result.Trades)

	fmt.Println(formatting.Separator(60))
	fmt.Println("BACKTEST RESULTS")
	fmt.Println(formatting.Separator(60))
	fmt.Printf("Total trades:  %d\n", report.TotalTrades)
	fmt.Printf("Wins/Losses:   %d/%d\n", report.Wins, report.Losses)
	fmt.Printf("Win rate:      %.1f%%\n", report.WinRate*100)
	fmt.Printf("Total PnL:     %.2f\n", report.TotalPnL)
	fmt.Printf("Average PnL:   %.2f\n", report.AveragePnL)
	fmt.Printf("Profit factor: %.2f\n", report.ProfitFactor)
	fmt.Printf("Max drawdown:  %.2f\n", report.MaxDrawdown)
	fmt.Printf("Sharpe:        %.2f\n", report.SharpeRatio)
	fmt.Printf("Sortino:       %.2f\n", report.SortinoRatio)
	fmt.Println(formatting.Separator(60))

	for _, s := range metrics.CalculateSymbolStats(result.Trades) {
		fmt.Printf("%-12s trades=%d wins=%d win_rate=%.1f%% pnl=%.2f\n",
			s.Symbol, s.Trades, s.Wins, s.WinRate*100, s.PnL)
	}
	if len(result.Trades) > 0 {
		fmt.Println(formatting.Separator(60))
	}
}
