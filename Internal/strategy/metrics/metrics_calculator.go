package metrics

import (
	"math"
	"sort"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils"
)

// PerformanceReport summarizes a trade log beyond raw PnL.
type PerformanceReport struct {
	TotalTrades   int
	Wins          int
	Losses        int
	WinRate       float64
	TotalPnL      float64
	AveragePnL    float64
	AverageWin    float64
	AverageLoss   float64
	ProfitFactor  float64
	MaxDrawdown   float64
	SharpeRatio   float64
	SortinoRatio  float64
	BestTrade     float64
	WorstTrade    float64
}

// SymbolStats breaks performance down per traded symbol.
type SymbolStats struct {
	Symbol  string
	Trades  int
	Wins    int
	PnL     float64
	WinRate float64
}

// CalculatePerformance aggregates the full report from a trade log.
func CalculatePerformance(trades []types.TradeRecord) PerformanceReport {
	report := PerformanceReport{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return report
	}

	pnls := make([]float64, len(trades))
	var winSum, lossSum float64
	report.BestTrade = trades[0].PnL
	report.WorstTrade = trades[0].PnL

	for i, t := range trades {
		pnls[i] = t.PnL
		report.TotalPnL += t.PnL
		if t.PnL > 0 {
			report.Wins++
			winSum += t.PnL
		} else {
			report.Losses++
			lossSum += t.PnL
		}
		if t.PnL > report.BestTrade {
			report.BestTrade = t.PnL
		}
		if t.PnL < report.WorstTrade {
			report.WorstTrade = t.PnL
		}
	}

	report.WinRate = float64(report.Wins) / float64(report.TotalTrades)
	report.AveragePnL = utils.Average(pnls)
	if report.Wins > 0 {
		report.AverageWin = winSum / float64(report.Wins)
	}
	if report.Losses > 0 {
		report.AverageLoss = lossSum / float64(report.Losses)
	}
	if lossSum != 0 {
		report.ProfitFactor = winSum / math.Abs(lossSum)
	}
	report.MaxDrawdown = maxDrawdown(pnls)
	report.SharpeRatio = sharpeRatio(pnls)
	report.SortinoRatio = sortinoRatio(pnls)
	return report
}

// CalculateSymbolStats groups the trade log by symbol, sorted by symbol.
func CalculateSymbolStats(trades []types.TradeRecord) []SymbolStats {
	bySymbol := make(map[string]*SymbolStats)
	for _, t := range trades {
		s, ok := bySymbol[t.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.Trades++
		s.PnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
		}
	}

	stats := make([]SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		if s.Trades > 0 {
			s.WinRate = float64(s.Wins) / float64(s.Trades)
		}
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Symbol < stats[j].Symbol })
	return stats
}

// maxDrawdown is the largest peak-to-trough drop of the cumulative PnL curve.
func maxDrawdown(pnls []float64) float64 {
	var equity, peak, drawdown float64
	for _, p := range pnls {
		equity += p
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > drawdown {
			drawdown = dd
		}
	}
	return drawdown
}

func sharpeRatio(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := utils.Average(pnls)
	sd := stdDev(pnls, mean)
	if sd == 0 {
		return 0
	}
	return mean / sd
}

func sortinoRatio(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := utils.Average(pnls)

	var downSq float64
	var downs int
	for _, p := range pnls {
		if p < 0 {
			downSq += p * p
			downs++
		}
	}
	if downs == 0 {
		return 0
	}
	downside := math.Sqrt(downSq / float64(downs))
	if downside == 0 {
		return 0
	}
	return mean / downside
}

func stdDev(values []float64, mean float64) float64 {
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
