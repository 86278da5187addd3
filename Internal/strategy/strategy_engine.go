package strategy

import (
	"fmt"
	"time"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

// minimum bars of trailing history before a symbol is evaluated
const minEvaluationBars = 25

// StrategyEngine applies the entry rules once per symbol per bar. It is a
// pure evaluator: no state survives between calls.
type StrategyEngine struct {
	cfg    *config.TradingConfig
	scorer *SignalScorer
}

func NewStrategyEngine(cfg *config.TradingConfig) *StrategyEngine {
	return &StrategyEngine{cfg: cfg, scorer: NewSignalScorer()}
}

// Evaluate returns at most one scored entry signal for the symbol at this
// bar, or nil. indexBars may be empty; missing index data downgrades the
// regime to NEUTRAL, which blocks entries (the regime is a confirming gate),
// but only the index-confirmation score component is skipped for scoring.
func (e *StrategyEngine) Evaluate(symbol string, bars []types.Bar, now time.Time, indexBars []types.Bar) *types.TradeSignal {
	if len(bars) < minEvaluationBars {
		return nil
	}

	// Exclusion filter: skip historically weak symbols.
	if e.cfg.IsExcluded(symbol) {
		return nil
	}

	// Time-of-day filter: entries only inside the scan window.
	if e.cfg.BeforeScanStart(now) || e.cfg.AfterLastEntry(now) {
		return nil
	}

	candle := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	indexState := IndexNeutral
	var indexCandle *types.Bar
	if len(indexBars) > 0 {
		indexState = AnalyzeIndexTrend(indexBars)
		indexCandle = &indexBars[len(indexBars)-1]
	}

	isBullishBias := candle.Close > candle.VWAP
	isBearishBias := candle.Close < candle.VWAP

	atr := candle.ATR
	if types.Missing(atr) || atr <= 0 {
		return nil
	}

	atrRisk := atr * e.cfg.ATRStopMultiplier
	var signal *types.TradeSignal

	switch {
	case isBearishBias && indexState == IndexBearish:
		entry := candle.Close
		signal = &types.TradeSignal{
			Symbol:    symbol,
			Side:      types.Sell,
			Setup:     types.SetupRejection,
			Entry:     entry,
			StopLoss:  entry + atrRisk,
			Target1:   entry - (atrRisk * e.cfg.RiskRewardRatio),
			Target2:   candle.S2,
			Reason:    "SSS + index regime short",
			CreatedAt: now,
		}
	case isBullishBias && indexState == IndexBullish:
		entry := candle.Close
		signal = &types.TradeSignal{
			Symbol:    symbol,
			Side:      types.Buy,
			Setup:     types.SetupRejection,
			Entry:     entry,
			StopLoss:  entry - atrRisk,
			Target1:   entry + (atrRisk * e.cfg.RiskRewardRatio),
			Target2:   candle.R2,
			Reason:    "SSS + index regime long",
			CreatedAt: now,
		}
	default:
		return nil
	}

	signal.Score = e.scorer.CalculateScore(signal, candle, prev, indexCandle)
	if !types.Missing(candle.AvgVolume20) && candle.AvgVolume20 > 0 {
		signal.RelativeVolume = float64(candle.Volume) / candle.AvgVolume20
	}

	// Entry quality gate: only high-confluence setups.
	if signal.Score < e.cfg.MinSSSScore {
		return nil
	}

	signal.DetailedReason = fmt.Sprintf(
		"ENTRY_REASON: %s | SSS=%d (min=%d) | ATR=%.2f | IndexState=%s | RelVol=%.2f",
		signal.Side, signal.Score, e.cfg.MinSSSScore, atr, indexState, signal.RelativeVolume)
	return signal
}
