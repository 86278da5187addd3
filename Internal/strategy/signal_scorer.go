package strategy

import (
	"log"

	"github.com/fazecat/intraday/Internal/types"
)

// SignalScorer computes the Signal Strength Score (SSS) for a trade signal:
// the sum of six binary confluence checks, each worth exactly 0 or 1.
type SignalScorer struct{}

func NewSignalScorer() *SignalScorer {
	return &SignalScorer{}
}

// CalculateScore scores a candidate against its candle, the previous candle
// (rolling-range baseline) and, when available, the index candle. NaN
// indicator fields fail their comparison and contribute 0.
func (s *SignalScorer) CalculateScore(signal *types.TradeSignal, candle, prev types.Bar, indexCandle *types.Bar) int {
	// 1. VWAP touch: the bar's interval straddles VWAP.
	vwapTouch := 0
	if candle.High >= candle.VWAP && candle.Low <= candle.VWAP {
		vwapTouch = 1
	}

	// 2. Pivot touch: the bar's interval straddles pp, r1 or s1.
	pivots := []float64{candle.PP, candle.R1, candle.S1}
	pivotTouch := 0
	for _, p := range pivots {
		if candle.High >= p && candle.Low <= p {
			pivotTouch = 1
			break
		}
	}

	// 3. Rejection off VWAP or the nearest pivot, confirmed by the fast EMA.
	rejection := 0
	levels := append([]float64{candle.VWAP}, pivots...)
	if signal.Side == types.Sell {
		if candle.Close < candle.EMAFast {
			for _, lvl := range levels {
				if candle.High >= lvl {
					rejection = 1
					break
				}
			}
		}
	} else {
		if candle.Close > candle.EMAFast {
			for _, lvl := range levels {
				if candle.Low <= lvl {
					rejection = 1
					break
				}
			}
		}
	}

	// 4. Range expansion against the prior bar's 20-bar baseline.
	avgRange := prev.AvgRange20
	if types.Missing(avgRange) {
		avgRange = candle.AvgRange20
	}
	rangeScore := 0
	if candle.High-candle.Low >= 1.1*avgRange {
		rangeScore = 1
	}

	// 5. Volume expansion.
	volumeScore := 0
	if float64(candle.Volume) >= 1.3*candle.AvgVolume20 {
		volumeScore = 1
	}

	// 6. Index confirmation, either direction.
	indexScore := 0
	if indexCandle != nil {
		n := indexCandle
		bullish := n.Close > n.VWAP && n.EMAFast > n.EMASlow && n.RSI > 55
		bearish := n.Close < n.VWAP && n.EMAFast < n.EMASlow && n.RSI < 45
		if bullish || bearish {
			indexScore = 1
		}
	}

	sss := vwapTouch + pivotTouch + rejection + rangeScore + volumeScore + indexScore

	if sss >= 3 {
		log.Printf("SSS_BREAKDOWN | Date: %s | Symbol: %s | Side: %s | VWAP_T: %d | PIVOT_T: %d | REJ: %d | RANGE: %d | VOL: %d | INDEX: %d | SSS: %d\n",
			candle.Timestamp.Format("2006-01-02 15:04"), signal.Symbol, signal.Side,
			vwapTouch, pivotTouch, rejection, rangeScore, volumeScore, indexScore, sss)
	}

	return sss
}
