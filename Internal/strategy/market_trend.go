package strategy

import (
	"github.com/fazecat/intraday/Internal/types"
)

// IndexState is the classified directional regime of the reference index.
type IndexState string

const (
	IndexBullish IndexState = "BULLISH"
	IndexBearish IndexState = "BEARISH"
	IndexNeutral IndexState = "NEUTRAL"
)

const rollingVWAPWindow = 20

// AnalyzeIndexTrend classifies the reference index against its 20-period
// rolling VWAP:
//
//	BULLISH: last close > VWAP20
//	BEARISH: last close < VWAP20
//	NEUTRAL: under 20 rows, zero traded volume, or near-equality
//
// Pure and stateless; recomputed on every call.
func AnalyzeIndexTrend(bars []types.Bar) IndexState {
	if len(bars) < rollingVWAPWindow {
		return IndexNeutral
	}

	var pv, vol float64
	for _, b := range bars[len(bars)-rollingVWAPWindow:] {
		typical := (b.High + b.Low + b.Close) / 3.0
		pv += typical * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		return IndexNeutral
	}

	vwap20 := pv / vol
	last := bars[len(bars)-1].Close
	switch {
	case last > vwap20:
		return IndexBullish
	case last < vwap20:
		return IndexBearish
	default:
		return IndexNeutral
	}
}
