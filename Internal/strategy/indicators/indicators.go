package indicators

import (
	"math"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils"
)

// Pivots holds the classic floor-trader levels for one trading day.
type Pivots struct {
	PP float64
	R1 float64
	R2 float64
	S1 float64
	S2 float64
}

// StandardPivots derives the pivot set from the previous day's high/low/close.
func StandardPivots(prevHigh, prevLow, prevClose float64) Pivots {
	pp := (prevHigh + prevLow + prevClose) / 3.0
	return Pivots{
		PP: pp,
		R1: (2 * pp) - prevLow,
		S1: (2 * pp) - prevHigh,
		R2: pp + (prevHigh - prevLow),
		S2: pp - (prevHigh - prevLow),
	}
}

// ComputeVWAP returns the cumulative typical-price VWAP series. The
// accumulation runs over the whole input; callers segment by day when a
// daily reset is required.
func ComputeVWAP(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	var cumTPV, cumVol float64
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3.0
		cumTPV += typical * float64(b.Volume)
		cumVol += float64(b.Volume)
		if cumVol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cumTPV / cumVol
	}
	return out
}

// EMA computes an exponential moving average with alpha = 2/(span+1),
// seeded with the first value. No warm-up gate: every index has a value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes a Wilder-style RSI: average gain/loss smoothed with
// alpha = 1/period, undefined (NaN) until period deltas have been observed.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) < 2 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		if i < period {
			continue
		}
		if avgLoss == 0 {
			if avgGain == 0 {
				continue // flat series, RSI undefined
			}
			out[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100.0 - (100.0 / (1.0 + rs))
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true range,
// NaN until a full period of ranges is available.
func ATR(bars []types.Bar, period int) []float64 {
	tr := make([]float64, len(bars))
	for i := range tr {
		tr[i] = math.NaN()
	}
	for i := 1; i < len(bars); i++ {
		high, low, prevClose := bars[i].High, bars[i].Low, bars[i-1].Close
		tr[i] = utils.Max(high-low, utils.Abs(high-prevClose), utils.Abs(low-prevClose))
	}
	return rollingMean(tr, period)
}

// rollingMean averages a fixed window, NaN until the window holds only
// observed values.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for j := i + 1 - window; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// AddIndicators returns a copy of the input bars with every derived column
// filled in: cumulative VWAP, fast/slow EMA, RSI, ATR, the broadcast pivot
// levels, and 20-bar rolling averages of volume, range and body size.
// Pure function; recomputation for the same window is idempotent.
func AddIndicators(bars []types.Bar, piv Pivots, emaFast, emaSlow, rsiPeriod, atrPeriod int) []types.Bar {
	out := make([]types.Bar, len(bars))
	copy(out, bars)
	if len(out) == 0 {
		return out
	}

	closes := make([]float64, len(out))
	volumes := make([]float64, len(out))
	ranges := make([]float64, len(out))
	bodies := make([]float64, len(out))
	for i, b := range out {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
		ranges[i] = b.High - b.Low
		bodies[i] = utils.Abs(b.Close - b.Open)
	}

	vwap := ComputeVWAP(out)
	fast := EMA(closes, emaFast)
	slow := EMA(closes, emaSlow)
	rsi := RSI(closes, rsiPeriod)
	atr := ATR(out, atrPeriod)
	avgVol := rollingMean(volumes, 20)
	avgRange := rollingMean(ranges, 20)
	avgBody := rollingMean(bodies, 20)

	for i := range out {
		out[i].VWAP = vwap[i]
		out[i].EMAFast = fast[i]
		out[i].EMASlow = slow[i]
		out[i].RSI = rsi[i]
		out[i].ATR = atr[i]
		out[i].PP = piv.PP
		out[i].R1 = piv.R1
		out[i].R2 = piv.R2
		out[i].S1 = piv.S1
		out[i].S2 = piv.S2
		out[i].Range = ranges[i]
		out[i].Body = bodies[i]
		out[i].AvgVolume20 = avgVol[i]
		out[i].AvgRange20 = avgRange[i]
		out[i].AvgBody20 = avgBody[i]
	}
	return out
}
