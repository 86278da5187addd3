package types

import (
	"math"
	"time"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type SetupType string

const (
	SetupRejection SetupType = "Rejection"
	SetupPullback  SetupType = "Pullback"
)

// Bar is one OHLCV candle plus the derived indicator columns. Indicator
// fields default to NaN until the indicator pipeline fills them; rolling
// statistics stay NaN while their window has not filled yet. Callers must
// check Missing before acting on an indicator-dependent decision.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64

	VWAP    float64
	EMAFast float64
	EMASlow float64
	RSI     float64
	ATR     float64

	// Pivot levels, broadcast from the prior day's OHLC
	PP float64
	R1 float64
	R2 float64
	S1 float64
	S2 float64

	AvgVolume20 float64
	Range       float64
	AvgRange20  float64
	Body        float64
	AvgBody20   float64
}

// NewBar builds a raw bar with every indicator field set to the NaN sentinel.
func NewBar(ts time.Time, open, high, low, closePx float64, volume int64) Bar {
	nan := math.NaN()
	return Bar{
		Timestamp:   ts,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePx,
		Volume:      volume,
		VWAP:        nan,
		EMAFast:     nan,
		EMASlow:     nan,
		RSI:         nan,
		ATR:         nan,
		PP:          nan,
		R1:          nan,
		R2:          nan,
		S1:          nan,
		S2:          nan,
		AvgVolume20: nan,
		Range:       nan,
		AvgRange20:  nan,
		Body:        nan,
		AvgBody20:   nan,
	}
}

// Missing reports whether an indicator value is the not-yet-available sentinel.
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// TradeSignal is a scored entry candidate produced by the strategy engine.
// Read-only after creation; consumed once to open a position.
type TradeSignal struct {
	Symbol         string
	Side           Side
	Setup          SetupType
	Entry          float64
	StopLoss       float64
	Target1        float64
	Target2        float64 // NaN when no pivot target exists on this side
	Reason         string
	DetailedReason string
	CreatedAt      time.Time
	Score          int
	RelativeVolume float64
}

// OpenPosition tracks an active trade. Quantity and StopLoss are mutated in
// place by partial exits; Target1Hit is monotonic and never reverts to false.
type OpenPosition struct {
	Symbol     string
	Side       Side
	Quantity   int
	Setup      SetupType
	Entry      float64
	StopLoss   float64
	Target1    float64
	Target2    float64 // NaN when absent
	Target1Hit bool
	OpenedAt   time.Time
}

func (p *OpenPosition) IsLong() bool {
	return p.Side == Buy
}

// TradeRecord is one closed (or partially closed) fill in the trade history.
type TradeRecord struct {
	Symbol   string
	Side     Side
	Entry    float64
	Exit     float64
	Quantity int
	PnL      float64
	Reason   string
	Time     time.Time
}
