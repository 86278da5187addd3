package risk

import (
	"log"
	"math"
	"sync"
)

// DailyRiskState tracks the per-trading-day counters and the loss ceiling
// that gate whether any symbol may trade. Counters only increase within a
// day and reset atomically at the day boundary; callers reset exactly once
// per new trading day before scanning.
type DailyRiskState struct {
	mu sync.RWMutex

	capital         float64
	maxDailyLossPct float64

	realizedPnL  float64
	totalTrades  int
	symbolTrades map[string]int
}

func NewDailyRiskState(capital, maxDailyLossPct float64) *DailyRiskState {
	return &DailyRiskState{
		capital:         capital,
		maxDailyLossPct: maxDailyLossPct,
		symbolTrades:    make(map[string]int),
	}
}

// MaxDailyLossAmount is the absolute loss ceiling for the day.
func (s *DailyRiskState) MaxDailyLossAmount() float64 {
	return s.capital * s.maxDailyLossPct
}

// CanTrade is a pure predicate with no side effects: false once the daily
// loss ceiling is breached (for every symbol), the daily trade cap is
// reached, or this symbol is at its per-stock cap.
func (s *DailyRiskState) CanTrade(symbol string, maxTradesTotal, maxTradesPerStock int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.realizedPnL <= -s.MaxDailyLossAmount() {
		return false
	}
	if s.totalTrades >= maxTradesTotal {
		return false
	}
	if s.symbolTrades[symbol] >= maxTradesPerStock {
		return false
	}
	return true
}

// RegisterTrade counts an accepted entry for the day.
func (s *DailyRiskState) RegisterTrade(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTrades++
	s.symbolTrades[symbol]++
}

// RegisterExit folds a realized PnL into the daily accumulator.
func (s *DailyRiskState) RegisterExit(pnl float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realizedPnL += pnl
	if s.realizedPnL <= -s.MaxDailyLossAmount() {
		log.Printf("🛑 Daily loss limit hit: realized=%.2f limit=%.2f. No further entries today.\n",
			s.realizedPnL, s.MaxDailyLossAmount())
	}
}

// Reset clears all counters at the day boundary.
func (s *DailyRiskState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.realizedPnL = 0
	s.totalTrades = 0
	s.symbolTrades = make(map[string]int)
}

func (s *DailyRiskState) RealizedPnL() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realizedPnL
}

func (s *DailyRiskState) TotalTrades() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalTrades
}

// PositionSize converts the risk budget and the per-trade capital cap into a
// share quantity: min(floor(capital*riskPct / |entry-stop|),
// floor(maxTradeCapital / entry)), never negative, 0 on a zero stop distance
// or non-positive entry.
func PositionSize(capital, maxTradeCapital, riskPct, entry, stop float64) int {
	if entry <= 0 {
		return 0
	}
	distance := math.Abs(entry - stop)
	if distance <= 0 {
		return 0
	}

	riskQty := int((capital * riskPct) / distance)
	capitalQty := int(maxTradeCapital / entry)

	qty := riskQty
	if capitalQty < qty {
		qty = capitalQty
	}
	if qty < 0 {
		return 0
	}
	return qty
}
