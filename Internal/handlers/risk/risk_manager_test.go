package risk

import (
	"testing"
)

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name            string
		capital         float64
		maxTradeCapital float64
		riskPct         float64
		entry           float64
		stop            float64
		want            int
	}{
		{"capital cap binds", 100000, 5000, 0.01, 100.0, 99.0, 50},
		{"risk budget binds", 100000, 1000000, 0.01, 100.0, 98.0, 500},
		{"zero stop distance", 100000, 5000, 0.01, 100.0, 100.0, 0},
		{"non-positive entry", 100000, 5000, 0.01, 0, 99.0, 0},
		{"short side distance", 100000, 1000000, 0.01, 100.0, 102.0, 500},
		{"tiny capital rounds down to zero", 50, 5000, 0.01, 100.0, 99.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionSize(tt.capital, tt.maxTradeCapital, tt.riskPct, tt.entry, tt.stop)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCanTrade_PerStockAndDailyCaps(t *testing.T) {
	s := NewDailyRiskState(100000, 0.02)

	if !s.CanTrade("INFY", 2, 1) {
		t.Fatal("fresh day should allow INFY")
	}
	s.RegisterTrade("INFY")

	if s.CanTrade("INFY", 2, 1) {
		t.Error("INFY at its per-stock cap should be blocked")
	}
	if !s.CanTrade("TCS", 2, 1) {
		t.Error("TCS should still be allowed")
	}

	s.RegisterTrade("TCS")
	if s.CanTrade("SBIN", 2, 1) {
		t.Error("daily cap of 2 should block every symbol")
	}
	if s.TotalTrades() != 2 {
		t.Errorf("total trades: got %d, want 2", s.TotalTrades())
	}
}

func TestCanTrade_DailyLossLimit(t *testing.T) {
	s := NewDailyRiskState(100000, 0.02)

	s.RegisterExit(-1999)
	if !s.CanTrade("INFY", 10, 10) {
		t.Error("loss under the ceiling should still allow trading")
	}

	s.RegisterExit(-1)
	if s.CanTrade("INFY", 10, 10) {
		t.Error("loss at the ceiling should block every entry")
	}

	// Profits after the breach do not matter within the same day once the
	// accumulated total recovers above the ceiling; verify the predicate
	// tracks the running total.
	s.RegisterExit(500)
	if !s.CanTrade("INFY", 10, 10) {
		t.Error("recovered total above the ceiling allows trading again")
	}
}

func TestReset(t *testing.T) {
	s := NewDailyRiskState(100000, 0.02)
	s.RegisterTrade("INFY")
	s.RegisterExit(-5000)

	s.Reset()

	if !s.CanTrade("INFY", 2, 1) {
		t.Error("reset should clear all blocks")
	}
	if s.TotalTrades() != 0 || s.RealizedPnL() != 0 {
		t.Errorf("counters not cleared: trades=%d pnl=%.2f", s.TotalTrades(), s.RealizedPnL())
	}
}

func TestMaxDailyLossAmount(t *testing.T) {
	s := NewDailyRiskState(100000, 0.02)
	if got := s.MaxDailyLossAmount(); got != 2000 {
		t.Errorf("got %.2f, want 2000", got)
	}
}
