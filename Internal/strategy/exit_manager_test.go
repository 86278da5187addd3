package strategy

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

type exitCall struct {
	reason string
	price  float64
	qty    int
}

// fakeExitExecutor records exit orders and can be told to fail.
type fakeExitExecutor struct {
	calls []exitCall
	err   error
}

func (f *fakeExitExecutor) PlaceEntry(signal *types.TradeSignal, qty int) (string, error) {
	return "entry-1", nil
}

func (f *fakeExitExecutor) PlaceExit(position *types.OpenPosition, reason string, price float64, qty int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, exitCall{reason: reason, price: price, qty: qty})
	return "exit-1", nil
}

func longPosition(qty int) *types.OpenPosition {
	return &types.OpenPosition{
		Symbol:   "RELIANCE",
		Side:     types.Buy,
		Quantity: qty,
		Entry:    100,
		StopLoss: 99,
		Target1:  102,
		Target2:  104,
	}
}

// exitCandle builds a bar with no trailing-EMA or EOD indicator data.
func exitCandle(high, low, closePx float64) types.Bar {
	return types.NewBar(time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC), closePx, high, low, closePx, 1000)
}

func sessionTime(hour, minute int) time.Time {
	return time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC)
}

func TestManageExit_StopLoss(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(10)

	closed := m.ManageExit(pos, exitCandle(100.5, 98.9, 99.5), sessionTime(11, 0))

	if !closed {
		t.Fatal("expected position closed")
	}
	if pos.Quantity != 0 {
		t.Errorf("quantity: got %d, want 0", pos.Quantity)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("calls: got %d, want 1", len(exec.calls))
	}
	call := exec.calls[0]
	if !strings.Contains(call.reason, "stop_loss") {
		t.Errorf("reason: got %q, want stop loss", call.reason)
	}
	if call.price != 99 || call.qty != 10 {
		t.Errorf("got price=%.2f qty=%d, want price=99 qty=10", call.price, call.qty)
	}
}

func TestManageExit_PartialProfit(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(10)

	closed := m.ManageExit(pos, exitCandle(102.5, 100.6, 102.2), sessionTime(11, 0))

	if closed {
		t.Fatal("expected position still open after partial")
	}
	if pos.Quantity != 5 {
		t.Errorf("quantity: got %d, want 5", pos.Quantity)
	}
	if !pos.Target1Hit {
		t.Error("expected Target1Hit")
	}
	if pos.StopLoss != 100 {
		t.Errorf("stop after partial: got %.2f, want breakeven 100", pos.StopLoss)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("calls: got %d, want 1", len(exec.calls))
	}
	call := exec.calls[0]
	if !strings.Contains(call.reason, "partial") {
		t.Errorf("reason: got %q, want partial", call.reason)
	}
	if call.price != 102 || call.qty != 5 {
		t.Errorf("got price=%.2f qty=%d, want price=102 qty=5", call.price, call.qty)
	}
}

func TestManageExit_PartialOddLot(t *testing.T) {
	tests := []struct {
		name      string
		qty       int
		wantQty   int
		wantCalls int
	}{
		{"single share books no order", 1, 1, 0},
		{"two shares exits one", 2, 1, 1},
		{"three shares exits one", 3, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExitExecutor{}
			m := NewExitManager(config.Default(), exec)
			pos := longPosition(tt.qty)

			m.ManageExit(pos, exitCandle(102.5, 100.6, 102.2), sessionTime(11, 0))

			if pos.Quantity != tt.wantQty {
				t.Errorf("quantity: got %d, want %d", pos.Quantity, tt.wantQty)
			}
			if !pos.Target1Hit {
				t.Error("expected Target1Hit even without an order")
			}
			if pos.StopLoss != 100 {
				t.Errorf("stop: got %.2f, want 100", pos.StopLoss)
			}
			if len(exec.calls) != tt.wantCalls {
				t.Errorf("calls: got %d, want %d", len(exec.calls), tt.wantCalls)
			}
		})
	}
}

func TestManageExit_PartialNotRetriggered(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(5)
	pos.Target1Hit = true
	pos.StopLoss = 100

	closed := m.ManageExit(pos, exitCandle(102.5, 100.6, 102.2), sessionTime(11, 0))

	if closed || pos.Quantity != 5 {
		t.Errorf("expected untouched runner, closed=%v qty=%d", closed, pos.Quantity)
	}
	if len(exec.calls) != 0 {
		t.Errorf("calls: got %d, want 0", len(exec.calls))
	}
}

func TestManageExit_Target2Runner(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(5)
	pos.Target1Hit = true
	pos.StopLoss = 100

	closed := m.ManageExit(pos, exitCandle(104.2, 102.8, 104.0), sessionTime(11, 0))

	if !closed || pos.Quantity != 0 {
		t.Fatalf("expected full exit, closed=%v qty=%d", closed, pos.Quantity)
	}
	call := exec.calls[0]
	if call.reason != "target_2" || call.price != 104 || call.qty != 5 {
		t.Errorf("got %+v, want target_2 at 104 x5", call)
	}
}

func TestManageExit_NoTarget2WithoutPartial(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(10)
	pos.Target1 = 110 // unreachable this bar
	pos.Target2 = 104

	closed := m.ManageExit(pos, exitCandle(104.2, 102.8, 104.0), sessionTime(11, 0))

	if closed || len(exec.calls) != 0 {
		t.Errorf("target_2 must not fire before target_1 booked, closed=%v calls=%d", closed, len(exec.calls))
	}
}

func TestManageExit_EMATrailingStop(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(5)
	pos.Target1Hit = true
	pos.StopLoss = 100

	candle := exitCandle(103, 100.8, 101.0)
	candle.EMAFast = 101.5 // close below fast EMA

	closed := m.ManageExit(pos, candle, sessionTime(11, 0))

	if !closed {
		t.Fatal("expected trailing stop exit")
	}
	call := exec.calls[0]
	if call.reason != "ema_trailing_stop" || call.price != 101.0 {
		t.Errorf("got %+v, want ema_trailing_stop at close", call)
	}
}

func TestManageExit_TrailingNeedsEMA(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(5)
	pos.Target1Hit = true
	pos.StopLoss = 100

	// EMAFast is the missing sentinel: no trail condition.
	closed := m.ManageExit(pos, exitCandle(103, 100.8, 101.0), sessionTime(11, 0))

	if closed || len(exec.calls) != 0 {
		t.Errorf("missing EMA must not trigger the trail, closed=%v calls=%d", closed, len(exec.calls))
	}
}

func TestManageExit_ForceSquareOff(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := longPosition(10)

	closed := m.ManageExit(pos, exitCandle(101, 100, 100.5), sessionTime(15, 20))

	if !closed || pos.Quantity != 0 {
		t.Fatalf("expected forced close, closed=%v qty=%d", closed, pos.Quantity)
	}
	call := exec.calls[0]
	if call.reason != "force_square_off_1520" {
		t.Errorf("reason: got %q, want force_square_off_1520", call.reason)
	}
	if call.price != 100.5 || call.qty != 10 {
		t.Errorf("got price=%.2f qty=%d, want close price and full quantity", call.price, call.qty)
	}
}

func TestManageExit_EndOfDay(t *testing.T) {
	strong := exitCandle(103, 100.8, 102.0)
	strong.VWAP = 101
	strong.EMAFast = 101.5
	strong.EMASlow = 101.0

	weak := exitCandle(103, 100.8, 100.9)
	weak.VWAP = 101 // close back under vwap
	weak.EMAFast = 101.5
	weak.EMASlow = 101.0

	missing := exitCandle(103, 100.8, 102.0)

	tests := []struct {
		name       string
		candle     types.Bar
		wantClosed bool
	}{
		{"strong trend holds", strong, false},
		{"invalidated trend exits", weak, true},
		{"missing indicators exit for safety", missing, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExitExecutor{}
			m := NewExitManager(config.Default(), exec)
			pos := longPosition(5)
			pos.StopLoss = 100
			pos.Target1 = 110 // out of reach, isolate the EOD layer

			closed := m.ManageExit(pos, tt.candle, sessionTime(15, 5))

			if closed != tt.wantClosed {
				t.Fatalf("closed: got %v, want %v", closed, tt.wantClosed)
			}
			if tt.wantClosed {
				if exec.calls[0].reason != "trend_invalidated" {
					t.Errorf("reason: got %q, want trend_invalidated", exec.calls[0].reason)
				}
			}
		})
	}
}

func TestManageExit_FailedOrderLeavesStateUntouched(t *testing.T) {
	exec := &fakeExitExecutor{err: errors.New("broker down")}
	m := NewExitManager(config.Default(), exec)

	t.Run("stop loss", func(t *testing.T) {
		pos := longPosition(10)
		closed := m.ManageExit(pos, exitCandle(100.5, 98.9, 99.5), sessionTime(11, 0))
		if closed || pos.Quantity != 10 || pos.StopLoss != 99 {
			t.Errorf("state mutated on failed order: closed=%v qty=%d stop=%.2f", closed, pos.Quantity, pos.StopLoss)
		}
	})

	t.Run("partial", func(t *testing.T) {
		pos := longPosition(10)
		closed := m.ManageExit(pos, exitCandle(102.5, 100.6, 102.2), sessionTime(11, 0))
		if closed || pos.Quantity != 10 || pos.Target1Hit || pos.StopLoss != 99 {
			t.Errorf("state mutated on failed order: closed=%v qty=%d hit=%v stop=%.2f",
				closed, pos.Quantity, pos.Target1Hit, pos.StopLoss)
		}
	})
}

func TestManageExit_ShortSide(t *testing.T) {
	exec := &fakeExitExecutor{}
	m := NewExitManager(config.Default(), exec)
	pos := &types.OpenPosition{
		Symbol:   "RELIANCE",
		Side:     types.Sell,
		Quantity: 10,
		Entry:    100,
		StopLoss: 101,
		Target1:  98,
		Target2:  math.NaN(),
	}

	// Low touches target_1; high stays under the breakeven stop.
	closed := m.ManageExit(pos, exitCandle(99.4, 97.8, 98.2), sessionTime(11, 0))

	if closed {
		t.Fatal("expected short runner still open")
	}
	if pos.Quantity != 5 || !pos.Target1Hit || pos.StopLoss != 100 {
		t.Errorf("got qty=%d hit=%v stop=%.2f, want 5/true/100", pos.Quantity, pos.Target1Hit, pos.StopLoss)
	}
}
