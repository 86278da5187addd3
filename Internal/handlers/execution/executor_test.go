package execution

import (
	"errors"
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

// fakeBroker scripts PlaceOrder outcomes: one entry per call, then repeats
// the last one.
type fakeBroker struct {
	errs  []error
	calls int
	sides []alpaca.Side
}

func (f *fakeBroker) PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error) {
	i := f.calls
	f.calls++
	f.sides = append(f.sides, req.Side)
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	if i >= 0 && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return &alpaca.Order{ID: "order-1"}, nil
}

func testSignal() *types.TradeSignal {
	return &types.TradeSignal{
		Symbol:   "RELIANCE",
		Side:     types.Buy,
		Entry:    100,
		StopLoss: 99,
		Target1:  102,
	}
}

func TestPlaceEntry_Success(t *testing.T) {
	broker := &fakeBroker{errs: []error{nil}}
	exec := NewAlpacaExecutor(broker, config.Default())

	id, err := exec.PlaceEntry(testSignal(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "order-1" {
		t.Errorf("order id: got %q, want order-1", id)
	}
	if broker.calls != 1 {
		t.Errorf("broker calls: got %d, want 1", broker.calls)
	}
	if broker.sides[0] != alpaca.Buy {
		t.Errorf("side: got %s, want buy", broker.sides[0])
	}
}

func TestPlaceEntry_RetriesOnce(t *testing.T) {
	broker := &fakeBroker{errs: []error{errors.New("429"), nil}}
	exec := NewAlpacaExecutor(broker, config.Default())

	if _, err := exec.PlaceEntry(testSignal(), 10); err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if broker.calls != 2 {
		t.Errorf("broker calls: got %d, want 2", broker.calls)
	}
	if exec.KillSwitchActive() {
		t.Error("single failure must not trip the kill switch")
	}
}

func TestKillSwitch_LatchesAfterRepeatedFailures(t *testing.T) {
	broker := &fakeBroker{errs: []error{errors.New("down")}}
	exec := NewAlpacaExecutor(broker, config.Default()) // trips at 2 failures

	_, err := exec.PlaceEntry(testSignal(), 10)
	if !errors.Is(err, ErrKillSwitch) {
		t.Fatalf("got %v, want ErrKillSwitch", err)
	}
	if !exec.KillSwitchActive() {
		t.Fatal("expected kill switch latched")
	}
	callsAtLatch := broker.calls

	// No further broker calls once latched.
	if _, err := exec.PlaceEntry(testSignal(), 10); !errors.Is(err, ErrKillSwitch) {
		t.Errorf("entry after latch: got %v, want ErrKillSwitch", err)
	}
	pos := &types.OpenPosition{Symbol: "RELIANCE", Side: types.Buy, Quantity: 10, Entry: 100}
	if _, err := exec.PlaceExit(pos, "stop_loss_hit", 99, 10); !errors.Is(err, ErrKillSwitch) {
		t.Errorf("exit after latch: got %v, want ErrKillSwitch", err)
	}
	if broker.calls != callsAtLatch {
		t.Errorf("broker called after latch: got %d, want %d", broker.calls, callsAtLatch)
	}
}

func TestPlaceExit_NoRetry(t *testing.T) {
	broker := &fakeBroker{errs: []error{errors.New("down")}}
	exec := NewAlpacaExecutor(broker, config.Default())
	pos := &types.OpenPosition{Symbol: "RELIANCE", Side: types.Buy, Quantity: 10, Entry: 100}

	_, err := exec.PlaceExit(pos, "stop_loss_hit", 99, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if broker.calls != 1 {
		t.Errorf("broker calls: got %d, want 1 (no exit retry)", broker.calls)
	}
}

func TestPlaceExit_ShortCoversWithBuy(t *testing.T) {
	broker := &fakeBroker{errs: []error{nil}}
	exec := NewAlpacaExecutor(broker, config.Default())
	pos := &types.OpenPosition{Symbol: "RELIANCE", Side: types.Sell, Quantity: 10, Entry: 100}

	if _, err := exec.PlaceExit(pos, "target_2", 95, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broker.sides[0] != alpaca.Buy {
		t.Errorf("side: got %s, want buy to cover a short", broker.sides[0])
	}
}

func TestMarkToMarket(t *testing.T) {
	tests := []struct {
		name  string
		side  types.Side
		price float64
		want  float64
	}{
		{"long gain", types.Buy, 105, 50},
		{"long loss", types.Buy, 98, -20},
		{"short gain", types.Sell, 95, 50},
		{"short loss", types.Sell, 103, -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := &types.OpenPosition{Symbol: "RELIANCE", Side: tt.side, Quantity: 10, Entry: 100}
			if got := MarkToMarket(pos, tt.price); got != tt.want {
				t.Errorf("got %.2f, want %.2f", got, tt.want)
			}
		})
	}
}
