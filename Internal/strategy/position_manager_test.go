package strategy

import (
	"reflect"
	"testing"

	"github.com/fazecat/intraday/Internal/types"
)

func TestPositionManager(t *testing.T) {
	pm := NewPositionManager()

	pm.Add(&types.OpenPosition{Symbol: "TCS", Side: types.Buy, Quantity: 10, Entry: 100})
	pm.Add(&types.OpenPosition{Symbol: "INFY", Side: types.Sell, Quantity: 5, Entry: 200})

	if pm.Count() != 2 {
		t.Errorf("count: got %d, want 2", pm.Count())
	}
	if !pm.Has("TCS") || pm.Has("SBIN") {
		t.Error("Has reports wrong membership")
	}
	if got := pm.Symbols(); !reflect.DeepEqual(got, []string{"INFY", "TCS"}) {
		t.Errorf("symbols: got %v, want sorted [INFY TCS]", got)
	}

	pos := pm.Get("INFY")
	if pos == nil || pos.Quantity != 5 {
		t.Fatalf("Get returned %+v", pos)
	}

	open := pm.Open()
	if len(open) != 2 || open[0].Symbol != "INFY" {
		t.Errorf("Open snapshot wrong: %+v", open)
	}

	pm.Remove("TCS")
	if pm.Has("TCS") || pm.Count() != 1 {
		t.Error("Remove did not evict the position")
	}
	if pm.Get("TCS") != nil {
		t.Error("Get after Remove should be nil")
	}
}
