package strategy

import (
	"log"
	"sort"
	"sync"

	"github.com/fazecat/intraday/Internal/types"
)

// PositionManager owns the set of open positions for one engine run, keyed
// by symbol (at most one position per symbol). The driving loop is the only
// writer; the monitoring API reads concurrently.
type PositionManager struct {
	mu        sync.RWMutex
	positions map[string]*types.OpenPosition
}

func NewPositionManager() *PositionManager {
	return &PositionManager{positions: make(map[string]*types.OpenPosition)}
}

// Add registers a newly opened position.
func (pm *PositionManager) Add(position *types.OpenPosition) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.positions[position.Symbol] = position
	log.Printf("✅ Position added: %s %s x%d @ %.2f\n",
		position.Symbol, position.Side, position.Quantity, position.Entry)
}

// Get returns the open position for symbol, nil when flat.
func (pm *PositionManager) Get(symbol string) *types.OpenPosition {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.positions[symbol]
}

func (pm *PositionManager) Has(symbol string) bool {
	return pm.Get(symbol) != nil
}

// Remove evicts a fully closed position.
func (pm *PositionManager) Remove(symbol string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.positions, symbol)
}

func (pm *PositionManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.positions)
}

// Symbols returns the open symbols in deterministic (sorted) order.
func (pm *PositionManager) Symbols() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	symbols := make([]string, 0, len(pm.positions))
	for s := range pm.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// Open returns a snapshot of all open positions, sorted by symbol.
func (pm *PositionManager) Open() []*types.OpenPosition {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]*types.OpenPosition, 0, len(pm.positions))
	for _, p := range pm.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
