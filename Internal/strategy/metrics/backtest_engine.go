package metrics

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/fazecat/intraday/Internal/handlers/risk"
	"github.com/fazecat/intraday/Internal/strategy"
	"github.com/fazecat/intraday/Internal/strategy/indicators"
	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

// minimum trailing bars before the backtest hands a window to the strategy
const minBacktestHistory = 30

// index window handed to the regime classifier
const indexWindowBars = 20

// BacktestResult aggregates a replay run. It is derived entirely from the
// trade log and can be recomputed at any time by re-aggregating Trades.
type BacktestResult struct {
	TotalTrades int
	Wins        int
	Losses      int
	TotalPnL    float64
	WinRate     float64
	Trades      []types.TradeRecord
}

// SimOrder is one simulated order accepted by the SimExecutor.
type SimOrder struct {
	Type   string // "ENTRY" or "EXIT"
	Symbol string
	Side   types.Side
	Reason string
	Price  float64
	Qty    int
}

// SimExecutor is the no-broker order executor driving the replay. Orders
// always fill; the OnExit hook lets the engine record the trade atomically
// with the exit decision.
type SimExecutor struct {
	Orders []SimOrder
	OnExit func(position *types.OpenPosition, reason string, price float64, qty int)
}

func NewSimExecutor() *SimExecutor {
	return &SimExecutor{}
}

func (s *SimExecutor) PlaceEntry(signal *types.TradeSignal, qty int) (string, error) {
	s.Orders = append(s.Orders, SimOrder{
		Type:   "ENTRY",
		Symbol: signal.Symbol,
		Side:   signal.Side,
		Price:  signal.Entry,
		Qty:    qty,
	})
	return fmt.Sprintf("sim-%d", len(s.Orders)), nil
}

func (s *SimExecutor) PlaceExit(position *types.OpenPosition, reason string, price float64, qty int) (string, error) {
	s.Orders = append(s.Orders, SimOrder{
		Type:   "EXIT",
		Symbol: position.Symbol,
		Side:   position.Side,
		Reason: reason,
		Price:  price,
		Qty:    qty,
	})
	if s.OnExit != nil {
		s.OnExit(position, reason, price, qty)
	}
	return fmt.Sprintf("sim-%d", len(s.Orders)), nil
}

// BacktestEngine replays stored historical bars through the exact live
// decision logic: one merged timeline, per-day risk reset, manage-then-scan
// per tick, force square-off at the cutoff.
type BacktestEngine struct {
	cfg     *config.TradingConfig
	capital float64

	raw    map[string][]types.Bar
	series map[string][]types.Bar
	index  map[string]map[int64]int

	strategyEngine *strategy.StrategyEngine
	exitManager    *strategy.ExitManager
	riskState      *risk.DailyRiskState
	executor       *SimExecutor

	openPositions map[string]*types.OpenPosition
	tradesHistory []types.TradeRecord

	// current simulated timestamp, stamped onto recorded trades
	now time.Time
}

func NewBacktestEngine(data map[string][]types.Bar, cfg *config.TradingConfig, capital float64) *BacktestEngine {
	e := &BacktestEngine{
		cfg:            cfg,
		capital:        capital,
		raw:            data,
		series:         make(map[string][]types.Bar),
		index:          make(map[string]map[int64]int),
		strategyEngine: strategy.NewStrategyEngine(cfg),
		riskState:      risk.NewDailyRiskState(capital, cfg.DailyMaxLossPct),
		executor:       NewSimExecutor(),
		openPositions:  make(map[string]*types.OpenPosition),
	}
	e.exitManager = strategy.NewExitManager(cfg, e.executor)

	// Trade recording rides the exit order so PnL and counters mutate
	// atomically with the decision.
	e.executor.OnExit = func(position *types.OpenPosition, reason string, price float64, qty int) {
		direction := 1.0
		if position.Side == types.Sell {
			direction = -1.0
		}
		pnl := (price - position.Entry) * direction * float64(qty)
		e.tradesHistory = append(e.tradesHistory, types.TradeRecord{
			Symbol:   position.Symbol,
			Side:     position.Side,
			Entry:    position.Entry,
			Exit:     price,
			Quantity: qty,
			PnL:      pnl,
			Reason:   reason,
			Time:     e.now,
		})
		e.riskState.RegisterExit(pnl)
		log.Printf("EXIT | %s | Reason: %s | PnL: %.2f\n", position.Symbol, reason, pnl)
	}
	return e
}

// Run replays the merged timeline and returns the aggregated result.
func (e *BacktestEngine) Run() BacktestResult {
	timeline := e.buildTimeline()
	e.precomputeIndicators()

	var lastDay string
	for _, now := range timeline {
		day := now.Format("2006-01-02")
		if day != lastDay {
			e.riskState.Reset()
			lastDay = day
		}

		if e.cfg.BeforeScanStart(now) {
			continue
		}

		if e.cfg.AtOrAfterForceExit(now) {
			e.forceCloseAll(now)
			continue
		}

		e.managePositions(now)

		if !e.cfg.AfterLastEntry(now) {
			e.scanAndEnter(now)
		}
	}

	return e.Stats()
}

// buildTimeline unions every symbol's timestamps into one sorted clock.
func (e *BacktestEngine) buildTimeline() []time.Time {
	seen := make(map[int64]time.Time)
	for _, bars := range e.raw {
		for _, b := range bars {
			seen[b.Timestamp.UnixNano()] = b.Timestamp
		}
	}
	keys := make([]int64, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	timeline := make([]time.Time, len(keys))
	for i, k := range keys {
		timeline[i] = seen[k]
	}
	return timeline
}

// precomputeIndicators builds the full augmented series per symbol. True
// prior-day OHLC is not part of the replay dataset, so pivots are
// approximated from the first available bar.
func (e *BacktestEngine) precomputeIndicators() {
	for symbol, bars := range e.raw {
		if len(bars) == 0 {
			continue
		}
		first := bars[0]
		piv := indicators.StandardPivots(first.High*1.01, first.Low*0.99, first.Close)
		series := indicators.AddIndicators(bars, piv,
			e.cfg.EMAFastPeriod, e.cfg.EMASlowPeriod, e.cfg.RSIPeriod, e.cfg.ATRPeriod)

		e.series[symbol] = series
		byTS := make(map[int64]int, len(series))
		for i, b := range series {
			byTS[b.Timestamp.UnixNano()] = i
		}
		e.index[symbol] = byTS
	}
}

func (e *BacktestEngine) barAt(symbol string, now time.Time) (int, bool) {
	byTS, ok := e.index[symbol]
	if !ok {
		return 0, false
	}
	i, ok := byTS[now.UnixNano()]
	return i, ok
}

func (e *BacktestEngine) openSymbols() []string {
	symbols := make([]string, 0, len(e.openPositions))
	for s := range e.openPositions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (e *BacktestEngine) managePositions(now time.Time) {
	e.now = now
	for _, symbol := range e.openSymbols() {
		position := e.openPositions[symbol]
		i, ok := e.barAt(symbol, now)
		if !ok {
			continue
		}
		candle := e.series[symbol][i]

		e.exitManager.ManageExit(position, candle, now)
		if position.Quantity == 0 {
			delete(e.openPositions, symbol)
		}
	}
}

func (e *BacktestEngine) scanAndEnter(now time.Time) {
	e.now = now
	if e.riskState.TotalTrades() >= e.cfg.MaxTotalTradesPerDay {
		return
	}

	indexView := e.indexWindow(now)

	symbols := make([]string, 0, len(e.series))
	for s := range e.series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var candidates []*types.TradeSignal
	for _, symbol := range symbols {
		if symbol == e.cfg.IndexSymbol || e.cfg.IsExcluded(symbol) {
			continue
		}
		if _, open := e.openPositions[symbol]; open {
			continue
		}
		if !e.riskState.CanTrade(symbol, e.cfg.MaxTotalTradesPerDay, e.cfg.MaxTradesPerStockPerDay) {
			continue
		}
		i, ok := e.barAt(symbol, now)
		if !ok || i < minBacktestHistory {
			continue
		}
		view := e.series[symbol][i-minBacktestHistory : i+1]

		signal := e.strategyEngine.Evaluate(symbol, view, now, indexView)
		if signal != nil {
			candidates = append(candidates, signal)
		}
	}

	// Rank: score desc, relative volume desc, symbol asc for a total order.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RelativeVolume != b.RelativeVolume {
			return a.RelativeVolume > b.RelativeVolume
		}
		return a.Symbol < b.Symbol
	})

	for _, signal := range candidates {
		if e.riskState.TotalTrades() >= e.cfg.MaxTotalTradesPerDay {
			break
		}
		if !e.riskState.CanTrade(signal.Symbol, e.cfg.MaxTotalTradesPerDay, e.cfg.MaxTradesPerStockPerDay) {
			continue
		}

		qty := risk.PositionSize(e.capital, e.cfg.MaxTradeCapital, e.cfg.RiskPerTradePct, signal.Entry, signal.StopLoss)
		if qty <= 0 {
			continue
		}

		if _, err := e.executor.PlaceEntry(signal, qty); err != nil {
			continue
		}
		log.Println(signal.DetailedReason)
		e.openPositions[signal.Symbol] = &types.OpenPosition{
			Symbol:   signal.Symbol,
			Side:     signal.Side,
			Quantity: qty,
			Setup:    signal.Setup,
			Entry:    signal.Entry,
			StopLoss: signal.StopLoss,
			Target1:  signal.Target1,
			Target2:  signal.Target2,
			OpenedAt: now,
		}
		e.riskState.RegisterTrade(signal.Symbol)
	}
}

// indexWindow returns the trailing regime window for the reference index,
// nil when the index has no bar at this tick or not enough history yet.
func (e *BacktestEngine) indexWindow(now time.Time) []types.Bar {
	i, ok := e.barAt(e.cfg.IndexSymbol, now)
	if !ok || i < indexWindowBars {
		return nil
	}
	return e.series[e.cfg.IndexSymbol][i-indexWindowBars : i+1]
}

// forceCloseAll squares off every open position at this bar's close, or the
// entry price when the symbol has no bar at the cutoff tick.
func (e *BacktestEngine) forceCloseAll(now time.Time) {
	e.now = now
	for _, symbol := range e.openSymbols() {
		position := e.openPositions[symbol]
		price := position.Entry
		if i, ok := e.barAt(symbol, now); ok {
			price = e.series[symbol][i].Close
		}
		e.executor.PlaceExit(position, e.cfg.ForceExitReason(), price, position.Quantity)
		position.Quantity = 0
		delete(e.openPositions, symbol)
	}
}

// Stats re-aggregates the trade log; never an independently mutated cache.
func (e *BacktestEngine) Stats() BacktestResult {
	result := BacktestResult{Trades: e.tradesHistory}
	for _, t := range e.tradesHistory {
		result.TotalTrades++
		result.TotalPnL += t.PnL
		if t.PnL > 0 {
			result.Wins++
		} else {
			result.Losses++
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.Wins) / float64(result.TotalTrades)
	}
	return result
}
