package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	datafeed "github.com/fazecat/intraday/Internal/database"
	"github.com/fazecat/intraday/Internal/handlers/execution"
	"github.com/fazecat/intraday/Internal/handlers/risk"
	"github.com/fazecat/intraday/Internal/strategy"
	"github.com/fazecat/intraday/Internal/strategy/indicators"
	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

const intradayBarLimit = 100

// Bot is the live trading loop: fetch, decide, manage, one tick per bar
// interval inside the session window.
type Bot struct {
	cfg          *config.TradingConfig
	executor     *execution.AlpacaExecutor
	exitExecutor execution.OrderExecutor
	positions    *strategy.PositionManager
	riskState    *risk.DailyRiskState
	engine       *strategy.StrategyEngine
	exitMgr      *strategy.ExitManager
	cache        *datafeed.BarCache
	pivots       map[string]indicators.Pivots
	capital      float64
}

func New(cfg *config.TradingConfig, executor *execution.AlpacaExecutor, capital float64) *Bot {
	b := &Bot{
		cfg:       cfg,
		executor:  executor,
		positions: strategy.NewPositionManager(),
		riskState: risk.NewDailyRiskState(capital, cfg.DailyMaxLossPct),
		engine:    strategy.NewStrategyEngine(cfg),
		cache:     datafeed.NewBarCache(),
		pivots:    make(map[string]indicators.Pivots),
		capital:   capital,
	}
	// Live exits are persisted and counted against the daily loss limit as
	// they fill.
	b.exitExecutor = &loggingExecutor{inner: executor, riskState: b.riskState}
	b.exitMgr = strategy.NewExitManager(cfg, b.exitExecutor)
	return b
}

// PrepareDay fetches prior-session OHLC for every symbol and freezes the
// day's pivot levels. Must run before the scan window opens.
func (b *Bot) PrepareDay() error {
	symbols := append([]string{b.cfg.IndexSymbol}, b.cfg.Symbols...)
	for _, symbol := range symbols {
		high, low, closePx, err := datafeed.FetchPreviousDayOHLC(symbol)
		if err != nil {
			return fmt.Errorf("failed to prepare pivots for %s: %w", symbol, err)
		}
		b.pivots[symbol] = indicators.StandardPivots(high, low, closePx)
	}
	b.riskState.Reset()
	b.cache.Clear()
	log.Printf("✅ Day prepared: pivots frozen for %d symbols\n", len(symbols))
	return nil
}

// Run drives the session until the force-exit cutoff, the kill switch, or
// context cancellation.
func (b *Bot) Run(ctx context.Context) error {
	interval := b.intervalDuration()

	for {
		now := time.Now().In(b.cfg.Location())

		if b.executor.KillSwitchActive() {
			log.Println("🛑 Kill switch active, squaring off and stopping")
			b.forceSquareOff(now)
			return execution.ErrKillSwitch
		}

		if b.cfg.AtOrAfterForceExit(now) {
			b.forceSquareOff(now)
			log.Println("✅ Session complete")
			return nil
		}

		if !b.cfg.BeforeScanStart(now) {
			b.managePositions(now)
			if !b.cfg.AfterLastEntry(now) {
				b.scanAndTrade(now)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (b *Bot) intervalDuration() time.Duration {
	switch b.cfg.Interval {
	case "1Min":
		return time.Minute
	case "5Min":
		return 5 * time.Minute
	case "15Min":
		return 15 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// fetchSeries pulls the session's bars for a symbol and runs the full
// indicator pipeline over them.
func (b *Bot) fetchSeries(symbol string) ([]types.Bar, error) {
	bars, err := datafeed.FetchIntradayBars(symbol, b.cfg.Interval, intradayBarLimit, "")
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	series := indicators.AddIndicators(bars, b.pivots[symbol],
		b.cfg.EMAFastPeriod, b.cfg.EMASlowPeriod, b.cfg.RSIPeriod, b.cfg.ATRPeriod)
	b.cache.Set(symbol, series)
	return series, nil
}

func (b *Bot) managePositions(now time.Time) {
	for _, symbol := range b.positions.Symbols() {
		position := b.positions.Get(symbol)
		if position == nil {
			continue
		}
		series, err := b.fetchSeries(symbol)
		if err != nil {
			log.Printf("⚠️ Failed to fetch bars for %s: %v\n", symbol, err)
			continue
		}
		if len(series) == 0 {
			continue
		}
		candle := series[len(series)-1]

		unrealized := execution.MarkToMarket(position, candle.Close)
		log.Printf("📊 %s | Qty: %d | Last: %.2f | Unrealized: %.2f\n",
			symbol, position.Quantity, candle.Close, unrealized)

		b.exitMgr.ManageExit(position, candle, now)
		if position.Quantity == 0 {
			b.positions.Remove(symbol)
		}
	}
}

func (b *Bot) scanAndTrade(now time.Time) {
	if b.riskState.TotalTrades() >= b.cfg.MaxTotalTradesPerDay {
		return
	}

	indexBars, err := b.fetchSeries(b.cfg.IndexSymbol)
	if err != nil {
		log.Printf("⚠️ Failed to fetch index bars: %v\n", err)
		indexBars = nil
	}

	var candidates []*types.TradeSignal
	for _, symbol := range b.cfg.Symbols {
		if b.cfg.IsExcluded(symbol) || b.positions.Has(symbol) {
			continue
		}
		if !b.riskState.CanTrade(symbol, b.cfg.MaxTotalTradesPerDay, b.cfg.MaxTradesPerStockPerDay) {
			continue
		}
		series, err := b.fetchSeries(symbol)
		if err != nil {
			log.Printf("⚠️ Failed to fetch bars for %s: %v\n", symbol, err)
			continue
		}

		signal := b.engine.Evaluate(symbol, series, now, indexBars)
		if signal != nil {
			candidates = append(candidates, signal)
		}
	}

	for _, signal := range rankSignals(candidates) {
		if b.riskState.TotalTrades() >= b.cfg.MaxTotalTradesPerDay {
			break
		}
		qty := risk.PositionSize(b.capital, b.cfg.MaxTradeCapital, b.cfg.RiskPerTradePct, signal.Entry, signal.StopLoss)
		if qty <= 0 {
			continue
		}

		if _, err := b.executor.PlaceEntry(signal, qty); err != nil {
			log.Printf("⚠️ Entry failed for %s: %v\n", signal.Symbol, err)
			continue
		}
		log.Println(signal.DetailedReason)

		b.positions.Add(&types.OpenPosition{
			Symbol:   signal.Symbol,
			Side:     signal.Side,
			Quantity: qty,
			Setup:    signal.Setup,
			Entry:    signal.Entry,
			StopLoss: signal.StopLoss,
			Target1:  signal.Target1,
			Target2:  signal.Target2,
			OpenedAt: now,
		})
		b.riskState.RegisterTrade(signal.Symbol)
	}
}

// rankSignals orders candidates by score, then relative volume, then symbol
// so ties break the same way every run.
func rankSignals(signals []*types.TradeSignal) []*types.TradeSignal {
	out := make([]*types.TradeSignal, len(signals))
	copy(out, signals)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RelativeVolume != b.RelativeVolume {
			return a.RelativeVolume > b.RelativeVolume
		}
		return a.Symbol < b.Symbol
	})
	return out
}

func (b *Bot) forceSquareOff(now time.Time) {
	for _, symbol := range b.positions.Symbols() {
		position := b.positions.Get(symbol)
		if position == nil {
			continue
		}
		price := position.Entry
		if series := b.cache.Get(symbol); len(series) > 0 {
			price = series[len(series)-1].Close
		}
		if _, err := b.exitExecutor.PlaceExit(position, b.cfg.ForceExitReason(), price, position.Quantity); err != nil {
			log.Printf("🛑 Force square-off failed for %s: %v\n", symbol, err)
			continue
		}
		position.Quantity = 0
		b.positions.Remove(symbol)
	}
}

// loggingExecutor forwards orders to the broker executor and persists each
// filled exit to the trade log.
type loggingExecutor struct {
	inner     execution.OrderExecutor
	riskState *risk.DailyRiskState
}

func (l *loggingExecutor) PlaceEntry(signal *types.TradeSignal, qty int) (string, error) {
	return l.inner.PlaceEntry(signal, qty)
}

func (l *loggingExecutor) PlaceExit(position *types.OpenPosition, reason string, price float64, qty int) (string, error) {
	orderID, err := l.inner.PlaceExit(position, reason, price, qty)
	if err != nil {
		return orderID, err
	}

	direction := 1.0
	if position.Side == types.Sell {
		direction = -1.0
	}
	record := types.TradeRecord{
		Symbol:   position.Symbol,
		Side:     position.Side,
		Entry:    position.Entry,
		Exit:     price,
		Quantity: qty,
		PnL:      (price - position.Entry) * direction * float64(qty),
		Reason:   reason,
		Time:     time.Now(),
	}
	l.riskState.RegisterExit(record.PnL)
	if dbErr := datafeed.LogTrade(context.Background(), record, orderID); dbErr != nil {
		log.Printf("⚠️ Failed to persist trade: %v\n", dbErr)
	}
	return orderID, nil
}
