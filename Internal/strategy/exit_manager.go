package strategy

import (
	"time"

	"github.com/fazecat/intraday/Internal/handlers/execution"
	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

// ExitManager evaluates the layered exit policy once per open position per
// bar. Layer order: force square-off, partial profit at target_1, stop loss,
// target_2 runner exit, fast-EMA trailing stop, smart end-of-day exit. The
// partial layer falls through to the remaining checks within the same bar.
//
// Every exit is a side-effecting call to the executor; a failed order leaves
// the position completely unmodified so the next bar can retry.
type ExitManager struct {
	cfg      *config.TradingConfig
	executor execution.OrderExecutor
}

func NewExitManager(cfg *config.TradingConfig, executor execution.OrderExecutor) *ExitManager {
	return &ExitManager{cfg: cfg, executor: executor}
}

// ManageExit runs the exit layers for one position against the bar at now.
// Returns true when the position is fully closed; the caller must then evict
// it from the open-position set in the same step.
func (m *ExitManager) ManageExit(position *types.OpenPosition, candle types.Bar, now time.Time) bool {
	// 1. Force square-off at the session cutoff.
	if m.cfg.AtOrAfterForceExit(now) {
		if _, err := m.executor.PlaceExit(position, m.cfg.ForceExitReason(), candle.Close, position.Quantity); err != nil {
			return false
		}
		position.Quantity = 0
		return true
	}

	// 2. Partial profit booking at target_1. Falls through on success.
	if !position.Target1Hit && m.target1Touched(position, candle) {
		exitQty := position.Quantity / 2
		if exitQty > 0 {
			if _, err := m.executor.PlaceExit(position, "partial_profit_target_1", position.Target1, exitQty); err != nil {
				return false
			}
			position.Quantity -= exitQty
		}
		// Odd lot of 1: no order, but the level was still hit.
		position.Target1Hit = true
		position.StopLoss = position.Entry // breakeven
		if position.Quantity == 0 {
			return true
		}
	}

	// 3. Stop loss, checked unconditionally every bar.
	if m.stopLossBreached(position, candle) {
		if _, err := m.executor.PlaceExit(position, "stop_loss_hit", position.StopLoss, position.Quantity); err != nil {
			return false
		}
		position.Quantity = 0
		return true
	}

	// 4. Runner target: full exit at target_2 once target_1 booked.
	if position.Target1Hit && !types.Missing(position.Target2) && m.target2Touched(position, candle) {
		if _, err := m.executor.PlaceExit(position, "target_2", position.Target2, position.Quantity); err != nil {
			return false
		}
		position.Quantity = 0
		return true
	}

	// 5. Fast-EMA trailing stop, active only for the runner.
	if position.Target1Hit && m.trailingStopBroken(position, candle) {
		if _, err := m.executor.PlaceExit(position, "ema_trailing_stop", candle.Close, position.Quantity); err != nil {
			return false
		}
		position.Quantity = 0
		return true
	}

	// 6. Smart end-of-day exit once past the pre-close checkpoint.
	if m.cfg.AtOrAfterEODCheckpoint(now) && m.eodTrendInvalidated(position, candle) {
		if _, err := m.executor.PlaceExit(position, "trend_invalidated", candle.Close, position.Quantity); err != nil {
			return false
		}
		position.Quantity = 0
		return true
	}

	return false
}

func (m *ExitManager) target1Touched(position *types.OpenPosition, candle types.Bar) bool {
	if position.IsLong() {
		return candle.High >= position.Target1
	}
	return candle.Low <= position.Target1
}

func (m *ExitManager) target2Touched(position *types.OpenPosition, candle types.Bar) bool {
	if position.IsLong() {
		return candle.High >= position.Target2
	}
	return candle.Low <= position.Target2
}

func (m *ExitManager) stopLossBreached(position *types.OpenPosition, candle types.Bar) bool {
	if position.IsLong() {
		return candle.Low <= position.StopLoss
	}
	return candle.High >= position.StopLoss
}

// trailingStopBroken: close through the fast EMA against the position. A
// missing EMA value is "no trail condition", not an exit.
func (m *ExitManager) trailingStopBroken(position *types.OpenPosition, candle types.Bar) bool {
	if types.Missing(candle.EMAFast) {
		return false
	}
	if position.IsLong() {
		return candle.Close < candle.EMAFast
	}
	return candle.Close > candle.EMAFast
}

// eodTrendInvalidated: near the close, hold only while the trend still
// confirms the position. Missing indicator data exits for safety.
func (m *ExitManager) eodTrendInvalidated(position *types.OpenPosition, candle types.Bar) bool {
	if types.Missing(candle.VWAP) || types.Missing(candle.EMAFast) || types.Missing(candle.EMASlow) {
		return true
	}
	if position.IsLong() {
		strong := candle.Close > candle.VWAP && candle.EMAFast > candle.EMASlow
		return !strong
	}
	strong := candle.Close < candle.VWAP && candle.EMAFast < candle.EMASlow
	return !strong
}
