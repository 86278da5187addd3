package execution

import (
	"errors"
	"log"
	"sync"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

// ErrKillSwitch is returned once the kill switch latched; no order call is
// attempted after that point.
var ErrKillSwitch = errors.New("kill switch active, order placement halted")

// OrderExecutor is the order-placement contract shared by the live broker
// executor and the backtest simulator. PlaceEntry is retried by the
// implementation up to its configured bound; PlaceExit is never retried by
// the implementation - a failed exit leaves the position open for the next
// bar.
type OrderExecutor interface {
	PlaceEntry(signal *types.TradeSignal, qty int) (string, error)
	PlaceExit(position *types.OpenPosition, reason string, price float64, qty int) (string, error)
}

// BrokerClient is the slice of the alpaca client the executor needs.
type BrokerClient interface {
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
}

// AlpacaExecutor places market orders through the broker and escalates
// repeated API failures into a one-way kill switch.
type AlpacaExecutor struct {
	client BrokerClient
	cfg    *config.TradingConfig

	mu          sync.Mutex
	apiFailures int
	killSwitch  bool
}

func NewAlpacaExecutor(client BrokerClient, cfg *config.TradingConfig) *AlpacaExecutor {
	return &AlpacaExecutor{client: client, cfg: cfg}
}

// KillSwitchActive reports whether order placement has been permanently
// halted for this run.
func (e *AlpacaExecutor) KillSwitchActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.killSwitch
}

func (e *AlpacaExecutor) recordFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.apiFailures++
	log.Printf("⚠️  API failure count=%d error=%v\n", e.apiFailures, err)
	if e.apiFailures >= e.cfg.KillSwitchAPIFailures {
		e.killSwitch = true
		log.Println("🛑 Kill switch activated due to repeated API failures")
	}
}

// PlaceEntry submits a market entry order, retrying up to the configured
// bound. Every failed attempt counts toward the kill switch.
func (e *AlpacaExecutor) PlaceEntry(signal *types.TradeSignal, qty int) (string, error) {
	if e.KillSwitchActive() {
		return "", ErrKillSwitch
	}

	side := alpaca.Buy
	if signal.Side == types.Sell {
		side = alpaca.Sell
	}
	orderQty := decimal.NewFromInt(int64(qty))
	req := alpaca.PlaceOrderRequest{
		Symbol:      signal.Symbol,
		Qty:         &orderQty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxOrderRetries; attempt++ {
		order, err := e.client.PlaceOrder(req)
		if err == nil {
			log.Printf("ENTRY | symbol=%s setup=%s side=%s entry=%.2f sl=%.2f t1=%.2f t2=%.2f qty=%d rr=%.2f\n",
				signal.Symbol, signal.Setup, signal.Side, signal.Entry, signal.StopLoss,
				signal.Target1, signal.Target2, qty, rewardRisk(signal))
			return order.ID, nil
		}
		lastErr = err
		e.recordFailure(err)
		if e.KillSwitchActive() {
			return "", ErrKillSwitch
		}
	}
	log.Printf("❌ Entry order rejected after retries for %s\n", signal.Symbol)
	return "", lastErr
}

// PlaceExit submits a market exit order for qty shares. A single attempt
// only: exit failures are surfaced so the caller retries on the next bar
// with position state untouched.
func (e *AlpacaExecutor) PlaceExit(position *types.OpenPosition, reason string, price float64, qty int) (string, error) {
	if e.KillSwitchActive() {
		return "", ErrKillSwitch
	}

	side := alpaca.Sell
	if position.Side == types.Sell {
		side = alpaca.Buy
	}
	orderQty := decimal.NewFromInt(int64(qty))
	req := alpaca.PlaceOrderRequest{
		Symbol:      position.Symbol,
		Qty:         &orderQty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	}

	order, err := e.client.PlaceOrder(req)
	if err != nil {
		e.recordFailure(err)
		log.Printf("❌ Exit order failed for %s reason=%s\n", position.Symbol, reason)
		return "", err
	}
	log.Printf("EXIT | symbol=%s setup=%s side=%s entry=%.2f price=%.2f qty=%d exit_reason=%s\n",
		position.Symbol, position.Setup, position.Side, position.Entry, price, qty, reason)
	return order.ID, nil
}

// MarkToMarket returns the open PnL of a position against the given price.
func MarkToMarket(position *types.OpenPosition, lastPrice float64) float64 {
	direction := 1.0
	if position.Side == types.Sell {
		direction = -1.0
	}
	return (lastPrice - position.Entry) * direction * float64(position.Quantity)
}

func rewardRisk(signal *types.TradeSignal) float64 {
	risk := signal.Entry - signal.StopLoss
	if risk < 0 {
		risk = -risk
	}
	reward := signal.Target1 - signal.Entry
	if reward < 0 {
		reward = -reward
	}
	if risk <= 0 {
		return 0.0
	}
	return reward / risk
}
