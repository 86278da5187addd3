package datafeed

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fazecat/intraday/Internal/types"
)

// TradeRow is one persisted round trip. Monetary columns are stored as
// decimal strings so no float precision is lost crossing the wire.
type TradeRow struct {
	ID         int64
	Symbol     string
	Side       string
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	PnL        decimal.Decimal
	Reason     string
	OrderID    string
	ExecutedAt time.Time
}

func LogTrade(ctx context.Context, record types.TradeRecord, orderID string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	qty := decimal.NewFromInt(int64(record.Quantity))
	entry := decimal.NewFromFloat(record.Entry)
	exit := decimal.NewFromFloat(record.Exit)
	pnl := decimal.NewFromFloat(record.PnL)

	_, err := DB.ExecContext(ctx, `
		INSERT INTO trade_log (symbol, side, quantity, entry_price, exit_price, pnl, reason, order_id, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.Symbol, string(record.Side), qty.String(), entry.String(), exit.String(),
		pnl.String(), record.Reason, orderID, record.Time)
	if err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}

	log.Printf("✅ Trade logged to database: %s %s x%s @ %s -> %s (PnL: %s)\n",
		record.Side, record.Symbol, qty.String(), entry.String(), exit.String(), pnl.String())
	return nil
}

func GetTradeHistory(ctx context.Context, symbol string, limit int32) ([]TradeRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.QueryContext(ctx, `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, reason, order_id, executed_at
		FROM trade_log
		WHERE symbol = $1
		ORDER BY executed_at DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade history: %w", err)
	}
	defer rows.Close()

	return scanTradeRows(rows)
}

func GetAllTrades(ctx context.Context) ([]TradeRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.QueryContext(ctx, `
		SELECT id, symbol, side, quantity, entry_price, exit_price, pnl, reason, order_id, executed_at
		FROM trade_log
		ORDER BY executed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all trades: %w", err)
	}
	defer rows.Close()

	return scanTradeRows(rows)
}

// GetDailyPnL sums the realized PnL for a calendar day.
func GetDailyPnL(ctx context.Context, day time.Time) (decimal.Decimal, error) {
	if DB == nil {
		return decimal.Zero, fmt.Errorf("database not initialized")
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	rows, err := DB.QueryContext(ctx, `
		SELECT pnl FROM trade_log
		WHERE executed_at >= $1 AND executed_at < $2`, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch daily pnl: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan pnl: %w", err)
		}
		pnl, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("malformed pnl value %q: %w", raw, err)
		}
		total = total.Add(pnl)
	}
	return total, rows.Err()
}

func scanTradeRows(rows *sql.Rows) ([]TradeRow, error) {
	var trades []TradeRow
	for rows.Next() {
		var t TradeRow
		var qty, entry, exit, pnl string
		var reason, orderID sql.NullString

		if err := rows.Scan(&t.ID, &t.Symbol, &t.Side, &qty, &entry, &exit, &pnl,
			&reason, &orderID, &t.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade row: %w", err)
		}

		var err error
		if t.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("malformed quantity %q: %w", qty, err)
		}
		if t.EntryPrice, err = decimal.NewFromString(entry); err != nil {
			return nil, fmt.Errorf("malformed entry price %q: %w", entry, err)
		}
		if t.ExitPrice, err = decimal.NewFromString(exit); err != nil {
			return nil, fmt.Errorf("malformed exit price %q: %w", exit, err)
		}
		if t.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("malformed pnl %q: %w", pnl, err)
		}
		t.Reason = reason.String
		t.OrderID = orderID.String
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
