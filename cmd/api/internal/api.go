package internal

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	datafeed "github.com/fazecat/intraday/Internal/database"
	"github.com/fazecat/intraday/Internal/strategy"
	"github.com/fazecat/intraday/Internal/strategy/metrics"
	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils/config"
)

type API struct {
	Config          *config.TradingConfig
	PositionManager *strategy.PositionManager
	JWTManager      *JWTManager
	Capital         float64
}

func (api *API) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions := api.PositionManager.Open()

	response := map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	}
	WriteJSON(w, http.StatusOK, response)
}

func (api *API) HandleGetRiskStatus(w http.ResponseWriter, r *http.Request) {
	dailyPnL, err := datafeed.GetDailyPnL(context.Background(), time.Now().In(api.Config.Location()))
	if err != nil {
		log.Printf("Error fetching daily pnl: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch daily pnl")
		return
	}

	pnl, _ := dailyPnL.Float64()
	maxLoss := api.Capital * api.Config.DailyMaxLossPct

	response := map[string]interface{}{
		"daily_pnl":       pnl,
		"max_daily_loss":  maxLoss,
		"trading_blocked": pnl <= -maxLoss,
	}
	WriteJSON(w, http.StatusOK, response)
}

func (api *API) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	rows, err := datafeed.GetAllTrades(context.Background())
	if err != nil {
		log.Printf("Error fetching trades: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch trades")
		return
	}

	report := metrics.CalculatePerformance(convertToTradeRecords(rows))

	response := map[string]interface{}{
		"total_trades":  report.TotalTrades,
		"wins":          report.Wins,
		"losses":        report.Losses,
		"win_rate":      report.WinRate,
		"total_pnl":     report.TotalPnL,
		"profit_factor": report.ProfitFactor,
		"max_drawdown":  report.MaxDrawdown,
		"sharpe_ratio":  report.SharpeRatio,
		"sortino_ratio": report.SortinoRatio,
	}
	WriteJSON(w, http.StatusOK, response)
}

func (api *API) HandleTradeStatistics(w http.ResponseWriter, r *http.Request) {
	rows, err := datafeed.GetAllTrades(context.Background())
	if err != nil {
		log.Printf("Error fetching trades: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch trades")
		return
	}

	stats := metrics.CalculateSymbolStats(convertToTradeRecords(rows))
	WriteJSON(w, http.StatusOK, stats)
}

func (api *API) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	var rows []datafeed.TradeRow
	var err error
	if symbol != "" {
		rows, err = datafeed.GetTradeHistory(context.Background(), symbol, int32(limit))
	} else {
		rows, err = datafeed.GetAllTrades(context.Background())
	}
	if err != nil {
		log.Printf("Error fetching trades: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch trades")
		return
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	WriteJSON(w, http.StatusOK, rows)
}

func (api *API) HandleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := api.JWTManager.GenerateToken(req.UserID, req.Email, 24)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		WriteError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func convertToTradeRecords(rows []datafeed.TradeRow) []types.TradeRecord {
	records := make([]types.TradeRecord, 0, len(rows))
	for _, row := range rows {
		qty := int(row.Quantity.IntPart())
		entry, _ := row.EntryPrice.Float64()
		exit, _ := row.ExitPrice.Float64()
		pnl, _ := row.PnL.Float64()
		records = append(records, types.TradeRecord{
			Symbol:   row.Symbol,
			Side:     types.Side(row.Side),
			Entry:    entry,
			Exit:     exit,
			Quantity: qty,
			PnL:      pnl,
			Reason:   row.Reason,
			Time:     row.ExecutedAt,
		})
	}
	return records
}
