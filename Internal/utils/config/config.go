package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TradingConfig carries every tunable of the decision engine. Times are
// exchange-local "HH:MM" strings; the zero value is not usable, start from
// Default() or LoadConfig().
type TradingConfig struct {
	Exchange string `yaml:"exchange"`
	Interval string `yaml:"interval"`
	Timezone string `yaml:"timezone"`

	IndexSymbol string   `yaml:"index_symbol"`
	Symbols     []string `yaml:"symbols"`

	// Trading window rules
	ScanStart     string `yaml:"scan_start"`
	LastEntry     string `yaml:"last_entry"`
	ForceExit     string `yaml:"force_exit"`
	EODCheckpoint string `yaml:"eod_checkpoint"`

	// Entry quality filters
	MinSSSScore     int      `yaml:"min_sss_score"`
	ExcludedSymbols []string `yaml:"excluded_symbols"`

	// ATR risk parameters
	ATRPeriod         int     `yaml:"atr_period"`
	ATRStopMultiplier float64 `yaml:"atr_stop_multiplier"`

	// Trade frequency rules
	MaxTradesPerStockPerDay int `yaml:"max_trades_per_stock_per_day"`
	MaxTotalTradesPerDay    int `yaml:"max_total_trades_per_day"`

	// Risk rules
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct"`
	DailyMaxLossPct float64 `yaml:"daily_max_loss_pct"`
	MaxTradeCapital float64 `yaml:"max_trade_capital"`
	RiskRewardRatio float64 `yaml:"risk_reward_ratio"`

	// Indicator parameters
	EMAFastPeriod int `yaml:"ema_fast_period"`
	EMASlowPeriod int `yaml:"ema_slow_period"`
	RSIPeriod     int `yaml:"rsi_period"`

	// Execution safety rules
	MaxOrderRetries       int `yaml:"max_order_retries"`
	KillSwitchAPIFailures int `yaml:"kill_switch_api_failures"`
}

// Default returns the production parameter set.
func Default() *TradingConfig {
	return &TradingConfig{
		Exchange:                "NSE",
		Interval:                "5Min",
		Timezone:                "Asia/Kolkata",
		IndexSymbol:             "NIFTY 50",
		ScanStart:               "09:20",
		LastEntry:               "11:30",
		ForceExit:               "15:20",
		EODCheckpoint:           "15:00",
		MinSSSScore:             4,
		ExcludedSymbols:         []string{"HDFCBANK", "BANKBARODA"},
		ATRPeriod:               14,
		ATRStopMultiplier:       1.5,
		MaxTradesPerStockPerDay: 1,
		MaxTotalTradesPerDay:    2,
		RiskPerTradePct:         0.01,
		DailyMaxLossPct:         0.02,
		MaxTradeCapital:         5000.0,
		RiskRewardRatio:         2.0,
		EMAFastPeriod:           9,
		EMASlowPeriod:           20,
		RSIPeriod:               14,
		MaxOrderRetries:         1,
		KillSwitchAPIFailures:   2,
	}
}

// LoadConfig looks for config.yaml next to this package first, then in the
// working directory, and unmarshals it over the defaults.
func LoadConfig() (*TradingConfig, error) {
	_, filePath, _, ok := runtime.Caller(0)
	var basePath string
	if ok {
		basePath = filepath.Dir(filePath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	possiblePaths := []string{}
	if basePath != "" {
		possiblePaths = append(possiblePaths, filepath.Join(basePath, "config.yaml"))
	}
	possiblePaths = append(possiblePaths,
		filepath.Join(cwd, "Internal", "utils", "config", "config.yaml"),
		"Internal/utils/config/config.yaml",
		"config.yaml",
	)

	var data []byte
	for _, path := range possiblePaths {
		data, err = os.ReadFile(path)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *TradingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *TradingConfig) IsExcluded(symbol string) bool {
	for _, s := range c.ExcludedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// minuteOfDay parses "HH:MM" into minutes past midnight; malformed values
// collapse to 0 so a broken config fails closed on "before X" checks.
func minuteOfDay(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0
	}
	return h*60 + m
}

func clockMinute(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

func (c *TradingConfig) BeforeScanStart(now time.Time) bool {
	return clockMinute(now) < minuteOfDay(c.ScanStart)
}

func (c *TradingConfig) AfterLastEntry(now time.Time) bool {
	return clockMinute(now) > minuteOfDay(c.LastEntry)
}

func (c *TradingConfig) AtOrAfterForceExit(now time.Time) bool {
	return clockMinute(now) >= minuteOfDay(c.ForceExit)
}

func (c *TradingConfig) AtOrAfterEODCheckpoint(now time.Time) bool {
	return clockMinute(now) >= minuteOfDay(c.EODCheckpoint)
}

// ForceExitReason renders the stable reason token for the configured cutoff,
// e.g. "force_square_off_1520".
func (c *TradingConfig) ForceExitReason() string {
	return fmt.Sprintf("force_square_off_%s", strings.ReplaceAll(c.ForceExit, ":", ""))
}
