package datafeed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/fazecat/intraday/Internal/types"
	"github.com/fazecat/intraday/Internal/utils"
)

// apiBar is the wire shape of one bar from the data API. Converted to
// types.Bar immediately so indicator fields start from the NaN sentinel.
type apiBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

func (b apiBar) toBar() types.Bar {
	return types.NewBar(b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume)
}

// FetchIntradayBars pulls up to limit bars for a symbol, oldest first.
// startDate is RFC3339; when empty a window covering limit bars is derived
// from the timeframe.
func FetchIntradayBars(symbol string, timeframe string, limit int, startDate string) ([]types.Bar, error) {
	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")

	if startDate == "" {
		barDur := timeframeToDur(timeframe)
		start := time.Now().UTC().Add(-barDur * time.Duration(limit+2))
		startDate = start.Format(time.RFC3339)
	}

	apiURL := fmt.Sprintf(
		"https://data.alpaca.markets/v2/stocks/%s/bars?timeframe=%s&limit=%d&start=%s",
		url.PathEscape(symbol), timeframe, limit, url.QueryEscape(startDate),
	)

	var bars []types.Bar
	retryConfig := utils.DefaultRetryConfig()

	err := utils.RetryWithBackoff(func() error {
		req, err := http.NewRequest("GET", apiURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("APCA-API-KEY-ID", apiKey)
		req.Header.Set("APCA-API-SECRET-KEY", secretKey)

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusForbidden {
			fmt.Printf("⚠️  403 Forbidden - account may not have access to %s data\n", timeframe)
			bars = []types.Bar{}
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}

		var r struct {
			Bars []apiBar `json:"bars"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return err
		}

		bars = make([]types.Bar, 0, len(r.Bars))
		for _, wb := range r.Bars {
			bars = append(bars, wb.toBar())
		}
		return nil
	}, retryConfig)

	if err != nil {
		return nil, err
	}

	fmt.Printf("📊 Received %d bars for %s\n", len(bars), symbol)
	return bars, nil
}

// FetchPreviousDayOHLC returns the prior session's high, low and close, the
// inputs for standard pivot levels.
func FetchPreviousDayOHLC(symbol string) (high, low, closePx float64, err error) {
	bars, err := FetchIntradayBars(symbol, "1Day", 2, "")
	if err != nil {
		return 0, 0, 0, err
	}
	if len(bars) == 0 {
		return 0, 0, 0, fmt.Errorf("no daily bars for %s", symbol)
	}

	// When two bars came back the first is the prior session; a single bar
	// is the best available approximation.
	prev := bars[0]
	if len(bars) >= 2 {
		prev = bars[len(bars)-2]
	}
	return prev.High, prev.Low, prev.Close, nil
}

func timeframeToDur(tf string) time.Duration {
	switch tf {
	case "1Min":
		return time.Minute
	case "3Min":
		return 3 * time.Minute
	case "5Min":
		return 5 * time.Minute
	case "10Min":
		return 10 * time.Minute
	case "30Min":
		return 30 * time.Minute
	case "1Hour":
		return time.Hour
	case "1Day":
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BarCache accumulates the session's bars per symbol so each polling tick
// only appends instead of refetching the whole day.
type BarCache struct {
	mu   sync.RWMutex
	bars map[string][]types.Bar
}

func NewBarCache() *BarCache {
	return &BarCache{bars: make(map[string][]types.Bar)}
}

func (c *BarCache) Get(symbol string) []types.Bar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bars[symbol]
}

func (c *BarCache) Set(symbol string, bars []types.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[symbol] = bars
}

func (c *BarCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars = make(map[string][]types.Bar)
}

var alpacaClient *alpaca.Client

func InitAlpacaClient() error {
	apiKey := os.Getenv("ALPACA_API_KEY")
	secretKey := os.Getenv("ALPACA_API_SECRET")

	if apiKey == "" || secretKey == "" {
		return fmt.Errorf("ALPACA_API_KEY or ALPACA_API_SECRET not set")
	}

	alpacaClient = alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: secretKey,
		BaseURL:   "https://paper-api.alpaca.markets",
	})

	return nil
}

func GetAlpacaClient() *alpaca.Client {
	return alpacaClient
}
