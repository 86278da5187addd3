package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	datafeed "github.com/fazecat/intraday/Internal/database"
	"github.com/fazecat/intraday/Internal/strategy"
	"github.com/fazecat/intraday/Internal/utils/config"
	"github.com/fazecat/intraday/cmd/api/internal"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../../.env")

	if err := datafeed.InitDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer datafeed.CloseDatabase()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("⚠️ Could not load config.yaml, using defaults: %v\n", err)
		cfg = config.Default()
	}

	capital := 100000.0
	if err := datafeed.InitAlpacaClient(); err != nil {
		log.Printf("Warning: Alpaca client initialization failed: %v\n", err)
	} else if account, err := datafeed.GetAlpacaClient().GetAccount(); err != nil {
		log.Printf("Warning: Could not fetch account: %v\n", err)
	} else {
		capital, _ = account.Equity.Float64()
		log.Println("Alpaca account connected successfully")
	}

	jwtManager := internal.NewJWTManager()

	apiServer := &internal.API{
		Config:          cfg,
		PositionManager: strategy.NewPositionManager(),
		JWTManager:      jwtManager,
		Capital:         capital,
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(internal.CorsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		internal.WriteJSON(w, http.StatusOK, "healthy")
	})

	// Public routes
	r.Get("/api/positions", apiServer.HandleGetPositions)
	r.Get("/api/risk", apiServer.HandleGetRiskStatus)
	r.Get("/api/stats", apiServer.HandleGetStats)
	r.Get("/api/trades", apiServer.HandleGetTrades)
	r.Get("/api/trades/statistics", apiServer.HandleTradeStatistics)
	r.Post("/api/token", apiServer.HandleGenerateToken)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting API server on :%s\n", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
