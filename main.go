package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fazecat/intraday/Internal/bot"
	datafeed "github.com/fazecat/intraday/Internal/database"
	"github.com/fazecat/intraday/Internal/handlers/execution"
	"github.com/fazecat/intraday/Internal/utils/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	if err := datafeed.InitDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer datafeed.CloseDatabase()

	if err := datafeed.InitAlpacaClient(); err != nil {
		log.Fatalln(err)
	}
	client := datafeed.GetAlpacaClient()

	account, err := client.GetAccount()
	if err != nil {
		log.Fatalf("Failed to fetch account: %v", err)
	}
	capital, _ := account.Equity.Float64()
	log.Printf("✅ Account connected | Equity: %.2f\n", capital)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("⚠️ Could not load config.yaml, using defaults: %v\n", err)
		cfg = config.Default()
	}

	executor := execution.NewAlpacaExecutor(client, cfg)
	b := bot.New(cfg, executor, capital)

	if err := b.PrepareDay(); err != nil {
		log.Fatalf("Failed to prepare trading day: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot stopped: %v", err)
	}
}
