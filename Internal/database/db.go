package datafeed

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func InitDatabase() error {
	config := DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"), // Required - no default
		DBName:   getEnvOrDefault("DB_NAME", "intraday"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err = initializeSchema(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Println("Database connected successfully!")
	return nil
}

// initializeSchema creates the trade log table if it doesn't exist
func initializeSchema() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS trade_log (
		id SERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		entry_price TEXT NOT NULL,
		exit_price TEXT NOT NULL,
		pnl TEXT NOT NULL,
		reason TEXT,
		order_id TEXT,
		executed_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trade_log_symbol ON trade_log(symbol);
	CREATE INDEX IF NOT EXISTS idx_trade_log_executed_at ON trade_log(executed_at);
	`

	_, err := DB.Exec(schemaSQL)
	return err
}

func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func HealthCheck() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}
	return DB.Ping()
}
