// internal/infra/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken   string
	OwnerTelegramID int64
	TasksChatID     int64 // chat receiving the reminder task item; defaults to the owner chat

	StoreDriver string // "sqlite" or "postgres"
	DatabaseURL string // postgres DSN
	SQLitePath  string

	LogLevel    string
	Environment string

	// CronSpecAlertDispatch drives the sweep that delivers due alerts.
	CronSpecAlertDispatch string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	ownerIDStr := os.Getenv("OWNER_TELEGRAM_ID")
	if ownerIDStr == "" {
		return nil, fmt.Errorf("OWNER_TELEGRAM_ID is not set")
	}
	cfg.OwnerTelegramID, err = strconv.ParseInt(ownerIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OWNER_TELEGRAM_ID: %w", err)
	}

	if tasksChatStr := os.Getenv("TASKS_CHAT_ID"); tasksChatStr != "" {
		cfg.TasksChatID, err = strconv.ParseInt(tasksChatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TASKS_CHAT_ID: %w", err)
		}
	} else {
		cfg.TasksChatID = cfg.OwnerTelegramID
	}

	cfg.StoreDriver = strings.ToLower(os.Getenv("STORE_DRIVER"))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "sqlite"
	}
	switch cfg.StoreDriver {
	case "sqlite":
		cfg.SQLitePath = os.Getenv("SQLITE_PATH")
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "data/litter_reminder.db"
		}
	case "postgres":
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set (required for STORE_DRIVER=postgres)")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want sqlite or postgres)", cfg.StoreDriver)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.CronSpecAlertDispatch = os.Getenv("CRON_SPEC_ALERT_DISPATCH")
	if cfg.CronSpecAlertDispatch == "" {
		cfg.CronSpecAlertDispatch = "* * * * *" // every minute
	}

	return cfg, nil
}
