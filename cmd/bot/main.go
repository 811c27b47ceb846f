package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"litter_reminder_bot/internal/app"
	"litter_reminder_bot/internal/domain/schedule"
	"litter_reminder_bot/internal/infra/config"
	idb "litter_reminder_bot/internal/infra/database"
	"litter_reminder_bot/internal/infra/logger"
	"litter_reminder_bot/internal/infra/scheduler"
	"litter_reminder_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. Store: %s, Environment: %s, Owner ID: %d",
		cfg.StoreDriver, cfg.Environment, cfg.OwnerTelegramID)

	// Open the cycle store and bring the schema to the current version
	// before anything touches it.
	dsn := cfg.DatabaseURL
	if idb.Driver(cfg.StoreDriver) == idb.DriverSQLite {
		dsn = cfg.SQLitePath
	}
	db, err := idb.Open(idb.Driver(cfg.StoreDriver), dsn)
	if err != nil {
		log.Fatalf("FATAL: Could not open cycle store: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, log); err != nil {
		log.Fatalf("FATAL: Could not migrate cycle store: %v", err)
	}
	log.Info("Cycle store opened and migrated.")

	cycleRepo := idb.NewCycleRepository(db)
	settingsRepo, err := idb.NewSettingsRepository(db)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize settings store: %v", err)
	}
	alertQueue, err := idb.NewAlertQueue(db)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize alert queue: %v", err)
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithField("component", "telebot")
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender", c.Sender().ID)
			}
			entry.Error(err)
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("FATAL: Could not create Telegram bot: %v", err)
	}

	client := telegram.NewTelebotAdapter(bot, nil)
	notifier := telegram.NewNotifier(client, alertQueue, cfg.OwnerTelegramID, log)
	taskList := telegram.NewTaskList(client, cfg.TasksChatID, log)

	schedulingService := schedule.NewDefaultService(time.Local)
	cycleService := app.NewCycleService(cycleRepo, settingsRepo, schedulingService, notifier, taskList, log)
	settingsService := app.NewSettingsService(settingsRepo, notifier, taskList, cfg.OwnerTelegramID)

	alertScheduler := scheduler.NewAlertScheduler(notifier, log, cfg.CronSpecAlertDispatch)
	if err := alertScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start alert scheduler: %v", err)
	}

	telegram.RegisterHandlers(ctx, bot, cycleService, settingsService, cfg.OwnerTelegramID)
	log.Info("Handlers registered. Bot is starting...")

	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	alertScheduler.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully.")
}
