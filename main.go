package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"autoresponder/internal/common/logging"
	"autoresponder/internal/common/ratelimit"
	"autoresponder/internal/config"
	"autoresponder/internal/cooldown"
	"autoresponder/internal/engine"
	"autoresponder/internal/history"
	"autoresponder/internal/match"
	"autoresponder/internal/remote"
	"autoresponder/internal/respond"
	"autoresponder/internal/rules"
	"autoresponder/internal/server"
	"autoresponder/internal/settings"
	"autoresponder/internal/watch"
)

// logSender stands in for the host chat-client's send primitive when the
// engine runs standalone: outbound responses go to the log.
type logSender struct {
	logger logging.Logger
}

func (s *logSender) Send(destinationID, text string) error {
	s.logger.Info("Outbound response",
		logging.String("destination", destinationID),
		logging.String("text", text),
	)
	return nil
}

func main() {
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Settings: missing or broken file falls back to defaults.
	settingsStore := settings.NewStore(cfg.SettingsPath, logger)
	if err := settingsStore.Load(); err != nil {
		logger.Warn("Running with default settings", logging.Err(err))
	}

	// Rules: bootstrap an example file on first run, then load it.
	ruleStore := rules.NewStore(cfg.RulesPath, logger)
	if err := ruleStore.Bootstrap(); err != nil {
		log.Fatalf("Failed to bootstrap rule file: %v", err)
	}
	if err := ruleStore.Load(nil); err != nil {
		logger.Warn("Starting with empty rule set", logging.Err(err))
	}

	tracker, err := cooldown.NewTracker(cooldown.Config{
		RedisAddress:  cfg.RedisAddress,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDBNumber(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize cooldown tracker: %v", err)
	}

	// Channel directory follows the settings file across reloads.
	directory := respond.NewStaticDirectory()
	directory.SetChannels(settingsStore.Current().Channels)
	settingsStore.OnReload(func(current settings.Settings) {
		directory.SetChannels(current.Channels)
	})

	var recorder engine.Recorder
	var historyStore *history.Store
	if cfg.HistoryPath != "" {
		historyStore, err = history.NewStore(cfg.HistoryPath, logger)
		if err != nil {
			log.Fatalf("Failed to open history store: %v", err)
		}
		defer historyStore.Close()
		recorder = historyStore
	}

	dispatcher := respond.NewDispatcher(&logSender{logger: logger}, directory, logger)
	handler := engine.NewHandler(ruleStore, tracker, match.NewMatcher(), dispatcher, settingsStore, recorder, logger)

	importer := remote.NewImporter(ruleStore, settingsStore, nil, logger)

	refresher := remote.NewRefresher(importer, logger)
	if cfg.RefreshSchedule != "" {
		if err := refresher.Start(cfg.RefreshSchedule); err != nil {
			log.Fatalf("Invalid REFRESH_SCHEDULE: %v", err)
		}
		defer refresher.Stop()
	}

	// Hot reload: file changes re-read rules (clearing cooldowns) and
	// settings.
	watcher, err := watch.New(logger)
	if err != nil {
		log.Fatalf("Failed to start file watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Watch(cfg.RulesPath, func() {
		if err := ruleStore.Load(nil); err != nil {
			logger.Warn("Rule reload failed, keeping previous rules", logging.Err(err))
		}
	}); err != nil {
		log.Fatalf("Failed to watch rule file: %v", err)
	}
	if err := watcher.Watch(cfg.SettingsPath, func() {
		if err := settingsStore.Load(); err != nil {
			logger.Warn("Settings reload failed", logging.Err(err))
		}
	}); err != nil {
		log.Fatalf("Failed to watch settings file: %v", err)
	}

	var limiter *ratelimit.KeyedLimiter
	if cfg.RateLimitEnabled {
		limiterConfig := ratelimit.DefaultConfig()
		limiterConfig.RequestsPerSecond = cfg.RateLimitRPSValue()
		limiterConfig.BurstSize = cfg.RateLimitBurstValue()
		limiter, err = ratelimit.NewKeyedLimiter(limiterConfig)
		if err != nil {
			log.Fatalf("Invalid rate limit configuration: %v", err)
		}
	}

	admin := server.New(ruleStore, settingsStore, importer, handler, historyStore, limiter, logger)
	srv := admin.HTTPServer(cfg.Port)

	go func() {
		fmt.Printf("Admin API listening on port %s...\n", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	fmt.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server exited")
}
