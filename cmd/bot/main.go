package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/chatcontext"
	"github.com/sylvia-tgbot-go/internal/config"
	"github.com/sylvia-tgbot-go/internal/engine"
	"github.com/sylvia-tgbot-go/internal/i18n"
	"github.com/sylvia-tgbot-go/internal/middleware"
	"github.com/sylvia-tgbot-go/internal/mood"
	"github.com/sylvia-tgbot-go/internal/persona"
	"github.com/sylvia-tgbot-go/internal/policy"
	"github.com/sylvia-tgbot-go/internal/services/generation"
	"github.com/sylvia-tgbot-go/internal/services/storage"
	"github.com/sylvia-tgbot-go/internal/transport/telegram"
	"github.com/sylvia-tgbot-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		// It's okay if .env doesn't exist
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting persona bot...")

	mood.ValidateRanges(cfg.Moods, log)

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bot")
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historyStore, err := storage.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize history storage")
	}

	contextStore := chatcontext.NewStore(
		cfg.Storage.Memory.DefaultExpiration,
		cfg.Storage.Memory.CleanupInterval,
		log,
	)

	pers := persona.Load(&cfg.Persona, log)
	clock := mood.NewClock(cfg.Moods)
	genClient := generation.NewClient(&cfg.Generation, log)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	decision := policy.NewReplyDecision(cfg, rand.New(rand.NewSource(time.Now().UnixNano())), log)
	metrics := middleware.NewMetrics()

	planner := engine.NewPlanner(cfg, contextStore, historyStore, clock, decision, genClient, pers, rng, metrics, log)

	rateLimiter := middleware.NewRateLimiter(cfg, log)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	handler := telegram.NewHandler(cfg, bot, planner, rateLimiter, localizer, metrics, log)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for update := range updates {
			if err := handler.HandleUpdate(ctx, &update); err != nil {
				log.WithError(err).Error("Failed to handle update")
			}
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received")

	cancel()

	// Give in-flight turns time to finish
	time.Sleep(2 * time.Second)

	log.Info("Bot stopped")
}
