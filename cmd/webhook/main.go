package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
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
	"github.com/sylvia-tgbot-go/internal/transport/webhook"
	"github.com/sylvia-tgbot-go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	botUsername := flag.String("bot-username", "", "Bot username used for mention detection")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
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

	log.Info("Starting webhook server...")

	mood.ValidateRanges(cfg.Moods, log)

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
			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	server := webhook.NewServer(cfg, planner, clock, rateLimiter, localizer, metrics, *botUsername, log)

	log.WithField("port", cfg.Bot.Webhook.Port).Info("Webhook server listening")
	if err := server.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("Webhook server failed")
	}
}
