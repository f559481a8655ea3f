package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brisalabs/salon-ai-platform/internal/api/router"
	appconfig "github.com/brisalabs/salon-ai-platform/internal/config"
	"github.com/brisalabs/salon-ai-platform/internal/contexts"
	"github.com/brisalabs/salon-ai-platform/internal/conversation"
	"github.com/brisalabs/salon-ai-platform/internal/delivery"
	"github.com/brisalabs/salon-ai-platform/internal/http/handlers"
	"github.com/brisalabs/salon-ai-platform/internal/intent"
	"github.com/brisalabs/salon-ai-platform/internal/llm"
	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/internal/observability/metrics"
	"github.com/brisalabs/salon-ai-platform/internal/scheduling"
	"github.com/brisalabs/salon-ai-platform/internal/templates"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := pgxpool.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(rootCtx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	conversationMetrics := metrics.NewConversationMetrics(registry)

	// Outbound WhatsApp sender
	var sender messaging.Sender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)
		logger.Info("twilio whatsapp sender configured", "from", cfg.TwilioWhatsAppFrom)
	} else {
		sender = messaging.NewNopSender(logger)
		logger.Warn("twilio credentials missing, outbound messages are dropped")
	}

	// LLM collaborator (optional)
	var llmClient llm.Client
	if cfg.OpenAIAPIKey != "" {
		llmClient = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
		logger.Info("llm client configured", "model", cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY missing, running keyword-only classification")
	}

	// Inbound dedup (optional)
	var deduper conversation.Deduper = conversation.NopDeduper{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(rootCtx).Err(); err != nil {
			logger.Warn("redis unreachable, webhook dedup disabled", "error", err)
		} else {
			deduper = conversation.NewRedisDeduper(redisClient, cfg.DedupTTL)
		}
	}

	// Domain services
	catalog := templates.NewCatalog()
	schedulingStore := scheduling.NewStore(pool)
	contextStore := contexts.NewStore(pool)
	deliveryStore := delivery.NewStore(pool)

	engine := scheduling.NewEngine(schedulingStore, scheduling.BusinessHours{
		Open:        cfg.BusinessOpen,
		Close:       cfg.BusinessClose,
		SlotMinutes: cfg.SlotMinutes,
	})
	deliveryScheduler := delivery.NewScheduler(deliveryStore, catalog, logger)
	lifecycle := delivery.NewLifecycle(deliveryScheduler, sender, catalog, time.Local, logger)
	booking := scheduling.NewBookingService(schedulingStore, engine, lifecycle, logger)
	classifier := intent.NewClassifier(llmClient, cfg.KeywordConfidence, logger).
		WithFallbackHook(conversationMetrics.ObserveLLMFallback)

	orchestrator := conversation.NewOrchestrator(
		contextStore, classifier, booking, engine, sender, llmClient,
		catalog, conversationMetrics, logger,
		conversation.Options{
			BusinessName: cfg.BusinessName,
			LLMMaxTokens: cfg.LLMMaxTokens,
			Location:     time.Local,
		},
	)
	dispatcher := conversation.NewDispatcher(orchestrator, deduper, cfg.TurnPartitions, cfg.TurnBufferSize, logger)
	dispatcher.Start(rootCtx)

	// Background workers
	deliveryWorker := delivery.NewWorker(deliveryStore, sender, logger).
		WithInterval(cfg.SweepInterval).
		WithBatchSize(cfg.SweepBatchSize).
		WithInterSendDelay(cfg.InterSendDelay).
		WithMetrics(conversationMetrics)
	go deliveryWorker.Run(rootCtx)

	sweeper := contexts.NewSweeper(contextStore, cfg.ContextIdleHours, cfg.IdleSweepEvery, logger)
	go sweeper.Run(rootCtx)

	// HTTP surface
	messagingHandler := messaging.NewHandler(dispatcher, cfg.DefaultCountryCode, cfg.WebhookSharedToken, logger)
	adminHandler := handlers.NewAdminHandler(contextStore, deliveryStore, booking, engine, logger)

	r := router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messagingHandler,
		AdminHandler:     adminHandler,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:  cfg.AdminAuthSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Drain queued turns before stopping the workers.
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("dispatcher shutdown incomplete", "error", err)
	}
	stop()

	logger.Info("server stopped")
}
