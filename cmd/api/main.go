package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/discovery-service/internal/adapter/chromedp_crawler"
	"github.com/user/discovery-service/internal/adapter/heroapi"
	"github.com/user/discovery-service/internal/adapter/httpfetch"
	"github.com/user/discovery-service/internal/adapter/openai"
	"github.com/user/discovery-service/internal/adapter/postgres"
	redis_adapter "github.com/user/discovery-service/internal/adapter/redis"
	"github.com/user/discovery-service/internal/adapter/searchapi"
	"github.com/user/discovery-service/internal/delivery/http/handler"
	"github.com/user/discovery-service/internal/delivery/http/router"
	"github.com/user/discovery-service/internal/repository"
	"github.com/user/discovery-service/internal/usecase"
	"github.com/user/discovery-service/pkg/config"
	"github.com/user/discovery-service/pkg/logger"
	"github.com/user/discovery-service/pkg/metrics"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	// --- Logger ---
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	// --- Database Connections ---
	ctx := context.Background()

	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Repositories ---
	pageRepo := postgres.NewPageRepo(dbpool)
	extractionRepo := postgres.NewExtractionRepo(dbpool)
	runRepo := postgres.NewRunRepo(dbpool)
	auditRepo := postgres.NewAuditRepo(dbpool)
	seenHashRepo := redis_adapter.NewSeenHashRepo(rdb)

	// --- Providers ---
	var crawler repository.CrawlProvider
	switch cfg.CrawlerMode {
	case "browser":
		crawler, err = chromedp_crawler.NewChromedpCrawler(cfg.MaxConcurrency, cfg.PageLoadTimeout)
		if err != nil {
			slog.Error("Unable to start browser crawler", "error", err)
			os.Exit(1)
		}
	default:
		crawler = httpfetch.NewFetcher(cfg.PageLoadTimeout)
	}
	discovery := searchapi.NewClient(cfg.SearchEndpoint, cfg.SearchAPIKey, cfg.ProviderTimeout)
	extractor := openai.NewExtractor(cfg.OpenAIEndpoint, cfg.OpenAIKey, cfg.OpenAIModel, cfg.ProviderTimeout)
	hero := heroapi.NewClient(cfg.HeroEndpoint, cfg.HeroAPIKey, cfg.ProviderTimeout)

	// --- Use Cases ---
	orchestrator := usecase.NewOrchestrator(
		pageRepo, extractionRepo, runRepo, auditRepo, seenHashRepo,
		discovery, crawler, extractor, hero,
		usecase.Options{
			Workers:         cfg.MaxConcurrency,
			CrawlRatePerSec: cfg.CrawlRatePerSec,
			ProviderTimeout: cfg.ProviderTimeout,
			DefaultDuration: cfg.DefaultRunDuration,
			DefaultMaxPages: cfg.DefaultMaxPages,
		},
	)
	runQuery := usecase.NewRunQuery(runRepo, auditRepo)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(orchestrator, runQuery)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down, draining in-flight runs")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(stopCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	orchestrator.Wait()
}
