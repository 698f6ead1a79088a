package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/pricewatch/pricewatch/internal/api"
	"github.com/pricewatch/pricewatch/internal/browser"
	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/fetch"
	"github.com/pricewatch/pricewatch/internal/jobs"
	"github.com/pricewatch/pricewatch/internal/scraper"
)

func main() {
	// Load configuration first so the log level applies everywhere
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Scripted browser for retailers that need rendered pages. Startup
	// continues without it; those extractions fail cleanly instead.
	b, err := browser.New(&browser.Options{
		Headless:    cfg.Scraper.Headless,
		Timeout:     cfg.Scraper.PageLoadTimeout,
		MaxSessions: int64(cfg.Scraper.MaxSessions),
	})
	if err != nil {
		logger.Warn("scripted browser unavailable", "error", err)
		b = nil
	} else {
		defer b.Close()
	}

	// Redis + relay for outbox processing
	var relay *database.Relay
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		relay = database.NewRelay(db, redisClient, logger, database.RelayConfig{
			PollInterval: cfg.Relay.PollInterval,
			BatchSize:    cfg.Relay.BatchSize,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("relay stopped with error", "error", err)
			}
		}()
	}

	// Extraction service
	fetcher := fetch.New(cfg.Scraper.FetchTimeout, logger)
	scraperService := scraper.NewService(fetcher, b, scraper.Options{
		SnapshotDir: cfg.Scraper.SnapshotDir,
	}, logger)

	// Background rescraper
	rescraper := jobs.NewRescraper(db, scraperService, logger, cfg.Scraper.RescrapeInterval)
	go func() {
		if err := rescraper.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("rescraper stopped with error", "error", err)
		}
	}()

	handlers := api.NewHandlers(db, scraperService, logger)

	// Chi router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]interface{}{
			"status": "ok",
		}
		status := http.StatusOK

		if relay != nil {
			pendingCount, _ := relay.GetPendingCount(r.Context())
			deadLetterCount, _ := relay.GetDeadLetterCount(r.Context())

			health["outbox"] = map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			}

			if pendingCount > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if deadLetterCount > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Post("/add-product", handlers.AddProduct)
	r.Get("/products", handlers.ListProducts)
	r.Get("/product/{productID}/history", handlers.GetHistory)
	r.Delete("/delete-product/{productID}", handlers.DeleteProduct)
	r.Post("/rescrape/{productID}", handlers.Rescrape)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
