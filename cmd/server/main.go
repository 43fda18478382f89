package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/verdantdev/dispensary-scraper/internal/api"
	"github.com/verdantdev/dispensary-scraper/internal/config"
	"github.com/verdantdev/dispensary-scraper/internal/database"
	"github.com/verdantdev/dispensary-scraper/internal/events"
	"github.com/verdantdev/dispensary-scraper/internal/render"
	"github.com/verdantdev/dispensary-scraper/internal/scraper"
	"github.com/verdantdev/dispensary-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logg.Info("starting scraper server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	browser, err := render.NewPlaywrightBrowser(&render.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	})
	if err != nil {
		logg.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer browser.Close()

	metrics := scraper.NewMetrics()
	service, err := scraper.NewService(cfg, browser, logg, metrics)
	if err != nil {
		logg.Error("failed to initialize scraper", "error", err)
		os.Exit(1)
	}

	var loader scraper.ResultLoader
	db, err := database.Connect(ctx, cfg.Database, logg)
	if err != nil {
		logg.Warn("database unavailable, persistence disabled", "error", err)
	} else {
		defer db.Close()
		loader = database.NewLoader(db.Pool(), cfg.Site.Tables, logg)
	}

	var publisher scraper.SessionPublisher
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		publisher = events.NewPublisher(client, cfg.Redis.Stream, logg)
	}

	handlers := api.NewHandlers(service, loader, publisher, logg)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	router.Get("/healthz", handlers.Health)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", handlers.RunScrape)
	})

	server := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logg.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error("server shutdown failed", "error", err)
		}
		cancel()
	}()

	logg.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error("server failed", "error", err)
		os.Exit(1)
	}
}
