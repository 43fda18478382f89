package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/verdantdev/dispensary-scraper/internal/config"
	"github.com/verdantdev/dispensary-scraper/internal/database"
	"github.com/verdantdev/dispensary-scraper/internal/events"
	"github.com/verdantdev/dispensary-scraper/internal/models"
	"github.com/verdantdev/dispensary-scraper/internal/render"
	"github.com/verdantdev/dispensary-scraper/internal/scraper"
	"github.com/verdantdev/dispensary-scraper/pkg/logger"
)

func main() {
	var (
		maxStores  = flag.Int("stores", 0, "Cap on stores per category (0 = all)")
		categories = flag.String("categories", "", "Comma-separated subset of categories to scrape")
		persist    = flag.Bool("persist", false, "Bulk-load results into the database")
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logg.Info("starting dispensary scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logg.Info("shutdown signal received")
		cancel()
	}()

	subset, err := parseCategories(*categories)
	if err != nil {
		log.Fatalf("Invalid categories: %v", err)
	}

	browser, err := render.NewPlaywrightBrowser(&render.Options{
		Headless:       *headless && cfg.Browser.Headless,
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
	if *persist {
		db, err := database.Connect(ctx, cfg.Database, logg)
		if err != nil {
			logg.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		loader = database.NewLoader(db.Pool(), cfg.Site.Tables, logg)
	}

	var publisher scraper.SessionPublisher
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()
		publisher = events.NewPublisher(client, cfg.Redis.Stream, logg)
	}

	session := service.RunWorkflow(ctx, scraper.WorkflowOptions{
		MaxStores:  *maxStores,
		Categories: subset,
		Persist:    *persist,
	}, loader, publisher)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(session); err != nil {
		logg.Error("failed to encode session", "error", err)
		os.Exit(1)
	}

	if !session.Success {
		os.Exit(1)
	}
}

func parseCategories(raw string) ([]models.Category, error) {
	if raw == "" {
		return nil, nil
	}
	var subset []models.Category
	for _, name := range strings.Split(raw, ",") {
		category := models.Category(strings.TrimSpace(name))
		if !category.Valid() {
			return nil, &invalidCategoryError{name: string(category)}
		}
		subset = append(subset, category)
	}
	return subset, nil
}

type invalidCategoryError struct{ name string }

func (e *invalidCategoryError) Error() string {
	return "unknown category: " + e.name
}
