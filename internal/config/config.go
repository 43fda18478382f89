package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/verdantdev/dispensary-scraper/internal/models"
)

const defaultBaseURL = "https://www.trulieve.com"

type Config struct {
	Site     SiteConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// SiteConfig pins the target site layout: directory page, category
// pages, the region filter, and the category→table mapping. The tables
// are assumed to already exist; this system never creates schema.
type SiteConfig struct {
	BaseURL       string
	DirectoryURL  string
	Region        string
	CategoryURLs  map[models.Category]string
	Tables        map[models.Category]string
}

type ScraperConfig struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	PageTimeout       time.Duration
	MaxLoadMoreRounds int
	MaxStores         int
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr    string
	Stream  string
	Enabled bool
}

type ServerConfig struct {
	Host string
	Port string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	base := getEnvOrDefault("SITE_BASE_URL", defaultBaseURL)

	cfg := &Config{
		Site: SiteConfig{
			BaseURL:      base,
			DirectoryURL: base + "/dispensaries",
			Region:       getEnvOrDefault("SITE_REGION", "FL"),
			CategoryURLs: map[models.Category]string{
				models.CategoryWholeFlower: base + "/category/flower/whole-flower",
				models.CategoryPreRolls:    base + "/category/flower/pre-rolls",
				models.CategoryGroundShake: base + "/category/flower/ground-shake",
			},
			Tables: map[models.Category]string{
				models.CategoryWholeFlower: getEnvOrDefault("TABLE_WHOLE_FLOWER", "tl_scrape_whole_flower"),
				models.CategoryPreRolls:    getEnvOrDefault("TABLE_PRE_ROLLS", "tl_scrape_pre_rolls"),
				models.CategoryGroundShake: getEnvOrDefault("TABLE_GROUND_SHAKE", "tl_scrape_ground_shake"),
			},
		},
		Scraper: ScraperConfig{
			MinDelay:          getDurationOrDefault("SCRAPER_MIN_DELAY", 700*time.Millisecond),
			MaxDelay:          getDurationOrDefault("SCRAPER_MAX_DELAY", 1500*time.Millisecond),
			PageTimeout:       getDurationOrDefault("SCRAPER_PAGE_TIMEOUT", 20*time.Second),
			MaxLoadMoreRounds: getIntOrDefault("SCRAPER_MAX_LOAD_MORE", 60),
			MaxStores:         getIntOrDefault("SCRAPER_MAX_STORES", 0),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126 Safari/537.36"),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "dispensary_pricing"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Stream:  getEnvOrDefault("REDIS_STREAM", "stream:scrape_sessions"),
			Enabled: getBoolOrDefault("REDIS_ENABLED", false),
		},
		Server: ServerConfig{
			Host: getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("SITE_BASE_URL cannot be empty")
	}
	if c.Scraper.MinDelay > c.Scraper.MaxDelay {
		return fmt.Errorf("SCRAPER_MIN_DELAY cannot be greater than SCRAPER_MAX_DELAY")
	}
	if c.Scraper.MaxLoadMoreRounds < 1 {
		return fmt.Errorf("SCRAPER_MAX_LOAD_MORE must be at least 1")
	}
	if c.Scraper.MaxStores < 0 {
		return fmt.Errorf("SCRAPER_MAX_STORES cannot be negative")
	}
	for category, url := range c.Site.CategoryURLs {
		if url == "" {
			return fmt.Errorf("missing category URL for %q", category)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
