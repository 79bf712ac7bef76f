package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	MinScrapeInterval = 5 * time.Minute
	MaxCatalogPages   = 50
)

type Config struct {
	CatalogURL     string
	DataDir        string
	SnapshotPath   string
	DatabaseURL    string // empty disables the Postgres sink
	RabbitMQURL    string // empty disables event publishing
	LogLevel       string
	LogFormat      string
	ScrapeInterval time.Duration
	HTTPTimeout    time.Duration
	MaxPages       int
	MetricsPort    string

	// AllowEmptyCatalog lets a zero-record scrape through as a real mass
	// disappearance. Off by default: an empty scrape aborts the run.
	AllowEmptyCatalog bool

	// BootstrapOnStoreError treats an unreadable previous snapshot as a
	// first run. Off by default: corrupt is not the same as missing.
	BootstrapOnStoreError bool
}

func Load() *Config {
	_ = godotenv.Load()

	interval := time.Duration(getEnvInt("SCRAPE_INTERVAL_MIN", 60)) * time.Minute
	if interval < MinScrapeInterval {
		slog.Warn("SCRAPE_INTERVAL_MIN below safety floor. Clamping", "requested", interval, "floor", MinScrapeInterval)
		interval = MinScrapeInterval
	}

	maxPages := getEnvInt("MAX_CATALOG_PAGES", 20)
	if maxPages > MaxCatalogPages {
		slog.Warn("MAX_CATALOG_PAGES exceeds safety limit. Clamping to maximum", "requested", maxPages, "limit", MaxCatalogPages)
		maxPages = MaxCatalogPages
	} else if maxPages < 1 {
		maxPages = 1
	}

	return &Config{
		CatalogURL:            getEnv("CATALOG_URL", "https://www.apple.com/uk/shop/refurbished/mac"),
		DataDir:               getEnv("DATA_DIR", "data"),
		SnapshotPath:          getEnv("SNAPSHOT_PATH", "data/snapshot.json"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		LogLevel:              getEnv("LOG_LEVEL", "INFO"),
		LogFormat:             getEnv("LOG_FORMAT", "TEXT"),
		ScrapeInterval:        interval,
		HTTPTimeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SEC", 30)) * time.Second,
		MaxPages:              maxPages,
		MetricsPort:           getEnv("METRICS_PORT", "9091"),
		AllowEmptyCatalog:     getEnvBool("ALLOW_EMPTY_CATALOG", false),
		BootstrapOnStoreError: getEnvBool("BOOTSTRAP_ON_STORE_ERROR", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
