package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	// PublicBaseURL is the externally reachable base of this service, used to
	// build provider callback URLs.
	PublicBaseURL string

	StorageURL         string
	StorageServiceKey  string
	UploadBucket       string
	OutputBucket       string
	OutputBucketPublic bool
	SignedURLTTL       time.Duration

	BalanceServiceURL string

	FalBaseURL    string
	FalAPIKey     string
	RunwayBaseURL string
	RunwayAPIKey  string

	GeoIPDBPath string

	CORSAllowedOrigins []string

	SyncPollInterval time.Duration
	SyncPollBudget   time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		StorageURL:         getEnv("STORAGE_URL", "http://localhost:54321"),
		StorageServiceKey:  os.Getenv("STORAGE_SERVICE_KEY"),
		UploadBucket:       getEnv("UPLOAD_BUCKET", "user-uploads"),
		OutputBucket:       getEnv("OUTPUT_BUCKET", "generated-media"),
		OutputBucketPublic: getEnvBool("OUTPUT_BUCKET_PUBLIC", false),
		SignedURLTTL:       time.Second * time.Duration(getEnvInt("SIGNED_URL_TTL_SECONDS", 3600)),
		BalanceServiceURL:  os.Getenv("BALANCE_SERVICE_URL"),
		FalBaseURL:         getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		FalAPIKey:          os.Getenv("FAL_API_KEY"),
		RunwayBaseURL:      getEnv("RUNWAY_BASE_URL", "https://api.dev.runwayml.com"),
		RunwayAPIKey:       os.Getenv("RUNWAY_API_KEY"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SyncPollInterval:   time.Millisecond * time.Duration(getEnvInt("SYNC_POLL_INTERVAL_MS", 1200)),
		SyncPollBudget:     time.Second * time.Duration(getEnvInt("SYNC_POLL_BUDGET_SECONDS", 25)),
		RateLimitMax:       getEnvInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow:    time.Second * time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 10)),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// The write timeout bounds the whole invocation; the polling budget must
	// stay strictly under it so a slow provider never trips the hard kill.
	if cfg.SyncPollBudget >= cfg.HTTPWriteTimeout {
		return nil, fmt.Errorf("SYNC_POLL_BUDGET_SECONDS must be below HTTP_WRITE_TIMEOUT_SECONDS")
	}

	return cfg, nil
}

// Capabilities reports which external collaborators are configured. Exposed
// by the health endpoint; presence booleans only, never values.
func (c *Config) Capabilities() map[string]bool {
	return map[string]bool{
		"database":        c.DatabaseURL != "",
		"storage":         c.StorageServiceKey != "",
		"balance_service": c.BalanceServiceURL != "",
		"fal":             c.FalAPIKey != "",
		"runway":          c.RunwayAPIKey != "",
		"geoip":           c.GeoIPDBPath != "",
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
