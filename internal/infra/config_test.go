package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.UploadBucket != "user-uploads" || cfg.OutputBucket != "generated-media" {
		t.Fatalf("bucket defaults mismatch: %q %q", cfg.UploadBucket, cfg.OutputBucket)
	}
	if cfg.SyncPollInterval != 1200*time.Millisecond {
		t.Fatalf("SyncPollInterval = %v", cfg.SyncPollInterval)
	}
	if cfg.RateLimitMax != 10 || cfg.RateLimitWindow != 10*time.Second {
		t.Fatalf("rate limit defaults mismatch: %d %v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error for missing DATABASE_URL")
	}
}

func TestLoadConfigRejectsBudgetAboveWriteTimeout(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SYNC_POLL_BUDGET_SECONDS", "90")
	t.Setenv("HTTP_WRITE_TIMEOUT_SECONDS", "60")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig expected error for poll budget above write timeout")
	}
}

func TestCapabilitiesHidesSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("FAL_API_KEY", "super-secret")
	t.Setenv("STORAGE_SERVICE_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	caps := cfg.Capabilities()
	if !caps["fal"] {
		t.Fatalf("capabilities should report fal as configured")
	}
	if caps["storage"] {
		t.Fatalf("capabilities should report storage as unconfigured")
	}
}
