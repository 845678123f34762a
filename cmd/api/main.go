package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediaforge/internal/adapter/repo"
	"mediaforge/internal/credits"
	"mediaforge/internal/http/handlers"
	"mediaforge/internal/http/httpapi"
	"mediaforge/internal/infra"
	"mediaforge/internal/infra/geoip"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/providers"
	"mediaforge/internal/refs"
	"mediaforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		// Logger config is not available yet; write plainly and exit.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := infra.NewLogger(cfg.AppEnv)

	countries, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		log.Warn().Err(err).Msg("geoip disabled")
		countries = nil
	}

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	store, err := storage.NewClient(storage.Options{
		BaseURL:    cfg.StorageURL,
		ServiceKey: cfg.StorageServiceKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("storage client init failed")
	}

	ledger := credits.NewLedger(credits.Options{
		BaseURL: cfg.BalanceServiceURL,
		Logger:  log,
	})

	resolver := refs.NewResolver(store, cfg.UploadBucket, cfg.OutputBucket, cfg.SignedURLTTL, log)

	falClient := providers.NewFalClient(providers.FalOptions{
		BaseURL: cfg.FalBaseURL,
		APIKey:  cfg.FalAPIKey,
	})
	runwayClient := providers.NewRunwayClient(providers.RunwayOptions{
		BaseURL: cfg.RunwayBaseURL,
		APIKey:  cfg.RunwayAPIKey,
	})

	jobs := repo.NewJobRepository(pool)
	logs := repo.NewGenerationLogRepository(pool)

	orch := orchestrator.NewService(orchestrator.Config{
		Logger:          log,
		Credits:         ledger,
		Refs:            resolver,
		Sync:            providers.NewSyncDriver(falClient, cfg.SyncPollInterval, cfg.SyncPollBudget, log),
		Async:           runwayClient,
		Jobs:            jobs,
		Logs:            logs,
		Store:           store,
		OutputBucket:    cfg.OutputBucket,
		OutputPublic:    cfg.OutputBucketPublic,
		SignedTTL:       cfg.SignedURLTTL,
		PublicBaseURL:   cfg.PublicBaseURL,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	app := handlers.NewApp(log, cfg, orch, jobs, store, countries)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	if closer, ok := countries.(*geoip.Resolver); ok {
		_ = closer.Close()
	}
}
