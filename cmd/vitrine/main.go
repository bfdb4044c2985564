package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"

	"github.com/soukhub/vitrine/internal/adapter/fsm"
	"github.com/soukhub/vitrine/internal/adapter/imagestore"
	"github.com/soukhub/vitrine/internal/adapter/memcache"
	"github.com/soukhub/vitrine/internal/adapter/rediscache"
	"github.com/soukhub/vitrine/internal/adapter/sqlite"
	"github.com/soukhub/vitrine/internal/app"
	"github.com/soukhub/vitrine/internal/clock"
	"github.com/soukhub/vitrine/internal/domain"

	handler "github.com/soukhub/vitrine/internal/adapter/http"
	otelx "github.com/soukhub/vitrine/internal/adapter/otel"
	riverx "github.com/soukhub/vitrine/internal/adapter/river"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("vitrine: %v", err)
	}
}

func run() error {
	port := envOrDefault("PORT", "8080")
	dbPath := envOrDefault("DATABASE_PATH", "vitrine.db")
	imagesDir := envOrDefault("IMAGES_DIR", "images")
	redisAddr := os.Getenv("REDIS_ADDR")
	statsTTL := envDuration("STATS_CACHE_TTL", 30*time.Second)

	logger := slog.Default()
	ctx := context.Background()

	// --- Observability ---
	providers, err := otelx.Setup(ctx, otelx.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otelx.OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	directory := sqlite.NewSellerDirectory(db)
	auditSink := sqlite.NewAuditLog(db)

	images, err := imagestore.New(imagesDir)
	if err != nil {
		return fmt.Errorf("image store: %w", err)
	}

	queue, err := riverx.Setup(ctx, db, images, auditSink)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Stop(stopCtx); err != nil {
			logger.Error("river stop", "error", err)
		}
	}()

	var cache domain.StatsCache
	if redisAddr != "" {
		cache = rediscache.New(redis.NewClient(&redis.Options{Addr: redisAddr}), statsTTL, logger)
	} else {
		cache = memcache.New(statsTTL)
	}

	// --- Application ---
	tracedRepo := otelx.NewTracingRepository(repo)
	stats := app.NewStatsAggregator(tracedRepo, cache)
	svc := app.NewSlotService(
		tracedRepo,
		fsm.New(),
		otelx.NewTracingDirectory(directory),
		riverx.NewQueuedCleaner(queue),
		otelx.NewTracingAuditor(riverx.NewQueuedAuditor(queue)),
		stats,
		clock.NewSystem(),
		logger,
	)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(otelchi.Middleware("vitrine", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("vitrine", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vitrine listening", "port", port)
		logger.Info("API docs", "url", "http://localhost:"+port+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	logger.Info("stopped")
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
