package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contract-server/internal/config"
	"contract-server/internal/logger"
	"contract-server/internal/service"
	"contract-server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx := context.Background()

	backend, cleanup, err := setupBackend(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer cleanup()
	zapLogger.Info("Storage backend ready", zap.String("backend", cfg.StorageBackend))

	catalog, err := setupCatalog(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to load challenge catalog", zap.Error(err))
	}

	layout := storage.Layout{GameVersion: cfg.GameVersion}
	profileStore := service.NewProfileStore(backend, layout, zapLogger, cfg.ProfileFlushInterval)
	sessionStore := service.NewSessionStore(backend, catalog, zapLogger)

	srv := newServer(cfg, zapLogger, profileStore, sessionStore)
	go func() {
		zapLogger.Info("Metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Metrics endpoint failed", zap.Error(err))
		}
	}()

	zapLogger.Info("Contract server started",
		zap.String("gameVersion", cfg.GameVersion),
		zap.Duration("profileFlushInterval", cfg.ProfileFlushInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Metrics endpoint shutdown failed", zap.Error(err))
	}
	if err := profileStore.ForceFlush(shutdownCtx); err != nil {
		zapLogger.Error("Failed to flush profiles on shutdown", zap.Error(err))
	}
	profileStore.Close()
	zapLogger.Info("Contract server stopped")
}

// newServer exposes the operational surface: prometheus exposition and a
// health probe. The gameplay transport that drives the stores is deployed as
// a separate service.
func newServer(cfg *config.Config, zapLogger *zap.Logger, profiles *service.ProfileStore, sessions *service.SessionStore) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok live_sessions=%d\n", sessions.LiveSessionCount())
	})
	mux.HandleFunc("/admin/flush", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := profiles.ForceFlush(r.Context()); err != nil {
			zapLogger.Error("Forced profile flush failed", zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
}

// setupCatalog loads the static challenge catalog when configured. Without
// one, saved sessions that reference challenge data fail to load.
func setupCatalog(cfg *config.Config, zapLogger *zap.Logger) (service.ProgressionCatalog, error) {
	if cfg.ChallengeCatalogPath == "" {
		zapLogger.Warn("No challenge catalog configured")
		return service.NewStaticCatalog(nil), nil
	}
	catalog, err := service.NewStaticCatalogFromFile(cfg.ChallengeCatalogPath)
	if err != nil {
		return nil, err
	}
	zapLogger.Info("Challenge catalog loaded", zap.String("path", cfg.ChallengeCatalogPath))
	return catalog, nil
}

// setupBackend builds the configured storage backend and returns it with its
// teardown func.
func setupBackend(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (storage.Backend, func(), error) {
	switch cfg.StorageBackend {
	case "fs":
		backend, err := storage.NewFSBackend(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() {}, nil
	case "sqlite":
		backend, err := storage.NewSqliteBackend(ctx, cfg.SqlitePath, zapLogger)
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { _ = backend.Close() }, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.GetDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		backend, err := storage.NewPgBackend(ctx, pool, zapLogger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return backend, func() { pool.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
