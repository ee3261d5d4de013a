package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/common/clock"
	"github.com/DoyleJ11/buzzer-backend/internal/config"
	"github.com/DoyleJ11/buzzer-backend/internal/contentgen"
	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/httpapi"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/logging"
	"github.com/DoyleJ11/buzzer-backend/internal/packs"
	"github.com/DoyleJ11/buzzer-backend/internal/ws"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := config.NewCommand(&config.Config{}, version, run)
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openPackStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// The hub outlives the signal context; it is stopped explicitly below.
	h := hub.NewHub(context.Background(), hub.Config{
		RoomTTL:       cfg.RoomTTL,
		SweepInterval: cfg.SweepInterval,
		Rules:         engine.Rules{StrictFinal: cfg.StrictFinal},
		Logger:        log.Named("hub"),
	})

	gen := contentgen.NewGemini(contentgen.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
		Logger:  log.Named("gemini"),
	})
	if cfg.GeminiAPIKey == "" {
		log.Warn("no gemini api key, content generation disabled")
	}

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:       h,
		Generator: gen,
		Packs:     store,
		PublicURL: cfg.PublicURL,
		Logger:    log.Named("http"),
		WS: ws.Options{
			Logger:         log.Named("ws"),
			ClientBuffer:   cfg.ClientBuffer,
			Heartbeat:      cfg.Heartbeat,
			OriginPatterns: cfg.AllowedOrigins,
		},
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("pack_store", cfg.PackStore))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Rooms first so open sockets see their outboxes close.
	h.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func openPackStore(cfg *config.Config) (packs.Store, func(), error) {
	clk := &clock.DefaultClock{}
	noop := func() {}

	switch cfg.PackStore {
	case config.PackStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := packs.NewRedis(&packs.RedisConfig{RedisClient: client, Clock: clk})
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return store, func() { _ = client.Close() }, nil

	case config.PackStorePostgres:
		db, err := packs.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store, err := packs.NewPostgres(&packs.PostgresConfig{DB: db, Clock: clk})
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil

	default:
		return packs.NewMemory(clk), noop, nil
	}
}
