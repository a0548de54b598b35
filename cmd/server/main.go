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

	"ct-preinstall/internal/cache"
	"ct-preinstall/internal/config"
	"ct-preinstall/internal/conformity"
	"ct-preinstall/internal/database"
	"ct-preinstall/internal/logger"
	"ct-preinstall/internal/notify"
	"ct-preinstall/internal/server"
	"ct-preinstall/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, "ct-preinstall")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()
	zap.ReplaceGlobals(lg)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	policy, err := cfg.Policy()
	if err != nil {
		lg.Fatal("invalid evaluation policy", zap.Error(err))
	}
	catalog, err := conformity.NewCatalog(policy)
	if err != nil {
		lg.Fatal("build check catalog", zap.Error(err))
	}
	lg.Info("evaluation policy loaded",
		zap.Float64("pass_threshold", policy.PassThreshold),
		zap.Float64("safety_factor", policy.SafetyFactor),
	)

	if err := database.Init(cfg.DBDSN, lg); err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	if cfg.SeedCatalog {
		if n, err := database.SeedCatalogIfEmpty(database.DB, lg); err != nil {
			lg.Error("seed scanner catalog", zap.Error(err))
		} else if n > 0 {
			lg.Info("scanner catalog seeded", zap.Int("models", n))
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	matrixCache := cache.NewMatrixCache(redisClient, cfg.MatrixCacheTTL, lg)
	if matrixCache.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := matrixCache.Ping(pingCtx); err != nil {
			lg.Warn("redis unavailable, matrix cache will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	notifier, closeNotifiers := buildNotifier(cfg, lg)
	defer closeNotifiers()

	svc := service.NewReportService(database.DB, catalog, matrixCache, notifier, lg)

	r, err := server.NewRouter(cfg.SessionSecret, svc, lg)
	if err != nil {
		lg.Fatal("router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		lg.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func buildNotifier(cfg *config.Config, lg *zap.Logger) (notify.Notifier, func()) {
	var (
		notifiers notify.Multi
		closers   []func() error
	)

	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.WebhookURL, lg))
		lg.Info("webhook notifications enabled")
	}
	if cfg.Notify.DiscordToken != "" {
		d, err := notify.NewDiscord(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			lg.Error("discord notifications disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, d)
			closers = append(closers, d.Close)
			lg.Info("discord notifications enabled", zap.String("channel", cfg.Notify.DiscordChannelID))
		}
	}

	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}
	if len(notifiers) == 0 {
		return notify.Nop{}, closeAll
	}
	return notifiers, closeAll
}
