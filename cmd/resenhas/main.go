package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resenhas/pkg/accounts"
	"resenhas/pkg/auth"
	"resenhas/pkg/circuitbreaker"
	"resenhas/pkg/config"
	"resenhas/pkg/database"
	"resenhas/pkg/logging"
	"resenhas/pkg/media"
	"resenhas/pkg/queue"
	"resenhas/pkg/social"
)

var (
	db         *gorm.DB
	cfg        config.Config
	tokens     *auth.Tokens
	socialSvc  *social.Service
	accountSvc *accounts.Service
)

func main() {
	config.LoadDotenv()
	var err error
	cfg, err = config.Load(os.Getenv("RESENHAS_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	slog.Info("starting resenhas service", "port", cfg.Port, "db_driver", cfg.DBDriver)

	db, err = database.Open(cfg)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}

	refreshStore, closeRefresh := newRefreshStore()
	defer closeRefresh()
	tokens = auth.NewTokens(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), refreshStore)

	mediaStore, err := newMediaStore()
	if err != nil {
		slog.Error("failed to init media storage", "err", err)
		os.Exit(1)
	}
	socialSvc = social.NewService(db)
	cleanup := queue.NewQueue(30 * time.Second)
	accountSvc = accounts.NewService(db, mediaStore, cfg.AllowedExtensions, cfg.MaxUploadBytes).WithRetryQueue(cleanup)

	if cfg.DBDriver != "postgres" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(newRouter(), cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("resenhas service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
	if n := cleanup.Size(); n > 0 {
		done := cleanup.Drain(ctx, mediaStore.Delete)
		slog.Info("retried pending media deletions", "pending", n, "deleted", done)
	}
}

// newRefreshStore uses Redis when configured and reachable, otherwise an
// in-process registry.
func newRefreshStore() (auth.RefreshStore, func()) {
	if cfg.RedisAddr == "" {
		slog.Info("refresh tokens kept in memory")
		return auth.NewMemoryRefreshStore(), func() {}
	}
	rs := auth.NewRedisRefreshStore(cfg.RedisAddr, cfg.RedisPassword)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, refresh tokens kept in memory", "addr", cfg.RedisAddr, "err", err)
		_ = rs.Close()
		return auth.NewMemoryRefreshStore(), func() {}
	}
	slog.Info("refresh tokens kept in redis", "addr", cfg.RedisAddr)
	return rs, func() { _ = rs.Close() }
}

// newMediaStore returns local disk storage, fronted by MinIO when an
// endpoint is configured.
func newMediaStore() (media.Store, error) {
	local, err := media.NewLocalStore(cfg.MediaRoot)
	if err != nil {
		return nil, err
	}
	if cfg.MinioEndpoint == "" {
		return local, nil
	}
	remote, err := media.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
	if err != nil {
		slog.Warn("minio unavailable, storing media on disk", "endpoint", cfg.MinioEndpoint, "err", err)
		return local, nil
	}
	slog.Info("storing media in minio", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	return media.NewResilientStore(remote, local, circuitbreaker.NewCircuitBreaker(5, 30*time.Second)), nil
}
