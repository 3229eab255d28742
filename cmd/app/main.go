package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/db"
	httpServer "todo_api/internal/http"
	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"
	"todo_api/internal/metrics"
	"todo_api/internal/repository"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	if cfg.App.Env == "prod" || cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, dialect := db.Connect(cfg.Store)
	defer conn.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	version, err := db.NewMigrator(conn, dialect).Migrate(migrateCtx)
	cancel()
	if err != nil {
		logger.Fatal("schema migration failed", "error", err)
	}
	logger.Info("schema ready", "version", version)

	m := metrics.New()
	todos := service.NewTodoService(repository.NewTodoRepository(conn, dialect, m))

	r := httpServer.NewRouter(httpServer.Deps{
		Config:  cfg,
		Todos:   todos,
		Metrics: m,
		Limiter: newLimiter(cfg),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		logger.Info("server started", "port", cfg.HTTP.Port, "driver", dialect.Name, "auth", cfg.Auth.APIKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// newLimiter prefers a shared Redis window and falls back to a per-process one.
func newLimiter(cfg *config.Config) middleware.Limiter {
	rl := cfg.RateLimit
	if rl.Limit <= 0 {
		logger.Info("rate limiting disabled")
		return nil
	}
	if cfg.Redis.Addr != "" {
		client, err := middleware.ConnectRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			logger.Info("rate limiter using redis", "addr", cfg.Redis.Addr)
			return middleware.NewRedisLimiter(client, rl.Limit, rl.Window.Duration())
		}
		logger.Warn("redis unavailable, using in-process rate limiter", "error", err)
	}
	return middleware.NewMemoryLimiter(rl.Limit, rl.Window.Duration())
}
