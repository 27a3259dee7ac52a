package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/huangshi/genealogy-api/config"
	"github.com/huangshi/genealogy-api/internal/application"
	"github.com/huangshi/genealogy-api/internal/domain/session"
	"github.com/huangshi/genealogy-api/internal/infrastructure/cache/memory"
	"github.com/huangshi/genealogy-api/internal/infrastructure/cache/redis"
	"github.com/huangshi/genealogy-api/internal/infrastructure/credentials"
	"github.com/huangshi/genealogy-api/internal/infrastructure/upstream"
	apphttp "github.com/huangshi/genealogy-api/internal/interfaces/http"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/handlers"
	"github.com/huangshi/genealogy-api/internal/interfaces/http/middleware"
	"github.com/huangshi/genealogy-api/pkg/jwt"
	"github.com/huangshi/genealogy-api/pkg/logger"
)

func run() error {
	// .env is optional, environment variables win either way
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting genealogy API service...", logger.Component("main"))

	// Credentials: generated on first run, reused afterwards
	credStore := credentials.NewStore(cfg.Auth.ConfigDir, log)
	bundle, err := credStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if credStore.Degraded() {
		log.Warn("credential bundle is memory-only, issued tokens will not survive a restart",
			logger.Component("main"))
	}

	// Redis is optional: without it sessions fall back to process memory
	redisClient, err := redis.NewClient(&cfg.Redis)
	var primary session.Repository
	var redisHealth handlers.HealthChecker
	if err != nil {
		log.Warn("Redis unavailable, sessions are memory-only",
			logger.Component("main"), logger.Error(err))
	} else {
		log.Info("Connected to Redis",
			logger.Component("main"),
			logger.String("host", cfg.Redis.Host),
			logger.Int("port", cfg.Redis.Port))
		defer redisClient.Close()
		primary = redis.NewSessionRepository(redisClient, log)
		redisHealth = redisClient
	}

	fallback := memory.NewSessionRepository(log)
	fallback.StartCleanup(ctx, cfg.Session.CleanupInterval)

	qwen := upstream.NewQwenClient(upstream.Resolve(cfg.Upstream), log)
	if !qwen.Configured() {
		log.Warn("upstream AI client not configured, chat endpoints will fail",
			logger.Component("main"))
	}

	svcs := application.NewServices(cfg, primary, fallback, qwen, log)

	limiter := middleware.NewSlidingWindowLimiter(log)
	limiter.Start(ctx, bundle.RateLimit.Window())

	router := apphttp.NewRouter(cfg, &apphttp.RouterDeps{
		Services:    svcs,
		Credentials: credStore,
		JWTManager:  jwt.NewManager(),
		Limiter:     limiter,
		RedisHealth: redisHealth,
		Logger:      log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return startServer(server, log)
}

func startServer(server *http.Server, log logger.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			logger.Component("server"),
			logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Shutting down server...",
			logger.Component("server"),
			logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited", logger.Component("server"))
	return nil
}
