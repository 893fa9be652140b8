package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/guruqool/guruqool-backend/internal/routes"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

func newBroker(cfg *config.Config) (realtime.Broker, error) {
	log := logger.Component("broker")
	switch cfg.Broker {
	case "redis":
		if database.Redis == nil {
			logger.Fatal().Msg("BROKER=redis needs REDIS_ADDR")
		}
		return realtime.NewRedisBroker(database.Redis, log), nil
	case "nats":
		return realtime.NewNatsBroker(cfg.NatsURL, log)
	case "", "local":
		return realtime.NewLocalBroker(), nil
	default:
		logger.Warn().Str("broker", cfg.Broker).Msg("Unknown BROKER, falling back to local")
		return realtime.NewLocalBroker(), nil
	}
}

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Env)
	logger.Info().Str("environment", cfg.Env).Msg("Starting Guruqool backend...")

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
		if cfg.JWTSecret == "" {
			logger.Fatal().Msg("JWT_SECRET must be set in production")
		}
	}

	database.Connect()
	database.InitRedis()

	logger.Info().Msg("Running database migrations...")
	if err := database.Migrate(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Realtime: one relay shared by Socket.IO and /ws, fanned out through the broker.
	broker, err := newBroker(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("broker", cfg.Broker).Msg("Failed to start relay broker")
	}
	rt, err := routes.NewRealtime(broker, cfg.TypingThrottle)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to subscribe relay")
	}
	go rt.Gateway.Serve()

	r := routes.NewEngine(rt)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("broker", cfg.Broker).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown, so close them first.
	rt.WS.Close()
	if err := rt.Gateway.Close(); err != nil {
		logger.Warn().Err(err).Msg("Socket.IO close failed")
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := rt.Relay.Close(); err != nil {
		logger.Warn().Err(err).Msg("Relay broker close failed")
	}
	if database.Redis != nil {
		_ = database.Redis.Close()
	}

	logger.Info().Msg("Server exited gracefully")
}
