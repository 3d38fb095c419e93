package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/config"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/redisbus"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/websocket"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting broadcast service")

	cfg := loadConfig()

	subscriber, err := redisbus.NewSubscriber(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer subscriber.Close()
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := subscriber.SubscribeAll(ctx); err != nil {
		logger.Fatal("failed to subscribe to auction events", zap.Error(err))
	}
	logger.Info("subscribed to auction events")

	wsManager := websocket.NewManager(logger)
	go wsManager.Run()

	messageChan := make(chan *redisbus.Message, 256)

	go func() {
		if err := subscriber.Listen(ctx, messageChan); err != nil && ctx.Err() == nil {
			logger.Error("Redis listener error", zap.Error(err))
		}
	}()

	// Redis Pub/Sub -> WebSocket forwarder
	go func() {
		for msg := range messageChan {
			wsManager.Broadcast(msg.AuctionID, []byte(msg.Payload))
		}
	}()

	handler := websocket.NewHandler(wsManager, logger)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("broadcast service listening", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8081"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
	}
}
