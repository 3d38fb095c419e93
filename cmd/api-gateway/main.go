package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/config"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/handlers"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/market"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/pinning"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/redisbus"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/service"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/store"
	"github.com/SicomCt/XPRL-Hackathon-2026/internal/xrpl"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting API gateway")

	cfg := loadConfig()

	// Listing and bid directory
	redisStore, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisStore.Close()
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

	// Live event fanout
	publisher, err := redisbus.NewPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect Redis publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Archival fanout
	natsConn, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()
	logger.Info("connected to NATS", zap.String("url", cfg.NatsURL))

	ledger := xrpl.NewClient(cfg.XRPLURL)

	// The signer service holds the keys; without one the gateway still
	// serves reads, and write endpoints report the missing session.
	var submitter xrpl.Submitter
	if cfg.SignerURL != "" && cfg.SignerAddress != "" {
		submitter = xrpl.NewSignerClient(cfg.SignerURL, cfg.SignerAddress)
		logger.Info("signer configured", zap.String("address", cfg.SignerAddress))
	} else {
		logger.Warn("no signer configured, write endpoints disabled")
	}

	settlement := xrpl.NewSettlement(ledger, submitter, xrpl.DefaultRetryPolicy(), xrpl.SettlementConfig{
		AnchorAddress:   cfg.AnchorAddress,
		ReleaseDelaySec: cfg.ReleaseDelaySec,
		CancelGraceSec:  cfg.CancelGraceSec,
		AnnounceDrops:   "1",
	}, logger)

	auctionService, err := service.NewAuctionService(ledger, settlement, redisStore, redisStore, service.Options{
		Publisher:     publisher,
		NatsConn:      natsConn,
		AnchorAddress: cfg.AnchorAddress,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize auction service", zap.Error(err))
	}

	pinner := pinning.NewClient(cfg.PinataJWT)
	marketClient := market.NewClient(logger)

	handler := handlers.NewHandler(auctionService, redisStore, redisStore, pinner, marketClient, logger)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API gateway listening", zap.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
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
	NatsURL       string

	XRPLURL       string
	AnchorAddress string
	SignerURL     string
	SignerAddress string

	ReleaseDelaySec int64
	CancelGraceSec  int64

	PinataJWT string
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8080"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
		NatsURL:       config.GetEnv("NATS_URL", "nats://localhost:4222"),

		XRPLURL:       config.GetEnv("XRPL_URL", xrpl.DefaultTestnetURL),
		AnchorAddress: config.GetEnv("ANCHOR_ADDRESS", auction.DefaultAnchorAddress),
		SignerURL:     config.GetEnv("SIGNER_URL", ""),
		SignerAddress: config.GetEnv("SIGNER_ADDRESS", ""),

		ReleaseDelaySec: config.GetEnvInt64("RELEASE_DELAY_SEC", auction.DefaultReleaseDelaySec),
		CancelGraceSec:  config.GetEnvInt64("CANCEL_GRACE_SEC", auction.DefaultCancelGraceSec),

		PinataJWT: config.GetEnv("PINATA_JWT", ""),
	}
}
