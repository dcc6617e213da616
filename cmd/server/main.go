package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/api"
	"github.com/stitts-dev/fantasy-feed/internal/api/handlers"
	"github.com/stitts-dev/fantasy-feed/internal/api/middleware"
	"github.com/stitts-dev/fantasy-feed/internal/mock"
	"github.com/stitts-dev/fantasy-feed/internal/providers"
	"github.com/stitts-dev/fantasy-feed/internal/services"
	"github.com/stitts-dev/fantasy-feed/internal/store"
	"github.com/stitts-dev/fantasy-feed/internal/websocket"
	"github.com/stitts-dev/fantasy-feed/pkg/config"
	"github.com/stitts-dev/fantasy-feed/pkg/database"
	"github.com/stitts-dev/fantasy-feed/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	log := logger.InitLogger(cfg.LogLevel, cfg.LogFormat, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Synthetic match pool
	generator := mock.NewGenerator(mock.Config{
		Seed:    cfg.MockSeed,
		Latency: cfg.MockLatency,
	}, log)

	curationStore, closeStore, err := openCurationStore(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to open curation store: %v", err)
	}
	defer closeStore()
	if curationStore != nil {
		restored, err := generator.Restore(ctx, curationStore)
		if err != nil {
			log.WithError(err).Warn("Failed to restore curation overrides, starting from generated state")
		} else {
			log.WithField("restored", restored).Info("Restored curation overrides")
		}
		generator.SetStore(curationStore)
	}

	// Sports data provider
	if cfg.SportsAPIKey == "" {
		log.Warn("SPORTS_API_KEY is not set, upstream requests will be rejected and served from the mock pool")
	}
	sportsClient := providers.NewSportsAPIClient(providers.SportsAPIConfig{
		BaseURL:          cfg.SportsAPIBaseURL,
		Host:             cfg.SportsAPIHost,
		APIKey:           cfg.SportsAPIKey,
		Timeout:          cfg.SportsAPITimeout,
		RequestsPerMin:   cfg.SportsAPIRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerTimeout:   cfg.CircuitBreakerTimeout,
	}, log)

	// Services
	gateway := services.NewFeedGateway(cfg.GatewayConfig(), generator, sportsClient, log)

	hub := websocket.NewFeedHub(log, cfg.CorsOrigins)
	go hub.Run(ctx)

	curation := services.NewCurationService(generator, gateway, hub, log)

	refresher := services.NewFeedRefresher(generator, gateway, hub, log, cfg.FeedRefreshInterval)
	if err := refresher.Start(); err != nil {
		log.Errorf("Failed to start feed refresher: %v", err)
	}
	defer refresher.Stop()

	rateLimiter := middleware.NewClientRateLimiter(cfg.InboundRateLimit, cfg.InboundRateBurst, log)
	go cleanupVisitors(ctx, rateLimiter)

	// Setup Gin router
	router := api.NewRouter(api.Handlers{
		Feed:      handlers.NewFeedHandler(gateway, sportsClient, log),
		Admin:     handlers.NewAdminHandler(curation, gateway, refresher, log),
		Health:    handlers.NewHealthHandler(gateway, hub, refresher),
		WebSocket: hub.HandleFeed,
	}, api.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AdminActors:    cfg.AdminActors,
		RateLimiter:    rateLimiter,
	}, log)

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"strategy": gateway.Config().Strategy,
			"store":    cfg.CurationStore,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

// openCurationStore connects the configured curation backend. A nil store means overrides live in memory only.
func openCurationStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.CurationStore, func(), error) {
	noop := func() {}

	switch cfg.CurationStore {
	case "redis":
		client, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return store.NewRedisCurationStore(client, store.DefaultCurationKey, log), func() { client.Close() }, nil

	case "postgres", "sqlite":
		db, err := database.NewConnection(cfg.CurationStore, cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			return nil, noop, err
		}
		gormStore, err := store.NewGormCurationStore(db.DB)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return gormStore, func() { db.Close() }, nil
	}

	return nil, noop, nil
}

func cleanupVisitors(ctx context.Context, limiter *middleware.ClientRateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}
