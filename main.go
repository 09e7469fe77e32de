package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CairnApp/shellsync/config"
	"github.com/CairnApp/shellsync/handlers"
	"github.com/CairnApp/shellsync/internal/store"
	"github.com/CairnApp/shellsync/internal/store/memory"
	"github.com/CairnApp/shellsync/internal/store/redisstore"
	"github.com/CairnApp/shellsync/logger"
	"github.com/CairnApp/shellsync/router"
	"github.com/CairnApp/shellsync/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() {
		_ = logger.Close()
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Storage backends. Redis is the durable secure store; without it the
	// shell still runs, tracking everything in memory for the process
	// lifetime.
	var (
		secureStore store.SecureStore
		recordStore store.DeliveryRecordStore
		dedupeStore store.DedupeStore
	)

	if cfg.Redis.Enabled {
		redisOptions := &redis.Options{
			Addr:         cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}
		if cfg.Redis.UseTLS {
			redisOptions.TLSConfig = &tls.Config{
				ServerName: strings.Split(cfg.Redis.Address, ":")[0],
				MinVersion: tls.VersionTLS12,
			}
		}

		redisClient := redis.NewClient(redisOptions)
		defer func() {
			_ = redisClient.Close()
		}()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("Failed to connect to redis at %s: %v", cfg.Redis.Address, err)
		}
		cancel()

		secureStore = redisstore.NewSecureStore(redisClient)
		recordStore = redisstore.NewDeliveryRecordStore(redisClient)
		dedupeStore = redisstore.NewDedupeStore(redisClient,
			time.Duration(cfg.Bridge.DedupeTTLSeconds)*time.Second)
	} else {
		log.Warn("Redis disabled, running with in-memory stores")
		secureStore = memory.NewSecureStore()
		recordStore = memory.NewDeliveryRecordStore()
		dedupeStore = memory.NewDedupeStore()
	}

	// Services
	zapLogger := log.Desugar()
	sessions := services.NewSessionManager()
	registry := services.NewTokenRegistry(recordStore, zapLogger)
	delivery := services.NewPushDeliveryService(cfg.Delivery, registry, secureStore, zapLogger)
	deduper := services.NewNotificationDeduper(dedupeStore, zapLogger)
	reconciler := services.NewBridgeReconciler(
		cfg.Bridge, secureStore, sessions, registry, delivery, nil, zapLogger)

	// Resolve the initial view before the page loads so the first screen is
	// never the wrong one.
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 5*time.Second)
	target := reconciler.BootstrapSession(bootCtx)
	cancelBoot()
	log.Infow("Session bootstrap complete", "target", target)

	// HTTP surface
	r := router.SetupRouter(router.Dependencies{
		Config:        cfg,
		BridgeHandler: handlers.NewBridgeHandler(reconciler, zapLogger),
		PushHandler:   handlers.NewPushHandler(delivery, sessions, deduper, zapLogger),
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infow("Bridge server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Bridge server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down bridge server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Bridge server shutdown failed", "error", err)
	}
	log.Info("Shutdown complete")
}
