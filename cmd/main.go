package main

import (
	"context"
	"database/sql"
	"dealwire/internal/app/broadcast"
	"dealwire/internal/app/registry"
	"dealwire/internal/app/server"
	"dealwire/internal/config"
	"dealwire/internal/core/contracts"
	"dealwire/internal/core/services"
	"dealwire/internal/platform/logger"
	"dealwire/internal/platform/telemetry"
	"dealwire/internal/plugins/postgres"
	"dealwire/internal/plugins/rabbitmq"
	redisPlugin "dealwire/internal/plugins/redis"
	"dealwire/pkg/logging"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	if cfg.SecretToken == "" {
		log.Error("JWT_SECRET is required")
		return
	}

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", logging.Err(err))
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", logging.Err(err))
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", logging.Err(err))
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")

	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, logging.Err(err))
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	dealRepo := postgres.NewDealRepo(pdb)
	sessionStore := redisPlugin.NewRedisSessionStore(rdb)
	txManager := postgres.NewTxManager(pdb)

	// Core
	hub := registry.NewRegistry(log)
	hooks := []contracts.DealCommitHook{}
	if cfg.AMQP.URL != "" {
		conn, err := rabbitmq.DialWithRetry(ctx, rabbitmq.ConnectionOptions{
			URL:           cfg.AMQP.URL,
			RetryAttempts: cfg.AMQP.RetryAttempts,
			Delay:         cfg.AMQP.RetryDelay,
			Logger:        log,
		})
		if err != nil {
			log.Error("rabbitmq connection failed", logging.Err(err))
			return
		}
		defer conn.Close()
		publisher, err := rabbitmq.NewEventPublisher(log, conn, cfg.AMQP.Exchange, cfg.Service.Name)
		if err != nil {
			log.Error("rabbitmq publisher setup failed", logging.Err(err))
			return
		}
		defer publisher.Close()
		hooks = append(hooks, publisher)
		log.Info("rabbitmq connected", "exchange", cfg.AMQP.Exchange)
	}

	tokenSvc := services.NewTokenService(cfg.SecretToken)
	identitySvc := services.NewIdentityService(log, tokenSvc, sessionStore)
	dealSvc := services.NewDealService(log, dealRepo, txManager, broadcast.NewBroadcaster(log, hub), hooks...)

	// Server
	srv := server.NewServer(log, cfg, hub, identitySvc, dealSvc, identitySvc)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", logging.Err(err))
		}
		hub.Close()
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", logging.Err(err))
		}
	}
}
