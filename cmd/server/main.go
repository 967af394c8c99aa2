package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"session-gateway/internal/auth"
	"session-gateway/internal/config"
	"session-gateway/internal/db"
	"session-gateway/internal/guard"
	"session-gateway/internal/logging"
	"session-gateway/internal/security"
	"session-gateway/internal/server"
	"session-gateway/internal/server/handler"
	"session-gateway/internal/server/middleware"
	sessionrepo "session-gateway/internal/session/repository"
	"session-gateway/internal/telemetry"
	otelx "session-gateway/internal/telemetry/otel"
	"session-gateway/internal/telemetry/producer"
	userrepo "session-gateway/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	codec, err := security.NewTokenCodec(cfg.SessionSecret, cfg.TTL())
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	// User credentials always live in Postgres; the session store backend is
	// selected independently.
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer conn.Close()
	users := userrepo.NewPostgresRepository(conn)

	var sessions sessionrepo.Repository
	switch cfg.SessionStore {
	case "redis":
		client, err := db.OpenRedis(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer client.Close()
		sessions = sessionrepo.NewRedisRepository(client)
	default:
		sessions = sessionrepo.NewPostgresRepository(conn)
	}
	logger.Info("session store ready", zap.String("backend", cfg.SessionStore))

	kafkaProducer, err := producer.NewKafkaProducer(cfg.EventsKafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		logger.Fatal("kafka producer", zap.Error(err))
	}
	var events producer.Producer
	var emitter telemetry.EventEmitter
	if kafkaProducer != nil {
		events = kafkaProducer
		emitter = kafkaProducer
		logger.Info("session events enabled", zap.String("topic", cfg.EventsKafkaTopic))
	}

	ctx := context.Background()
	providers, err := otelx.NewProviders(ctx, cfg.OTLPEndpoint, "session-gateway", cfg.Env != "production")
	if err != nil {
		logger.Fatal("otel", zap.Error(err))
	}
	metrics, err := otelx.NewGuardMetrics(providers.MeterProvider)
	if err != nil {
		logger.Fatal("guard metrics", zap.Error(err))
	}

	resolver := auth.NewResolver(codec, sessions, cfg.StoreCallTimeout(), logger, emitter)
	svc := auth.NewService(users, sessions, hasher, codec, logger, emitter)
	routeGuard := guard.New(cfg.ProtectedRouteList(), cfg.AuthRouteList())
	gate := middleware.NewAuthGate(resolver, routeGuard, cfg.LoginURL, cfg.LandingURL, logger, metrics, emitter)

	router := server.NewRouter(
		gate,
		handler.NewAuthHandler(svc, cfg.SecureCookies, logger),
		handler.NewPageHandler(),
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	// Give in-flight async emits time to finish before the producer closes.
	if events != nil {
		time.Sleep(telemetry.ShutdownDrainDuration)
		if err := events.Close(); err != nil {
			logger.Error("kafka close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("otel shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
