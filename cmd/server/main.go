package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/api"
	"github.com/clinical-meteor/checklist-manifesto/internal/api/handler"
	"github.com/clinical-meteor/checklist-manifesto/internal/core/service"
	"github.com/clinical-meteor/checklist-manifesto/internal/infrastructure/config"
	mongodb "github.com/clinical-meteor/checklist-manifesto/internal/infrastructure/db/mongo"
	redisdb "github.com/clinical-meteor/checklist-manifesto/internal/infrastructure/db/redis"
	"github.com/clinical-meteor/checklist-manifesto/internal/infrastructure/queue"
	"github.com/clinical-meteor/checklist-manifesto/internal/logs"
	"github.com/clinical-meteor/checklist-manifesto/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()

	recorder := logs.NewRecorder(500)
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDevelopment(),
		Hooks:  []zerolog.Hook{recorder},
	})

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			log.Fatal().Msg("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "development-only-secret"
		log.Warn().Msg("JWT_SECRET not set, using development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URL:      cfg.Mongo.URL,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer func() {
		_ = rdb.Close()
	}()

	// --- Audit pipeline ---
	auditService := service.NewAuditService(mongodb.NewAuditRepository(db), log)
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, auditService, log)
	dispatcher.Start(ctx)

	// --- Accounts ---
	accounts := service.NewAccountService(
		mongodb.NewUserRepository(db),
		redisdb.NewTokenStore(rdb),
		dispatcher,
		cfg.JWTSecret,
		cfg.TokenTTL,
		cfg.BcryptCost,
		log,
	)

	// Admin bootstrap is idempotent; a failure here means the credential
	// store is unusable, so startup aborts.
	if cfg.AdminPassword != "" {
		id, err := accounts.EnsureAdminUser(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("admin bootstrap failed")
		}
		log.Info().Str("user_id", id).Str("username", cfg.AdminUsername).Msg("admin user ready")
	} else {
		log.Warn().Msg("ADMIN_PASSWORD not set, skipping admin bootstrap")
	}

	// --- Diagnostics ---
	hub := handler.NewLiveHub()
	diagnostics := service.NewDiagnosticsService(
		mongodb.NewProber(db),
		hub,
		recorder,
		service.EnvironmentSnapshot{
			Name:              cfg.Env,
			Port:              cfg.Port,
			RootURL:           cfg.RootURL,
			MongoURL:          cfg.Mongo.URL,
			DisableWebsockets: cfg.DisableWebsockets,
		},
		log,
	)

	e := api.NewRouter(accounts, diagnostics, hub, api.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		DisableWebsockets: cfg.DisableWebsockets,
	}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
