// @title                       Accounts Service API
// @version                     1.0
// @description                 Identity, token issuance and role-based user management.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99minutos/accounts-service/internal/api"
	"github.com/99minutos/accounts-service/internal/api/handler"
	"github.com/99minutos/accounts-service/internal/core/security"
	"github.com/99minutos/accounts-service/internal/core/service"
	mongorepo "github.com/99minutos/accounts-service/internal/infrastructure/db/mongo"
	redisrepo "github.com/99minutos/accounts-service/internal/infrastructure/db/redis"
	"github.com/99minutos/accounts-service/internal/infrastructure/queue"
	"github.com/99minutos/accounts-service/internal/pkg/config"
	"github.com/99minutos/accounts-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "accounts-service",
		Env:     cfg.Env,
	})

	// --- Storage ---
	mongoClient, db, err := mongorepo.Connect(ctx, mongorepo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisrepo.Connect(ctx, redisrepo.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	userStore := mongorepo.NewUserRepository(db)
	if err := userStore.EnsureIndexes(ctx); err != nil {
		return err
	}
	users := redisrepo.NewUserCache(userStore, rdb, cfg.Redis.UserCacheTTL, logger.Component("user_cache"))

	// --- Security ---
	hasher, err := security.NewPasswordHasher(cfg.Auth.HashCostFactor)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}

	// --- Audit trail ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	auditService := service.NewAuditService(mongorepo.NewAuditRepository(db), logger.Component("audit"))
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, logger.Component("audit_dispatcher"))
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Identity: service.NewIdentityService(users, hasher, tokens, dispatcher, logger.Component("identity")),
		Users:    service.NewUserService(users, hasher, dispatcher, logger.Component("users")),
		Checks: map[string]handler.DependencyCheck{
			"mongodb": handler.MongoCheck(db),
			"redis":   handler.RedisCheck(rdb),
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
