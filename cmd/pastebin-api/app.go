package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/auth"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/config"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/database"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/logging"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/ratelimit"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/server"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application bundles the resources every subcommand needs.
type application struct {
	config  config.AppConfig
	logger  *zap.Logger
	db      *gorm.DB
	service *pastes.Service
	redis   *redis.Client
}

func newApplication() (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, !appConfig.IsProduction())
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Config{
		Driver:       appConfig.DatabaseDriver,
		DSN:          appConfig.DatabaseDSN,
		Path:         appConfig.DatabasePath,
		MaxOpenConns: appConfig.DatabaseMaxOpenConns,
	}, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	service, err := pastes.NewService(pastes.ServiceConfig{
		Database:   db,
		IDProvider: pastes.NewRandomIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	return &application{
		config:  appConfig,
		logger:  logger,
		db:      db,
		service: service,
	}, nil
}

func (a *application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newRouter assembles the HTTP handler shared by the server and Lambda modes.
func (a *application) newRouter(ctx context.Context) (*gin.Engine, error) {
	if a.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiters, err := a.newRateLimiters(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *server.Metrics
	if a.config.MetricsEnabled {
		metrics = server.NewMetrics()
	}

	authorizer := auth.NewCleanupAuthorizer(auth.CleanupAuthorizerConfig{
		Secret:     a.config.CleanupSecret,
		Production: a.config.IsProduction(),
	})
	if !authorizer.Enabled() {
		a.logger.Warn("cleanup secret not configured", zap.Bool("production", a.config.IsProduction()))
	}

	return server.NewHTTPHandler(server.Dependencies{
		PasteStore:        a.service,
		CleanupAuthorizer: authorizer,
		RateLimiters:      limiters,
		Metrics:           metrics,
		Logger:            a.logger,
		Options: server.Options{
			Development:    !a.config.IsProduction(),
			PublicURL:      a.config.PublicURL,
			AllowedOrigins: a.config.CORSAllowedOrigins,
			TrustedProxies: a.config.TrustedProxies,
			MaxBodyBytes:   a.config.MaxBodyBytes,
			RetentionDays:  a.config.RetentionDays,
			Version:        Version,
		},
	})
}

func (a *application) newRateLimiters(ctx context.Context) (server.RateLimiters, error) {
	limits := a.config.RateLimits
	policies := []ratelimit.Policy{
		{Name: "global", Limit: limits.Global.Limit, Window: limits.Global.Window},
		{Name: "create", Limit: limits.Create.Limit, Window: limits.Create.Window},
		{Name: "read", Limit: limits.Read.Limit, Window: limits.Read.Window},
		{Name: "cleanup", Limit: limits.Cleanup.Limit, Window: limits.Cleanup.Window},
	}

	build := func(policy ratelimit.Policy) (ratelimit.Limiter, error) {
		return ratelimit.NewMemoryLimiter(policy, nil)
	}
	if limits.Backend == config.RateLimitBackendRedis {
		client, err := ratelimit.NewRedisClient(ctx, a.config.Redis.Address, a.config.Redis.Password, a.config.Redis.DB)
		if err != nil {
			return server.RateLimiters{}, err
		}
		a.redis = client
		build = func(policy ratelimit.Policy) (ratelimit.Limiter, error) {
			return ratelimit.NewRedisLimiter(client, policy)
		}
	}

	built := make([]ratelimit.Limiter, len(policies))
	for index, policy := range policies {
		limiter, err := build(policy)
		if err != nil {
			return server.RateLimiters{}, fmt.Errorf("rate limit policy %s: %w", policy.Name, err)
		}
		built[index] = limiter
	}

	a.logger.Info("rate limiting configured", zap.String("backend", limits.Backend))
	return server.RateLimiters{
		Global:  built[0],
		Create:  built[1],
		Read:    built[2],
		Cleanup: built[3],
	}, nil
}
