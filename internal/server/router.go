package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	requestIDContextKey = "pastebin_request_id"
	requestIDHeader     = "X-Request-ID"

	defaultMaxBodyBytes  = 1 << 20
	defaultRetentionDays = pastes.DefaultRetentionDays
	dbCheckTimeout       = 2 * time.Second
)

var (
	errMissingPasteStore        = errors.New("paste store dependency required")
	errMissingCleanupAuthorizer = errors.New("cleanup authorizer dependency required")
)

// PasteStore is the storage surface the HTTP layer depends on.
type PasteStore interface {
	Now() time.Time
	Create(ctx context.Context, input pastes.CreateInput) (pastes.Paste, error)
	FetchAndView(ctx context.Context, id string) (pastes.Paste, error)
	FetchRaw(ctx context.Context, id string) (string, error)
	MarkExpired(ctx context.Context, id string) error
	SweepExpired(ctx context.Context, now time.Time) (pastes.SweepResult, error)
	Purge(ctx context.Context, retentionDays int) (pastes.PurgeResult, error)
	Stats(ctx context.Context) (pastes.Stats, error)
	Ping(ctx context.Context) error
}

// CleanupAuthorizer validates the Authorization header of maintenance calls.
type CleanupAuthorizer interface {
	Authorize(header string) error
}

// RateLimiters holds one limiter per policy. A nil limiter disables that policy.
type RateLimiters struct {
	Global  ratelimit.Limiter
	Create  ratelimit.Limiter
	Read    ratelimit.Limiter
	Cleanup ratelimit.Limiter
}

// Options tunes request handling.
type Options struct {
	Development    bool
	PublicURL      string
	AllowedOrigins []string
	TrustedProxies []string
	MaxBodyBytes   int64
	RetentionDays  int
	Version        string
	StartedAt      time.Time
}

type Dependencies struct {
	PasteStore        PasteStore
	CleanupAuthorizer CleanupAuthorizer
	RateLimiters      RateLimiters
	Metrics           *Metrics
	Logger            *zap.Logger
	Options           Options
}

// NewHTTPHandler wires middleware and routes. The engine is returned so the
// Lambda adapter can proxy events into the same router.
func NewHTTPHandler(deps Dependencies) (*gin.Engine, error) {
	if deps.PasteStore == nil {
		return nil, errMissingPasteStore
	}
	if deps.CleanupAuthorizer == nil {
		return nil, errMissingCleanupAuthorizer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	options := deps.Options
	if options.MaxBodyBytes <= 0 {
		options.MaxBodyBytes = defaultMaxBodyBytes
	}
	if options.RetentionDays < 0 {
		options.RetentionDays = defaultRetentionDays
	}
	if options.StartedAt.IsZero() {
		options.StartedAt = time.Now()
	}
	if options.Version == "" {
		options.Version = "dev"
	}

	handler := &httpHandler{
		pastes:     deps.PasteStore,
		authorizer: deps.CleanupAuthorizer,
		metrics:    deps.Metrics,
		logger:     logger,
		options:    options,
	}

	router := gin.New()
	// Route on the escaped path so an encoded "../etc" reaches the id validator.
	router.UseRawPath = true
	router.UnescapePathValues = true
	if err := router.SetTrustedProxies(options.TrustedProxies); err != nil {
		return nil, err
	}

	router.Use(gin.CustomRecoveryWithWriter(io.Discard, handler.recoverPanic))
	router.Use(requestIDMiddleware())
	router.Use(handler.accessLog)
	router.Use(securityHeadersMiddleware())
	router.Use(corsMiddleware(options.AllowedOrigins))
	router.Use(bodyLimitMiddleware(options.MaxBodyBytes))
	router.Use(deps.Metrics.middleware())

	router.GET("/health", handler.handleHealth)
	router.GET("/health/db", handler.handleHealthDB)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	limits := deps.RateLimiters
	api := router.Group("/api")
	api.Use(handler.rateLimit("global", limits.Global))

	pasteRoutes := api.Group("/pastes")
	pasteRoutes.POST("", handler.rateLimit("create", limits.Create), handler.handleCreatePaste)
	pasteRoutes.GET("/:id", handler.rateLimit("read", limits.Read), handler.handleGetPaste)
	pasteRoutes.GET("/:id/raw", handler.rateLimit("read", limits.Read), handler.handleGetRawPaste)

	cleanupRoutes := api.Group("/cleanup")
	cleanupRoutes.Use(handler.rateLimit("cleanup", limits.Cleanup))
	cleanupRoutes.Use(handler.authorizeCleanup)
	cleanupRoutes.GET("", handler.handleCleanup)
	cleanupRoutes.POST("/purge", handler.handlePurge)
	cleanupRoutes.GET("/stats", handler.handleStats)
	cleanupRoutes.POST("/expire/:id", handler.handleExpirePaste)

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, codeNotFound, "Route not found", nil)
	})

	return router, nil
}

type httpHandler struct {
	pastes     PasteStore
	authorizer CleanupAuthorizer
	metrics    *Metrics
	logger     *zap.Logger
	options    Options
}
