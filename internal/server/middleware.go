package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/auth"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/ratelimit"
	"go.uber.org/zap"
)

const maxRequestIDLength = 64

func (h *httpHandler) recoverPanic(c *gin.Context, recovered any) {
	h.respondInternalError(c, "recover", fmt.Errorf("panic: %v", recovered))
}

// requestIDMiddleware propagates a caller supplied X-Request-ID or mints one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (h *httpHandler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	status := c.Writer.Status()
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("route", c.FullPath()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", c.GetString(requestIDContextKey)),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error("http request", fields...)
	case status >= http.StatusBadRequest:
		h.logger.Warn("http request", fields...)
	default:
		h.logger.Info("http request", fields...)
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return secure.New(secure.Config{
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "Retry-After", "RateLimit-Limit", "RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
		origins = append(origins, origin)
	}
	if allowAll {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

// bodyLimitMiddleware rejects declared oversize bodies and caps streamed ones.
func bodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				fmt.Sprintf("Request body must not exceed %d bytes", maxBytes), nil)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func (h *httpHandler) rateLimit(policy string, limiter ratelimit.Limiter) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		decision, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			h.logger.Warn("rate limiter unavailable",
				zap.String("policy", policy),
				zap.String("request_id", c.GetString(requestIDContextKey)),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			h.metrics.observeRateLimited(policy)
			abortWithError(c, http.StatusTooManyRequests, codeRateLimitExceeded,
				"Too many requests, please try again later", gin.H{"policy": policy, "retryAfterSeconds": retryAfter})
			return
		}
		c.Next()
	}
}

func (h *httpHandler) authorizeCleanup(c *gin.Context) {
	err := h.authorizer.Authorize(c.GetHeader("Authorization"))
	switch {
	case err == nil:
		c.Next()
	case errors.Is(err, auth.ErrCleanupSecretNotConfigured):
		h.logger.Error("cleanup secret not configured", zap.String("request_id", c.GetString(requestIDContextKey)))
		abortWithError(c, http.StatusInternalServerError, codeConfigurationError, "Cleanup secret is not configured", nil)
	default:
		h.logger.Warn("cleanup authorization failed",
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err))
		abortWithError(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized", nil)
	}
}
