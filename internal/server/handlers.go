package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"go.uber.org/zap"
)

type createPasteResponse struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxViews  *int       `json:"maxViews"`
	CreatedAt time.Time  `json:"createdAt"`
}

type pasteResponse struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Language       *string    `json:"language"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	MaxViews       *int       `json:"maxViews"`
	ViewCount      int        `json:"viewCount"`
	RemainingViews *int       `json:"remainingViews"`
}

type cleanupResponse struct {
	pastes.SweepResult
	Stats     pastes.Stats `json:"stats"`
	Timestamp time.Time    `json:"timestamp"`
}

type expireResponse struct {
	ID        string `json:"id"`
	IsExpired bool   `json:"isExpired"`
}

func (h *httpHandler) handleCreatePaste(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			abortWithError(c, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"Request body must not exceed "+strconv.FormatInt(maxBytesErr.Limit, 10)+" bytes", nil)
			return
		}
		abortWithError(c, http.StatusBadRequest, codeValidationError, messageInvalidRequest, nil)
		return
	}

	input, err := pastes.DecodeCreateRequest(body)
	if err != nil {
		h.respondServiceError(c, "create", err)
		return
	}

	paste, err := h.pastes.Create(c.Request.Context(), input)
	if err != nil {
		h.respondServiceError(c, "create", err)
		return
	}
	h.metrics.observePasteEvent("created")

	respondSuccess(c, http.StatusCreated, createPasteResponse{
		ID:        paste.ID,
		URL:       h.shareURL(c, paste.ID),
		ExpiresAt: paste.ExpiresAt,
		MaxViews:  paste.MaxViews,
		CreatedAt: paste.CreatedAt,
	})
}

func (h *httpHandler) handleGetPaste(c *gin.Context) {
	id := c.Param("id")
	if err := pastes.ValidateID(id); err != nil {
		h.respondServiceError(c, "fetch", err)
		return
	}

	paste, err := h.pastes.FetchAndView(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, "fetch", err)
		return
	}
	h.metrics.observePasteEvent("viewed")

	respondSuccess(c, http.StatusOK, pasteResponse{
		ID:             paste.ID,
		Content:        paste.Content,
		Language:       paste.Language,
		CreatedAt:      paste.CreatedAt,
		ExpiresAt:      paste.ExpiresAt,
		MaxViews:       paste.MaxViews,
		ViewCount:      paste.ViewCount,
		RemainingViews: paste.RemainingViews(),
	})
}

func (h *httpHandler) handleGetRawPaste(c *gin.Context) {
	id := c.Param("id")
	if err := pastes.ValidateID(id); err != nil {
		h.respondRawError(c, err)
		return
	}

	content, err := h.pastes.FetchRaw(c.Request.Context(), id)
	if err != nil {
		h.respondRawError(c, err)
		return
	}
	h.metrics.observePasteEvent("viewed")

	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (h *httpHandler) handleCleanup(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.pastes.Now()

	swept, err := h.pastes.SweepExpired(ctx, now)
	if err != nil {
		h.respondServiceError(c, "sweep", err)
		return
	}
	stats, err := h.pastes.Stats(ctx)
	if err != nil {
		h.respondServiceError(c, "stats", err)
		return
	}

	respondSuccess(c, http.StatusOK, cleanupResponse{
		SweepResult: swept,
		Stats:       stats,
		Timestamp:   now,
	})
}

func (h *httpHandler) handlePurge(c *gin.Context) {
	retentionDays := h.options.RetentionDays
	if raw := strings.TrimSpace(c.Query("retentionDays")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, http.StatusBadRequest, codeValidationError, messageInvalidRequest,
				[]pastes.FieldError{{Field: "retentionDays", Message: "must be a non-negative integer"}})
			return
		}
		retentionDays = parsed
	}

	result, err := h.pastes.Purge(c.Request.Context(), retentionDays)
	if err != nil {
		h.respondServiceError(c, "purge", err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.pastes.Stats(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "stats", err)
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

func (h *httpHandler) handleExpirePaste(c *gin.Context) {
	id := c.Param("id")
	if err := pastes.ValidateID(id); err != nil {
		h.respondServiceError(c, "expire", err)
		return
	}
	if err := h.pastes.MarkExpired(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, "expire", err)
		return
	}
	h.logger.Info("paste expired manually",
		zap.String("paste_id", id),
		zap.String("request_id", c.GetString(requestIDContextKey)))
	respondSuccess(c, http.StatusOK, expireResponse{ID: id, IsExpired: true})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"timestamp":     now.UTC(),
		"uptimeSeconds": int64(now.Sub(h.options.StartedAt).Seconds()),
		"version":       h.options.Version,
	})
}

func (h *httpHandler) handleHealthDB(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbCheckTimeout)
	defer cancel()

	if err := h.pastes.Ping(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": "disconnected",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "connected",
	})
}

// shareURL builds the frontend link for a paste.
func (h *httpHandler) shareURL(c *gin.Context, id string) string {
	base := h.options.PublicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return strings.TrimRight(base, "/") + "/p/" + id
}
