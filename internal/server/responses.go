package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umangkumarchaudhary/Pastebin-Lite--Aganitha/internal/pastes"
	"go.uber.org/zap"
)

const (
	codeValidationError    = "VALIDATION_ERROR"
	codeNotFound           = "NOT_FOUND"
	codePasteExpired       = "PASTE_EXPIRED"
	codeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	codeInternalError      = "INTERNAL_ERROR"
	codeUnauthorized       = "UNAUTHORIZED"
	codeConfigurationError = "CONFIGURATION_ERROR"
	codePayloadTooLarge    = "PAYLOAD_TOO_LARGE"

	messageInvalidRequest = "Invalid request"
	messagePasteNotFound  = "Paste not found"
	messageInternalError  = "Internal server error"
	messageInvalidPasteID = "Invalid paste ID"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func respondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, successEnvelope{Success: true, Data: data})
}

func abortWithError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, errorEnvelope{
		Error: errorDetail{Code: code, Message: message, Details: details},
	})
}

// respondServiceError maps store and validation errors onto the JSON envelope.
func (h *httpHandler) respondServiceError(c *gin.Context, operation string, err error) {
	var validationErr *pastes.ValidationError
	var expiredErr *pastes.ExpiredError
	switch {
	case errors.As(err, &validationErr):
		abortWithError(c, http.StatusBadRequest, codeValidationError, messageInvalidRequest, validationErr.Fields)
	case errors.Is(err, pastes.ErrPasteNotFound):
		abortWithError(c, http.StatusNotFound, codeNotFound, messagePasteNotFound, nil)
	case errors.As(err, &expiredErr):
		h.metrics.observePasteEvent("rejected_" + string(expiredErr.Reason))
		abortWithError(c, http.StatusGone, codePasteExpired, expiredErr.Reason.Message(), gin.H{"reason": expiredErr.Reason})
	case errors.Is(err, pastes.ErrInvalidRetention):
		abortWithError(c, http.StatusBadRequest, codeValidationError, messageInvalidRequest,
			[]pastes.FieldError{{Field: "retentionDays", Message: "must be at least 0"}})
	default:
		h.respondInternalError(c, operation, err)
	}
}

func (h *httpHandler) respondInternalError(c *gin.Context, operation string, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("request_id", c.GetString(requestIDContextKey)),
		zap.Error(err),
	}
	if code := serviceErrorCode(err); code != "" {
		fields = append(fields, zap.String("code", code))
	}
	h.logger.Error("request failed", fields...)

	var details any
	if h.options.Development && err != nil {
		details = err.Error()
	}
	abortWithError(c, http.StatusInternalServerError, codeInternalError, messageInternalError, details)
}

// respondRawError writes the plain-text failure bodies of the raw endpoint.
func (h *httpHandler) respondRawError(c *gin.Context, err error) {
	var validationErr *pastes.ValidationError
	var expiredErr *pastes.ExpiredError
	switch {
	case errors.As(err, &validationErr):
		abortWithText(c, http.StatusBadRequest, messageInvalidPasteID)
	case errors.Is(err, pastes.ErrPasteNotFound):
		abortWithText(c, http.StatusNotFound, messagePasteNotFound)
	case errors.As(err, &expiredErr):
		h.metrics.observePasteEvent("rejected_" + string(expiredErr.Reason))
		abortWithText(c, http.StatusGone, expiredErr.Reason.Message())
	default:
		h.logger.Error("request failed",
			zap.String("operation", "raw"),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.String("code", serviceErrorCode(err)),
			zap.Error(err))
		message := messageInternalError
		if h.options.Development && err != nil {
			message = messageInternalError + ": " + err.Error()
		}
		abortWithText(c, http.StatusInternalServerError, message)
	}
}

func abortWithText(c *gin.Context, status int, message string) {
	c.Abort()
	c.Data(status, "text/plain; charset=utf-8", []byte(message))
}

func serviceErrorCode(err error) string {
	var serviceErr *pastes.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code()
	}
	return ""
}
