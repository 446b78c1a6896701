package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"timestamp", time.Now().Format(time.RFC3339),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)
	h.logger.LogError(err, message, fields...)
}

// parseUintParam reads a numeric path parameter, responding 400 on failure.
func (h *BaseHandler) parseUintParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
		})
		return 0, false
	}
	return uint(id), true
}

// sessionIDParam reads the session identifier from the path, responding 400
// when it is missing or blank.
func (h *BaseHandler) sessionIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid session id",
			Details: "id cannot be empty",
		})
		return "", false
	}
	return id, true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// handleServiceError maps service errors onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError,
		})
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var stateError *services.StateError
	if errors.As(err, &stateError) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Operation not allowed in current state",
			Details: stateError,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrTestNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrSessionExists),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})

	case errors.Is(err, services.ErrUnknownSkill),
		errors.Is(err, services.ErrNoQuestionsLoaded),
		errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})

	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
