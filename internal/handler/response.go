package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"factmarket/internal/amm"
	"factmarket/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// serviceError maps the engine's error taxonomy onto HTTP statuses and
// renders the standard envelope.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMarketNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrMarketClosed),
		errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrInvalidTransition):
		Error(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, service.ErrInsufficientBalance):
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, service.ErrConcurrentModification):
		Error(c, http.StatusServiceUnavailable, err.Error(), nil)
	case errors.Is(err, amm.ErrInvalidAmount),
		errors.Is(err, amm.ErrInvalidOutcome),
		errors.Is(err, amm.ErrInsufficientLiquidity):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryDefault(c *gin.Context, key string, def bool) bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func paginationMeta(limit, offset int, total int64) map[string]any {
	if limit <= 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"total":    total,
		"has_next": int64(offset+limit) < total,
	}
}
