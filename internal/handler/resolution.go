package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"factmarket/internal/models"
	"factmarket/internal/service"
)

type ResolutionHandler struct {
	Lifecycle *service.LifecycleService
}

func (h *ResolutionHandler) Register(r *gin.Engine) {
	m := r.Group("/api/v1/markets")
	m.POST("/:id/resolve", h.resolve)
	m.POST("/:id/cancel", h.cancel)
}

type resolveRequest struct {
	WinningOutcome string `json:"winning_outcome"`
	Source         string `json:"source"`
}

func (h *ResolutionHandler) resolve(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusServiceUnavailable, "lifecycle unavailable", nil)
		return
	}
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	winner := strings.ToLower(strings.TrimSpace(req.WinningOutcome))
	if winner != models.OutcomeYes && winner != models.OutcomeNo {
		Error(c, http.StatusBadRequest, "winning_outcome must be yes or no", nil)
		return
	}
	result, err := h.Lifecycle.Resolve(c.Request.Context(), c.Param("id"), winner, strings.TrimSpace(req.Source))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *ResolutionHandler) cancel(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusServiceUnavailable, "lifecycle unavailable", nil)
		return
	}
	result, err := h.Lifecycle.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}
