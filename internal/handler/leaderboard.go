package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factmarket/internal/service"
)

type LeaderboardHandler struct {
	Stats *service.StatsService
}

func (h *LeaderboardHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/leaderboard", h.leaderboard)
	r.GET("/api/v1/users/:id/stats", h.userStats)
}

func (h *LeaderboardHandler) leaderboard(c *gin.Context) {
	if h.Stats == nil {
		Error(c, http.StatusServiceUnavailable, "stats unavailable", nil)
		return
	}
	days := intQuery(c, "days", 0)
	limit := intQuery(c, "limit", 0)
	entries, err := h.Stats.Leaderboard(c.Request.Context(), days, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, entries, map[string]any{"total": len(entries)})
}

func (h *LeaderboardHandler) userStats(c *gin.Context) {
	if h.Stats == nil {
		Error(c, http.StatusServiceUnavailable, "stats unavailable", nil)
		return
	}
	stats, err := h.Stats.UserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, stats, nil)
}
