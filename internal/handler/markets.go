package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"factmarket/internal/repository"
	"factmarket/internal/service"
)

type MarketHandler struct {
	Repo      repository.Repository
	Lifecycle *service.LifecycleService
	Trading   *service.TradingService
}

func (h *MarketHandler) Register(r *gin.Engine) {
	m := r.Group("/api/v1/markets")
	m.POST("", h.create)
	m.GET("", h.list)
	m.GET("/:id", h.get)
	m.GET("/:id/price", h.price)
	m.GET("/:id/history", h.history)
	m.GET("/:id/trades", h.trades)
	m.GET("/:id/seed-attempts", h.seedAttempts)
}

func (h *MarketHandler) create(c *gin.Context) {
	if h.Lifecycle == nil {
		Error(c, http.StatusServiceUnavailable, "lifecycle unavailable", nil)
		return
	}
	var input service.CreateMarketInput
	if err := c.ShouldBindJSON(&input); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if strings.TrimSpace(input.Question) == "" {
		Error(c, http.StatusBadRequest, "question is required", nil)
		return
	}
	market, err := h.Lifecycle.CreateMarket(c.Request.Context(), input)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, market, nil)
}

func (h *MarketHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	var category *string
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		category = &v
	}
	params := repository.ListMarketsParams{
		Status:   status,
		Category: category,
		Limit:    limit,
		Offset:   offset,
		OrderBy:  "created_at",
	}
	items, err := h.Repo.ListMarkets(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	total, err := h.Repo.CountMarkets(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *MarketHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	ref := strings.TrimSpace(c.Param("id"))
	if ref == "" {
		Error(c, http.StatusBadRequest, "invalid market id", nil)
		return
	}
	market, err := h.Repo.GetMarketByID(c.Request.Context(), ref)
	if err != nil {
		serviceError(c, err)
		return
	}
	if market == nil {
		// Allow lookup by slug as a fallback for human-facing links.
		market, err = h.Repo.GetMarketBySlug(c.Request.Context(), ref)
		if err != nil {
			serviceError(c, err)
			return
		}
	}
	if market == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	Ok(c, market, nil)
}

func (h *MarketHandler) price(c *gin.Context) {
	if h.Trading == nil {
		Error(c, http.StatusServiceUnavailable, "trading unavailable", nil)
		return
	}
	quote, err := h.Trading.Price(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	volume, err := h.Trading.Volume(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, quote, map[string]any{"volume": volume})
}

func (h *MarketHandler) history(c *gin.Context) {
	if h.Trading == nil {
		Error(c, http.StatusServiceUnavailable, "trading unavailable", nil)
		return
	}
	days := intQuery(c, "days", 7)
	points, err := h.Trading.History(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, points, map[string]any{"days": days, "points": len(points)})
}

func (h *MarketHandler) trades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListTradesByMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

// seedAttempts exposes the seeding audit trail for a market, newest first.
func (h *MarketHandler) seedAttempts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSeedAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}
