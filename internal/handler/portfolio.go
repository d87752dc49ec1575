package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"factmarket/internal/repository"
	"factmarket/internal/service"
)

type PortfolioHandler struct {
	Repo      repository.Repository
	Portfolio *service.PortfolioService
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	u := r.Group("/api/v1/users")
	u.GET("/:id/portfolio", h.portfolio)
	u.GET("/:id/positions", h.positions)
	u.GET("/:id/balance", h.balance)
}

func (h *PortfolioHandler) portfolio(c *gin.Context) {
	if h.Portfolio == nil {
		Error(c, http.StatusServiceUnavailable, "portfolio unavailable", nil)
		return
	}
	summary, err := h.Portfolio.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, summary, nil)
}

func (h *PortfolioHandler) positions(c *gin.Context) {
	if h.Portfolio == nil {
		Error(c, http.StatusServiceUnavailable, "portfolio unavailable", nil)
		return
	}
	includeResolved := boolQueryDefault(c, "include_resolved", false)
	positions, err := h.Portfolio.Positions(c.Request.Context(), c.Param("id"), includeResolved)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, positions, map[string]any{"total": len(positions)})
}

func (h *PortfolioHandler) balance(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	balance, err := h.Repo.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	if balance == nil {
		// Balances materialize on first trade; unseen users report zero.
		Ok(c, gin.H{
			"user_id":           c.Param("id"),
			"available_credits": decimal.Zero,
			"locked_credits":    decimal.Zero,
		}, nil)
		return
	}
	Ok(c, balance, nil)
}
