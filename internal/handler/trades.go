package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"factmarket/internal/service"
)

type TradeHandler struct {
	Trading *service.TradingService
}

func (h *TradeHandler) Register(r *gin.Engine) {
	r.POST("/api/v1/markets/:id/trades", h.execute)
}

type tradeRequest struct {
	UserID  string          `json:"user_id"`
	Outcome string          `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *TradeHandler) execute(c *gin.Context) {
	if h.Trading == nil {
		Error(c, http.StatusServiceUnavailable, "trading unavailable", nil)
		return
	}
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	result, err := h.Trading.ExecuteTrade(c.Request.Context(), req.UserID, c.Param("id"), req.Outcome, req.Amount)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}
