package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"factmarket/internal/service"
)

type VoteHandler struct {
	Votes *service.VoteService
}

func (h *VoteHandler) Register(r *gin.Engine) {
	m := r.Group("/api/v1/markets")
	m.POST("/:id/votes", h.submit)
	m.GET("/:id/votes", h.tally)
}

type voteRequest struct {
	UserID     string  `json:"user_id"`
	Outcome    string  `json:"outcome"`
	Confidence *int    `json:"confidence"`
	Reasoning  *string `json:"reasoning"`
}

func (h *VoteHandler) submit(c *gin.Context) {
	if h.Votes == nil {
		Error(c, http.StatusServiceUnavailable, "votes unavailable", nil)
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	vote, err := h.Votes.Submit(c.Request.Context(), service.VoteInput{
		MarketID:   c.Param("id"),
		UserID:     req.UserID,
		Outcome:    strings.ToLower(strings.TrimSpace(req.Outcome)),
		Confidence: req.Confidence,
		Reasoning:  req.Reasoning,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, vote, nil)
}

func (h *VoteHandler) tally(c *gin.Context) {
	if h.Votes == nil {
		Error(c, http.StatusServiceUnavailable, "votes unavailable", nil)
		return
	}
	tally, err := h.Votes.Tally(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, err)
		return
	}
	if boolQueryDefault(c, "include_votes", false) {
		votes, err := h.Votes.List(c.Request.Context(), c.Param("id"))
		if err != nil {
			serviceError(c, err)
			return
		}
		Ok(c, gin.H{"tally": tally, "votes": votes}, nil)
		return
	}
	Ok(c, tally, nil)
}
