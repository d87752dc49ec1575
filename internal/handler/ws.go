package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"factmarket/internal/repository"
	"factmarket/internal/stream"
)

type StreamHandler struct {
	Repo repository.Repository
	Hub  *stream.Hub
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/ws/markets/:id", h.stream)
}

func (h *StreamHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "stream unavailable", nil)
		return
	}
	marketID := c.Param("id")
	if h.Repo != nil {
		market, err := h.Repo.GetMarketByID(c.Request.Context(), marketID)
		if err != nil {
			serviceError(c, err)
			return
		}
		if market == nil {
			Error(c, http.StatusNotFound, "market not found", nil)
			return
		}
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	h.Hub.Serve(c.Request.Context(), conn, marketID)
}
