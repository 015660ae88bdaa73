package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// GetChat returns the assistant conversation.
func (h *Handler) GetChat(c *gin.Context) {
	messages, err := h.svc.Chat.History(c.Request.Context(), sessionFrom(c))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// PostChat sends a question and returns the assistant reply.
func (h *Handler) PostChat(c *gin.Context) {
	var req chatRequest
	if !h.bindJSON(c, &req) {
		return
	}

	reply, err := h.svc.Chat.Send(c.Request.Context(), sessionFrom(c), req.Message)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
