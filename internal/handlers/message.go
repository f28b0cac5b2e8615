package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meme-service/internal/chat"
	"meme-service/internal/repositories"
)

// MessageHandler owns the message write path.
type MessageHandler struct {
	dispatcher *chat.Dispatcher
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(dispatcher *chat.Dispatcher) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher}
}

// PostMessage validates and appends one message. The open subscriptions of
// both participants pick the change up on their own; nothing is pushed here.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
		Body       string `json:"body"`
		Attachment string `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.dispatcher.Send(c.Request.Context(), userID, req.ReceiverID, req.Body, req.Attachment)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrSelfMessage), errors.Is(err, chat.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repositories.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}
