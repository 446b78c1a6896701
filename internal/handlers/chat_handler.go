package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/ai"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

type ChatHandler struct {
	BaseHandler
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService, logger utils.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: NewBaseHandler(logger),
		chat:        chat,
	}
}

type ChatRequest struct {
	UserID  uint             `json:"user_id" binding:"required"`
	Message string           `json:"message" binding:"required"`
	History []ai.ChatMessage `json:"history"`
}

// SendMessage runs one turn of the IELTS assistant conversation.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	reply, err := h.chat.SendMessage(c.Request.Context(), req.UserID, req.Message, req.History)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
