package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

// DashboardHandler serves the progress dashboard and vocabulary list.
type DashboardHandler struct {
	BaseHandler
	dashboard  services.DashboardService
	vocabulary services.VocabularyService
}

func NewDashboardHandler(
	dashboard services.DashboardService,
	vocabulary services.VocabularyService,
	logger utils.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		dashboard:   dashboard,
		vocabulary:  vocabulary,
	}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := h.parseUintParam(c, "user_id")
	if !ok {
		return
	}

	dashboard, err := h.dashboard.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

type AddWordsRequest struct {
	Words []string `json:"words" binding:"required,min=1"`
}

func (h *DashboardHandler) AddVocabulary(c *gin.Context) {
	userID, ok := h.parseUintParam(c, "user_id")
	if !ok {
		return
	}

	var req AddWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	saved, err := h.vocabulary.AddWords(c.Request.Context(), userID, req.Words)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"saved": saved, "count": len(saved)})
}

func (h *DashboardHandler) GetVocabulary(c *gin.Context) {
	userID, ok := h.parseUintParam(c, "user_id")
	if !ok {
		return
	}
	limit := h.parseIntQuery(c, "limit", 0)

	words, err := h.vocabulary.GetWords(c.Request.Context(), userID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"words": words, "count": len(words)})
}
