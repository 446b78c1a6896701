package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

// PracticeHandler serves practice content and the mock test catalogue.
type PracticeHandler struct {
	BaseHandler
	practice   services.PracticeService
	activities services.ActivityService
}

func NewPracticeHandler(
	practice services.PracticeService,
	activities services.ActivityService,
	logger utils.Logger,
) *PracticeHandler {
	return &PracticeHandler{
		BaseHandler: NewBaseHandler(logger),
		practice:    practice,
		activities:  activities,
	}
}

// GetPracticeQuestions returns standalone practice questions for a skill.
func (h *PracticeHandler) GetPracticeQuestions(c *gin.Context) {
	skill := models.Skill(c.Param("skill"))
	limit := h.parseIntQuery(c, "limit", 0)

	questions, err := h.practice.GetPracticeQuestions(c.Request.Context(), skill, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions, "count": len(questions)})
}

// GetPracticePassages returns listening/reading passages with questions.
func (h *PracticeHandler) GetPracticePassages(c *gin.Context) {
	skill := models.Skill(c.Param("skill"))
	limit := h.parseIntQuery(c, "limit", 0)

	passages, err := h.practice.GetPracticePassages(c.Request.Context(), skill, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"passages": passages, "count": len(passages)})
}

// ListMockTests returns the available mock tests.
func (h *PracticeHandler) ListMockTests(c *gin.Context) {
	limit := h.parseIntQuery(c, "limit", 0)

	tests, err := h.practice.GetMockTests(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tests": tests, "count": len(tests)})
}

// GetSectionQuestions returns one section's content for a mock test.
func (h *PracticeHandler) GetSectionQuestions(c *gin.Context) {
	testID, ok := h.parseUintParam(c, "id")
	if !ok {
		return
	}
	skill := models.Skill(c.Param("skill"))
	limit := h.parseIntQuery(c, "limit", 0)

	passages, questions, err := h.practice.FetchMockTestQuestions(c.Request.Context(), testID, skill, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"passages":  passages,
		"questions": questions,
	})
}

type AddActivityBody struct {
	Type    models.ActivityType `json:"type" binding:"required"`
	Skill   models.Skill        `json:"skill"`
	Score   float64             `json:"score"`
	Band    float64             `json:"band"`
	Details []byte              `json:"details"`
}

// AddActivity records a practice outcome for a user.
func (h *PracticeHandler) AddActivity(c *gin.Context) {
	userID, ok := h.parseUintParam(c, "user_id")
	if !ok {
		return
	}

	var body AddActivityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	activity, err := h.activities.AddActivity(c.Request.Context(), userID, services.AddActivityRequest{
		Type:    body.Type,
		Skill:   body.Skill,
		Score:   body.Score,
		Band:    body.Band,
		Details: body.Details,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, activity)
}
