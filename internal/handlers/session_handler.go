package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

// SessionHandler exposes the mock test session lifecycle over HTTP.
type SessionHandler struct {
	BaseHandler
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
	}
}

type StartSessionRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	TestID uint `json:"test_id" binding:"required"`
}

type SaveAnswerRequest struct {
	Key    string      `json:"key" binding:"required"`
	Answer interface{} `json:"answer"`
}

// StartSession begins a new mock test session for a user.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting mock test session", "user_id", req.UserID, "test_id", req.TestID)

	view, err := h.sessions.Start(c.Request.Context(), req.UserID, req.TestID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession returns the current session snapshot.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	view, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// StartSection moves from a section introduction into its first question.
func (h *SessionHandler) StartSection(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting section", "session_id", sessionID)

	view, err := h.sessions.StartSection(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// NextQuestion advances to the next question or section.
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	view, err := h.sessions.Next(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// PrevQuestion goes back to the previous question or section.
func (h *SessionHandler) PrevQuestion(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	view, err := h.sessions.Prev(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SaveAnswer stores an answer for the current section.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessions.SaveAnswer(c.Request.Context(), sessionID, req.Key, req.Answer); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Answer saved"})
}

// PlayAudio starts playback of the current listening passage.
func (h *SessionHandler) PlayAudio(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	if err := h.sessions.PlayPassageAudio(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Playback started"})
}

// SubmitSession submits the whole test for scoring.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting mock test", "session_id", sessionID)

	view, err := h.sessions.Submit(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, view)
}

// GetProgress reports scoring progress while the submission runs.
func (h *SessionHandler) GetProgress(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	completed, total, state, err := h.sessions.Progress(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"completed": completed,
		"total":     total,
		"state":     state,
	})
}

// GetResult returns the final scored result.
func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	result, err := h.sessions.Result(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RetakeSession resets a finished session back to the start of the test.
func (h *SessionHandler) RetakeSession(c *gin.Context) {
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Retaking mock test", "session_id", sessionID)

	view, err := h.sessions.Retake(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
