package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvocoding/testmateai/internal/services"
	"github.com/mvocoding/testmateai/internal/utils"
)

type HandlerManager struct {
	sessionHandler      *SessionHandler
	practiceHandler     *PracticeHandler
	chatHandler         *ChatHandler
	dashboardHandler    *DashboardHandler
	importExportHandler *ImportExportHandler
}

type Services struct {
	Session      services.SessionService
	Practice     services.PracticeService
	Activity     services.ActivityService
	Chat         services.ChatService
	Dashboard    services.DashboardService
	Vocabulary   services.VocabularyService
	ImportExport services.ImportExportService
}

func NewHandlerManager(svc Services, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		sessionHandler:      NewSessionHandler(svc.Session, logger),
		practiceHandler:     NewPracticeHandler(svc.Practice, svc.Activity, logger),
		chatHandler:         NewChatHandler(svc.Chat, logger),
		dashboardHandler:    NewDashboardHandler(svc.Dashboard, svc.Vocabulary, logger),
		importExportHandler: NewImportExportHandler(svc.ImportExport, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		// Mock test session routes
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/section/start", hm.sessionHandler.StartSection)
			sessions.POST("/:id/next", hm.sessionHandler.NextQuestion)
			sessions.POST("/:id/prev", hm.sessionHandler.PrevQuestion)
			sessions.POST("/:id/answer", hm.sessionHandler.SaveAnswer)
			sessions.POST("/:id/audio/play", hm.sessionHandler.PlayAudio)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.GET("/:id/progress", hm.sessionHandler.GetProgress)
			sessions.GET("/:id/result", hm.sessionHandler.GetResult)
			sessions.POST("/:id/retake", hm.sessionHandler.RetakeSession)
		}

		// Practice content routes
		practice := v1.Group("/practice")
		{
			practice.GET("/:skill/questions", hm.practiceHandler.GetPracticeQuestions)
			practice.GET("/:skill/passages", hm.practiceHandler.GetPracticePassages)
		}

		// Mock test catalogue routes
		tests := v1.Group("/mock-tests")
		{
			tests.GET("", hm.practiceHandler.ListMockTests)
			tests.GET("/:id/sections/:skill", hm.practiceHandler.GetSectionQuestions)
		}

		// Chat assistant
		v1.POST("/chat", hm.chatHandler.SendMessage)

		// User progress routes
		users := v1.Group("/users/:user_id")
		{
			users.GET("/dashboard", hm.dashboardHandler.GetDashboard)
			users.POST("/activities", hm.practiceHandler.AddActivity)
			users.GET("/vocabulary", hm.dashboardHandler.GetVocabulary)
			users.POST("/vocabulary", hm.dashboardHandler.AddVocabulary)
			users.GET("/results/export", hm.importExportHandler.ExportResults)
		}

		// Question import
		v1.POST("/questions/import", hm.importExportHandler.ImportQuestions)
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "testmate-service",
	})
}
