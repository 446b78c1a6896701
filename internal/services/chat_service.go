package services

import (
	"context"
	"strings"

	"github.com/mvocoding/testmateai/internal/ai"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/utils"
)

const chatFallbackMessage = "Sorry, I couldn't process that right now. Please try again in a moment."

const maxChatHistory = 20

// ChatService runs the IELTS assistant conversation. Model failures degrade
// to a canned reply instead of surfacing an error.
type ChatService interface {
	SendMessage(ctx context.Context, userID uint, message string, history []ai.ChatMessage) (string, error)
}

type chatService struct {
	generator  ai.TextGenerator
	activities ActivityService
	logger     utils.Logger
}

func NewChatService(generator ai.TextGenerator, activities ActivityService, logger utils.Logger) ChatService {
	return &chatService{
		generator:  generator,
		activities: activities,
		logger:     logger,
	}
}

func (s *chatService) SendMessage(ctx context.Context, userID uint, message string, history []ai.ChatMessage) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", NewValidationError("message", "message must not be empty", "")
	}
	if len(history) > maxChatHistory {
		history = history[len(history)-maxChatHistory:]
	}

	prompt := ai.BuildChatPrompt(message, history)

	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.Warn("Chat generation failed, returning fallback",
			"user_id", userID, "error", err)
		return chatFallbackMessage, nil
	}

	if s.activities != nil {
		go func() {
			if _, err := s.activities.AddActivity(context.Background(), userID, AddActivityRequest{
				Type: models.ActivityChat,
			}); err != nil {
				s.logger.Warn("Failed to record chat activity", "user_id", userID, "error", err)
			}
		}()
	}

	return strings.TrimSpace(reply), nil
}
