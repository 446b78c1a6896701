package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mvocoding/testmateai/internal/events"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
	"gorm.io/datatypes"
)

// XP awarded per recorded activity, by type.
const (
	xpPractice = 10
	xpMockTest = 50
	xpChat     = 5
)

type AddActivityRequest struct {
	Type    models.ActivityType `json:"type" validate:"required"`
	Skill   models.Skill        `json:"skill,omitempty" validate:"omitempty,skill"`
	Score   float64             `json:"score" validate:"gte=0,lte=100"`
	Band    float64             `json:"band" validate:"omitempty,band"`
	Details []byte              `json:"details,omitempty"`
}

// ActivityService records practice and mock-test outcomes and keeps the
// user's XP total in step with them.
type ActivityService interface {
	AddActivity(ctx context.Context, userID uint, req AddActivityRequest) (*models.Activity, error)
	GetActivities(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error)
}

type activityService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	validator *utils.Validator
	logger    utils.Logger
}

func NewActivityService(
	repo repositories.Repository,
	publisher events.EventPublisher,
	validator *utils.Validator,
	logger utils.Logger,
) ActivityService {
	return &activityService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		logger:    logger,
	}
}

func (s *activityService) AddActivity(ctx context.Context, userID uint, req AddActivityRequest) (*models.Activity, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	activity := &models.Activity{
		UserID:  userID,
		Type:    req.Type,
		Skill:   req.Skill,
		Score:   req.Score,
		Band:    req.Band,
		XP:      xpForActivity(req.Type),
		Details: datatypes.JSON(req.Details),
	}

	if err := s.repo.Activity().Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	if err := s.repo.User().AddXP(ctx, userID, activity.XP); err != nil {
		// The activity row exists; a missed XP increment is not worth
		// failing the whole recording over.
		s.logger.Error("Failed to add XP", "user_id", userID, "xp", activity.XP, "error", err)
	}
	s.updateStreak(ctx, userID)

	s.logger.Info("Activity recorded",
		"user_id", userID, "type", req.Type, "skill", req.Skill, "xp", activity.XP)

	if s.publisher != nil {
		event := events.NewTestEvent(events.EventActivityRecorded, events.ActivityRecordedEvent{
			UserID: userID,
			Type:   req.Type,
			Skill:  req.Skill,
			Band:   req.Band,
			XP:     activity.XP,
		})
		if err := s.publisher.PublishTestEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to publish activity event", "user_id", userID, "error", err)
		}
	}

	return activity, nil
}

func (s *activityService) GetActivities(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	return s.repo.Activity().GetByUser(ctx, userID, filters)
}

// updateStreak bumps the daily streak: consecutive-day activity extends it,
// a gap resets it to 1, repeat activity on the same day leaves it alone.
func (s *activityService) updateStreak(ctx context.Context, userID uint) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load user for streak update", "user_id", userID, "error", err)
		return
	}

	now := time.Now()
	today := now.Truncate(24 * time.Hour)

	switch {
	case user.LastActive == nil:
		user.Streak = 1
	case user.LastActive.Truncate(24 * time.Hour).Equal(today):
		// Already counted today.
	case user.LastActive.Truncate(24 * time.Hour).Equal(today.AddDate(0, 0, -1)):
		user.Streak++
	default:
		user.Streak = 1
	}
	user.LastActive = &now

	if err := s.repo.User().Update(ctx, user); err != nil {
		s.logger.Warn("Failed to update streak", "user_id", userID, "error", err)
	}
}

func xpForActivity(activityType models.ActivityType) int {
	switch activityType {
	case models.ActivityMockTest:
		return xpMockTest
	case models.ActivityChat:
		return xpChat
	default:
		return xpPractice
	}
}
