package services

import (
	"context"
	"fmt"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
)

const recentActivityLimit = 10

// Dashboard is the aggregate view of a user's progress.
type Dashboard struct {
	UserID        uint                     `json:"user_id"`
	Name          string                   `json:"name"`
	XP            int                      `json:"xp"`
	Streak        int                      `json:"streak"`
	TargetBand    float64                  `json:"target_band"`
	SkillAverages map[models.Skill]float64 `json:"skill_averages"`
	OverallBand   float64                  `json:"overall_band"`
	Recent        []*models.Activity       `json:"recent_activity"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context, userID uint) (*Dashboard, error)
}

type dashboardService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewDashboardService(repo repositories.Repository, logger utils.Logger) DashboardService {
	return &dashboardService{repo: repo, logger: logger}
}

func (s *dashboardService) GetDashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	averages, err := s.repo.Activity().GetSkillAverages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get skill averages: %w", err)
	}

	recent, _, err := s.repo.Activity().GetByUser(ctx, userID, repositories.ActivityFilters{
		Limit: recentActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}

	// Overall band averages the skills that have any history; a brand-new
	// user shows 0 rather than a fabricated score.
	var sum float64
	var n int
	for _, skill := range models.SectionOrder {
		if avg, ok := averages[skill]; ok && avg > 0 {
			sum += avg
			n++
		}
	}
	overall := 0.0
	if n > 0 {
		overall = models.RoundBand(sum / float64(n))
	}

	return &Dashboard{
		UserID:        user.ID,
		Name:          user.Name,
		XP:            user.XP,
		Streak:        user.Streak,
		TargetBand:    user.TargetBand,
		SkillAverages: averages,
		OverallBand:   overall,
		Recent:        recent,
	}, nil
}
