package postgres

import (
	"context"
	"fmt"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
)

type ActivityPostgreSQL struct {
	db *gorm.DB
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{db: db}
}

func (a *ActivityPostgreSQL) Create(ctx context.Context, activity *models.Activity) error {
	if err := a.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (a *ActivityPostgreSQL) GetByUser(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.Activity, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.Activity{}).Where("user_id = ?", userID)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Skill != nil {
		query = query.Where("skill = ?", *filters.Skill)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var activities []*models.Activity
	if err := query.Order("created_at DESC").Find(&activities).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get activities: %w", err)
	}

	return activities, total, nil
}

func (a *ActivityPostgreSQL) GetSkillAverages(ctx context.Context, userID uint) (map[models.Skill]float64, error) {
	type row struct {
		Skill models.Skill
		Avg   float64
	}

	var rows []row
	err := a.db.WithContext(ctx).Model(&models.Activity{}).
		Select("skill, AVG(band) as avg").
		Where("user_id = ? AND band > 0", userID).
		Group("skill").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute skill averages: %w", err)
	}

	out := make(map[models.Skill]float64, len(rows))
	for _, r := range rows {
		out[r.Skill] = r.Avg
	}
	return out, nil
}
