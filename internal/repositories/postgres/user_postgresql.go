package postgres

import (
	"context"
	"fmt"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (u *UserPostgreSQL) AddXP(ctx context.Context, userID uint, xp int) error {
	err := u.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("xp", gorm.Expr("xp + ?", xp)).Error
	if err != nil {
		return fmt.Errorf("failed to add xp: %w", err)
	}
	return nil
}
