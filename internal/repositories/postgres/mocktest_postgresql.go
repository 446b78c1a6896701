package postgres

import (
	"context"
	"fmt"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
)

type MockTestPostgreSQL struct {
	db *gorm.DB
}

func NewMockTestPostgreSQL(db *gorm.DB) repositories.MockTestRepository {
	return &MockTestPostgreSQL{db: db}
}

func (m *MockTestPostgreSQL) Create(ctx context.Context, test *models.MockTest) error {
	if err := m.db.WithContext(ctx).Create(test).Error; err != nil {
		return fmt.Errorf("failed to create mock test: %w", err)
	}
	return nil
}

func (m *MockTestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	var test models.MockTest
	if err := m.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (m *MockTestPostgreSQL) List(ctx context.Context, limit int) ([]*models.MockTest, error) {
	query := m.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var tests []*models.MockTest
	if err := query.Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("failed to list mock tests: %w", err)
	}
	return tests, nil
}

func (m *MockTestPostgreSQL) FetchSectionQuestions(ctx context.Context, testID uint, skill models.Skill, limit int) ([]*models.Passage, []*models.Question, error) {
	switch skill {
	case models.SkillListening, models.SkillReading:
		query := m.db.WithContext(ctx).Preload("Questions").
			Where("test_id = ? AND skill = ?", testID, skill)
		if limit > 0 {
			query = query.Limit(limit)
		}
		var passages []*models.Passage
		if err := query.Order("id").Find(&passages).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to fetch %s passages: %w", skill, err)
		}
		return passages, nil, nil

	default:
		query := m.db.WithContext(ctx).
			Where("test_id = ? AND skill = ? AND passage_id IS NULL", testID, skill)
		if limit > 0 {
			query = query.Limit(limit)
		}
		var questions []*models.Question
		if err := query.Order("id").Find(&questions).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to fetch %s questions: %w", skill, err)
		}
		return nil, questions, nil
	}
}

func (m *MockTestPostgreSQL) FetchTestQuestions(ctx context.Context, testID uint) (*models.TestQuestions, error) {
	out := &models.TestQuestions{}

	for _, skill := range models.SectionOrder {
		passages, questions, err := m.FetchSectionQuestions(ctx, testID, skill, 0)
		if err != nil {
			return nil, err
		}
		switch skill {
		case models.SkillListening:
			out.Listening = deref(passages)
		case models.SkillReading:
			out.Reading = deref(passages)
		case models.SkillWriting:
			out.Writing = deref(questions)
		case models.SkillSpeaking:
			out.Speaking = deref(questions)
		}
	}

	return out, nil
}

func deref[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
