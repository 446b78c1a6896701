package postgres

import (
	"context"
	"fmt"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})

	if filters.Skill != nil {
		query = query.Where("skill = ?", *filters.Skill)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.TestID != nil {
		query = query.Where("test_id = ?", *filters.TestID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var questions []*models.Question
	if err := query.Order("id").Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

func (q *QuestionPostgreSQL) GetPracticeQuestions(ctx context.Context, skill models.Skill, limit int) ([]*models.Question, error) {
	var questions []*models.Question
	query := q.db.WithContext(ctx).
		Where("skill = ? AND passage_id IS NULL AND test_id IS NULL", skill).
		Order("RANDOM()")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get practice questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) CreatePassage(ctx context.Context, passage *models.Passage) error {
	if err := q.db.WithContext(ctx).Create(passage).Error; err != nil {
		return fmt.Errorf("failed to create passage: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetPassagesBySkill(ctx context.Context, skill models.Skill, testID *uint, limit int) ([]*models.Passage, error) {
	query := q.db.WithContext(ctx).Preload("Questions").Where("skill = ?", skill)
	if testID != nil {
		query = query.Where("test_id = ?", *testID)
	} else {
		query = query.Where("test_id IS NULL")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var passages []*models.Passage
	if err := query.Order("id").Find(&passages).Error; err != nil {
		return nil, fmt.Errorf("failed to get passages: %w", err)
	}
	return passages, nil
}
