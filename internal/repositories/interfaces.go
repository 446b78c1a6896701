package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/mvocoding/testmateai/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type QuestionFilters struct {
	Skill  *models.Skill        `json:"skill"`
	Type   *models.QuestionType `json:"type"`
	TestID *uint                `json:"test_id"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

type ActivityFilters struct {
	Type     *models.ActivityType `json:"type"`
	Skill    *models.Skill        `json:"skill"`
	DateFrom *time.Time           `json:"date_from"`
	DateTo   *time.Time           `json:"date_to"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

// QuestionRepository serves practice questions and per-section mock test
// content.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)

	// GetPracticeQuestions returns standalone questions for one skill.
	GetPracticeQuestions(ctx context.Context, skill models.Skill, limit int) ([]*models.Question, error)

	// Passage queries (listening/reading content).
	CreatePassage(ctx context.Context, passage *models.Passage) error
	GetPassagesBySkill(ctx context.Context, skill models.Skill, testID *uint, limit int) ([]*models.Passage, error)
}

type MockTestRepository interface {
	Create(ctx context.Context, test *models.MockTest) error
	GetByID(ctx context.Context, id uint) (*models.MockTest, error)
	List(ctx context.Context, limit int) ([]*models.MockTest, error)

	// FetchSectionQuestions loads one section's content for a test.
	FetchSectionQuestions(ctx context.Context, testID uint, skill models.Skill, limit int) ([]*models.Passage, []*models.Question, error)

	// FetchTestQuestions loads all four sections at once.
	FetchTestQuestions(ctx context.Context, testID uint) (*models.TestQuestions, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByUser(ctx context.Context, userID uint, filters ActivityFilters) ([]*models.Activity, int64, error)
	GetSkillAverages(ctx context.Context, userID uint) (map[models.Skill]float64, error)
}

type VocabularyRepository interface {
	// AddWords inserts new words, skipping duplicates, and returns the rows
	// actually saved.
	AddWords(ctx context.Context, userID uint, words []string) ([]*models.VocabularyWord, error)
	GetByUser(ctx context.Context, userID uint, limit int) ([]*models.VocabularyWord, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	AddXP(ctx context.Context, userID uint, xp int) error
}

// Repository aggregates all repositories, the service layer's single
// persistence dependency.
type Repository interface {
	Question() QuestionRepository
	MockTest() MockTestRepository
	Activity() ActivityRepository
	Vocabulary() VocabularyRepository
	User() UserRepository
}

// ===== ERROR HELPERS =====

func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
