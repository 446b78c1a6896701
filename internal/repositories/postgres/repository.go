package postgres

import (
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	question   repositories.QuestionRepository
	mockTest   repositories.MockTestRepository
	activity   repositories.ActivityRepository
	vocabulary repositories.VocabularyRepository
	user       repositories.UserRepository
}

// NewRepository wires all PostgreSQL repositories over one gorm.DB.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		question:   NewQuestionPostgreSQL(db),
		mockTest:   NewMockTestPostgreSQL(db),
		activity:   NewActivityPostgreSQL(db),
		vocabulary: NewVocabularyPostgreSQL(db),
		user:       NewUserPostgreSQL(db),
	}
}

func (r *repository) Question() repositories.QuestionRepository     { return r.question }
func (r *repository) MockTest() repositories.MockTestRepository     { return r.mockTest }
func (r *repository) Activity() repositories.ActivityRepository     { return r.activity }
func (r *repository) Vocabulary() repositories.VocabularyRepository { return r.vocabulary }
func (r *repository) User() repositories.UserRepository             { return r.user }
