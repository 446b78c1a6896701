package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VocabularyPostgreSQL struct {
	db *gorm.DB
}

func NewVocabularyPostgreSQL(db *gorm.DB) repositories.VocabularyRepository {
	return &VocabularyPostgreSQL{db: db}
}

func (v *VocabularyPostgreSQL) AddWords(ctx context.Context, userID uint, words []string) ([]*models.VocabularyWord, error) {
	rows := make([]*models.VocabularyWord, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		rows = append(rows, &models.VocabularyWord{UserID: userID, Word: word})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Words already in the user's list are silently skipped.
	err := v.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to add vocabulary words: %w", err)
	}

	saved := make([]*models.VocabularyWord, 0, len(rows))
	for _, row := range rows {
		if row.ID != 0 {
			saved = append(saved, row)
		}
	}
	return saved, nil
}

func (v *VocabularyPostgreSQL) GetByUser(ctx context.Context, userID uint, limit int) ([]*models.VocabularyWord, error) {
	query := v.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var words []*models.VocabularyWord
	if err := query.Find(&words).Error; err != nil {
		return nil, fmt.Errorf("failed to get vocabulary words: %w", err)
	}
	return words, nil
}
