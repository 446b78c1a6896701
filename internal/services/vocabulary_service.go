package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
)

const maxVocabularyBatch = 50

// VocabularyService maintains a user's saved word list.
type VocabularyService interface {
	// AddWords normalizes and saves new words, skipping duplicates, and
	// returns only the rows actually inserted.
	AddWords(ctx context.Context, userID uint, words []string) ([]*models.VocabularyWord, error)
	GetWords(ctx context.Context, userID uint, limit int) ([]*models.VocabularyWord, error)
}

type vocabularyService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewVocabularyService(repo repositories.Repository, logger utils.Logger) VocabularyService {
	return &vocabularyService{repo: repo, logger: logger}
}

func (s *vocabularyService) AddWords(ctx context.Context, userID uint, words []string) ([]*models.VocabularyWord, error) {
	normalized := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		normalized = append(normalized, word)
	}

	if len(normalized) == 0 {
		return nil, NewValidationError("words", "at least one non-empty word is required", "")
	}
	if len(normalized) > maxVocabularyBatch {
		return nil, NewValidationError("words", fmt.Sprintf("at most %d words per request", maxVocabularyBatch), "")
	}

	saved, err := s.repo.Vocabulary().AddWords(ctx, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to add vocabulary words: %w", err)
	}

	s.logger.Info("Vocabulary words saved",
		"user_id", userID, "requested", len(normalized), "saved", len(saved))
	return saved, nil
}

func (s *vocabularyService) GetWords(ctx context.Context, userID uint, limit int) ([]*models.VocabularyWord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.Vocabulary().GetByUser(ctx, userID, limit)
}
