package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvocoding/testmateai/internal/cache"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/repositories"
	"github.com/mvocoding/testmateai/internal/utils"
)

const (
	practiceCacheTTL = 10 * time.Minute
	mockTestCacheTTL = 30 * time.Minute

	defaultPracticeLimit = 10
	defaultMockTestLimit = 20
)

// PracticeService serves practice content and mock test listings. Reads go
// through the cache; a cache failure falls back to the database.
type PracticeService interface {
	GetPracticeQuestions(ctx context.Context, skill models.Skill, limit int) ([]*models.Question, error)
	GetPracticePassages(ctx context.Context, skill models.Skill, limit int) ([]*models.Passage, error)
	GetMockTests(ctx context.Context, limit int) ([]*models.MockTest, error)
	FetchMockTestQuestions(ctx context.Context, testID uint, skill models.Skill, limit int) ([]*models.Passage, []*models.Question, error)
}

type practiceService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger utils.Logger
}

func NewPracticeService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger) PracticeService {
	if cacheService == nil {
		cacheService = cache.NoopCache{}
	}
	return &practiceService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

func (s *practiceService) GetPracticeQuestions(ctx context.Context, skill models.Skill, limit int) ([]*models.Question, error) {
	if !validSkill(skill) {
		return nil, ErrUnknownSkill
	}
	if limit <= 0 || limit > 50 {
		limit = defaultPracticeLimit
	}

	key := fmt.Sprintf("practice:questions:%s:%d", skill, limit)
	var cached []*models.Question
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	}

	questions, err := s.repo.Question().GetPracticeQuestions(ctx, skill, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get practice questions: %w", err)
	}

	if err := s.cache.Set(ctx, key, questions, practiceCacheTTL); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return questions, nil
}

func (s *practiceService) GetPracticePassages(ctx context.Context, skill models.Skill, limit int) ([]*models.Passage, error) {
	if skill != models.SkillListening && skill != models.SkillReading {
		return nil, ErrUnknownSkill
	}
	if limit <= 0 || limit > 20 {
		limit = defaultPracticeLimit
	}

	key := fmt.Sprintf("practice:passages:%s:%d", skill, limit)
	var cached []*models.Passage
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	}

	passages, err := s.repo.Question().GetPassagesBySkill(ctx, skill, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get practice passages: %w", err)
	}

	if err := s.cache.Set(ctx, key, passages, practiceCacheTTL); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return passages, nil
}

func (s *practiceService) GetMockTests(ctx context.Context, limit int) ([]*models.MockTest, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultMockTestLimit
	}

	key := fmt.Sprintf("mocktests:list:%d", limit)
	var cached []*models.MockTest
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Cache read failed", "key", key, "error", err)
	}

	tests, err := s.repo.MockTest().List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list mock tests: %w", err)
	}

	if err := s.cache.Set(ctx, key, tests, mockTestCacheTTL); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return tests, nil
}

func (s *practiceService) FetchMockTestQuestions(ctx context.Context, testID uint, skill models.Skill, limit int) ([]*models.Passage, []*models.Question, error) {
	if !validSkill(skill) {
		return nil, nil, ErrUnknownSkill
	}

	passages, questions, err := s.repo.MockTest().FetchSectionQuestions(ctx, testID, skill, limit)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrTestNotFound
		}
		return nil, nil, fmt.Errorf("failed to fetch section questions: %w", err)
	}
	return passages, questions, nil
}

func validSkill(skill models.Skill) bool {
	for _, s := range models.SectionOrder {
		if s == skill {
			return true
		}
	}
	return false
}
