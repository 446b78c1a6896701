package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityPractice ActivityType = "practice"
	ActivityMockTest ActivityType = "mock_test"
	ActivityChat     ActivityType = "chat"
)

// User is the profile the dashboard and activity history hang off.
type User struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Name       string     `json:"name" gorm:"size:100"`
	Email      string     `json:"email" gorm:"size:200;uniqueIndex"`
	XP         int        `json:"xp" gorm:"default:0"`
	Streak     int        `json:"streak" gorm:"default:0"`
	TargetBand float64    `json:"target_band" gorm:"default:7"`
	LastActive *time.Time `json:"last_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Activity is one recorded practice/mock-test event, with the skill-specific
// payload kept as JSON.
type Activity struct {
	ID      uint           `json:"id" gorm:"primaryKey"`
	UserID  uint           `json:"user_id" gorm:"not null;index"`
	Type    ActivityType   `json:"type" gorm:"size:30;index" validate:"required"`
	Skill   Skill          `json:"skill" gorm:"size:20;index"`
	Score   float64        `json:"score"`
	Band    float64        `json:"band"`
	XP      int            `json:"xp"`
	Details datatypes.JSON `json:"details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Activity) TableName() string {
	return "activities"
}

// VocabularyWord is one saved word in a user's vocabulary list.
type VocabularyWord struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_word"`
	Word   string `json:"word" gorm:"size:100;not null;uniqueIndex:idx_user_word"`

	CreatedAt time.Time `json:"created_at"`
}

func (VocabularyWord) TableName() string {
	return "vocabulary_words"
}
