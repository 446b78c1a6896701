package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Skill string

const (
	SkillListening Skill = "listening"
	SkillReading   Skill = "reading"
	SkillWriting   Skill = "writing"
	SkillSpeaking  Skill = "speaking"
)

// SectionOrder is the order sections are taken in a mock test.
var SectionOrder = []Skill{SkillListening, SkillReading, SkillWriting, SkillSpeaking}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillInBlank    QuestionType = "fill_blank"
	Essay          QuestionType = "essay"
	SpeakingPrompt QuestionType = "speaking_prompt"
)

// Question is a single test item. When Options is non-empty, CorrectIndex
// points into it; otherwise CorrectText holds the normalized expected answer.
type Question struct {
	ID        uint                        `json:"id" gorm:"primaryKey"`
	PassageID *uint                       `json:"passage_id,omitempty" gorm:"index"`
	TestID    *uint                       `json:"test_id,omitempty" gorm:"index"`
	Skill     Skill                       `json:"skill" gorm:"size:20;index" validate:"required,skill"`
	Type      QuestionType                `json:"type" gorm:"size:30" validate:"required,question_type"`
	Text      string                      `json:"text" gorm:"type:text;not null" validate:"required"`
	Options   datatypes.JSONSlice[string] `json:"options,omitempty"`
	// CorrectIndex is valid only when Options is non-empty.
	CorrectIndex *int   `json:"correct,omitempty"`
	CorrectText  string `json:"correct_text,omitempty" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectAnswerText returns the human-readable correct answer.
func (q *Question) CorrectAnswerText() string {
	if len(q.Options) > 0 && q.CorrectIndex != nil {
		if *q.CorrectIndex >= 0 && *q.CorrectIndex < len(q.Options) {
			return q.Options[*q.CorrectIndex]
		}
		return ""
	}
	return q.CorrectText
}

// Passage is a listening/reading text that owns its questions. Questions are
// never shared across passages.
type Passage struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	TestID    *uint      `json:"test_id,omitempty" gorm:"index"`
	Skill     Skill      `json:"skill" gorm:"size:20;index" validate:"required,skill"`
	Title     string     `json:"title" gorm:"size:300"`
	Text      string     `json:"text" gorm:"type:text;not null" validate:"required"`
	Questions []Question `json:"questions" gorm:"foreignKey:PassageID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Passage) TableName() string {
	return "passages"
}

// MockTest describes one full four-section test.
type MockTest struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text"`
	// Section durations in seconds.
	ListeningDuration int `json:"listening_duration" gorm:"default:1800"`
	ReadingDuration   int `json:"reading_duration" gorm:"default:3600"`
	WritingDuration   int `json:"writing_duration" gorm:"default:3600"`
	SpeakingDuration  int `json:"speaking_duration" gorm:"default:900"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (MockTest) TableName() string {
	return "mock_tests"
}

// SectionDuration returns the configured duration for a section in seconds.
func (t *MockTest) SectionDuration(skill Skill) int {
	switch skill {
	case SkillListening:
		return t.ListeningDuration
	case SkillReading:
		return t.ReadingDuration
	case SkillWriting:
		return t.WritingDuration
	case SkillSpeaking:
		return t.SpeakingDuration
	}
	return 0
}

// TestQuestions is the full in-memory question set for one mock test, as
// loaded at session start. Listening and reading questions live inside their
// passages; writing and speaking are standalone items.
type TestQuestions struct {
	Listening []Passage  `json:"listening"`
	Reading   []Passage  `json:"reading"`
	Writing   []Question `json:"writing"`
	Speaking  []Question `json:"speaking"`
}

// SectionQuestionCount returns the number of navigable items in a section:
// passages count one per passage for listening/reading.
func (tq *TestQuestions) SectionQuestionCount(skill Skill) int {
	switch skill {
	case SkillListening:
		return len(tq.Listening)
	case SkillReading:
		return len(tq.Reading)
	case SkillWriting:
		return len(tq.Writing)
	case SkillSpeaking:
		return len(tq.Speaking)
	}
	return 0
}
