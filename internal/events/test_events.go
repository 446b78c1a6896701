package events

import (
	"time"

	"github.com/mvocoding/testmateai/internal/models"
)

// EventType represents the lifecycle events published by the service
type EventType string

const (
	// Mock test events
	EventTestStarted   EventType = "test.started"
	EventTestSubmitted EventType = "test.submitted"
	EventTestScored    EventType = "test.scored"
	EventTestTimedOut  EventType = "test.timed_out"

	// Practice events
	EventActivityRecorded EventType = "activity.recorded"
)

// TestEvent is the envelope for all published events
type TestEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Event payloads

type TestStartedEvent struct {
	SessionID string    `json:"session_id"`
	TestID    uint      `json:"test_id"`
	UserID    uint      `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

type TestSubmittedEvent struct {
	SessionID   string    `json:"session_id"`
	TestID      uint      `json:"test_id"`
	UserID      uint      `json:"user_id"`
	TotalTasks  int       `json:"total_tasks"`
	TimedOut    bool      `json:"timed_out"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type TestScoredEvent struct {
	SessionID   string                              `json:"session_id"`
	TestID      uint                                `json:"test_id"`
	UserID      uint                                `json:"user_id"`
	OverallBand float64                             `json:"overall_band"`
	Results     map[models.Skill]models.SkillResult `json:"results"`
	ScoredAt    time.Time                           `json:"scored_at"`
}

type ActivityRecordedEvent struct {
	UserID uint                `json:"user_id"`
	Type   models.ActivityType `json:"activity_type"`
	Skill  models.Skill        `json:"skill,omitempty"`
	Band   float64             `json:"band"`
	XP     int                 `json:"xp"`
}
