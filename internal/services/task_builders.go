package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mvocoding/testmateai/internal/ai"
	"github.com/mvocoding/testmateai/internal/models"
)

// SectionTask is one pending feedback request: a passage for
// listening/reading, a single item for speaking/writing. Run performs the
// request; it returns nil on any failure and never panics past the
// orchestrator's wrapper.
type SectionTask struct {
	Skill models.Skill
	Run   func(ctx context.Context) map[string]any
}

// ===== TASK BUILDERS =====
//
// Builders are pure: they read the answer map, never mutate it, and only
// produce tasks for passages/items with at least one answerable question.

// BuildPassageTasks creates one task per listening/reading passage that has
// questions. Stored option indices are translated back to option text because
// the feedback prompts reason over human-readable answers.
func BuildPassageTasks(skill models.Skill, passages []models.Passage, answers models.AnswerMap, gen ai.FeedbackGenerator) []SectionTask {
	tasks := make([]SectionTask, 0, len(passages))

	for i := range passages {
		passage := passages[i]
		if len(passage.Questions) == 0 {
			continue
		}

		byQuestion := make(map[uint]string, len(passage.Questions))
		for qi, question := range passage.Questions {
			key := models.PassageAnswerKey(passage.ID, qi)
			raw, ok := answers[key]
			if !ok {
				continue
			}
			byQuestion[question.ID] = AnswerText(&question, raw)
		}

		tasks = append(tasks, SectionTask{
			Skill: skill,
			Run: func(ctx context.Context) map[string]any {
				return gen.PassageFeedback(ctx, skill, &passage, byQuestion)
			},
		})
	}

	return tasks
}

// BuildSpeakingTasks creates one task per speaking question. A missing
// transcript becomes the empty string.
func BuildSpeakingTasks(questions []models.Question, answers models.AnswerMap, gen ai.FeedbackGenerator) []SectionTask {
	tasks := make([]SectionTask, 0, len(questions))

	for i := range questions {
		question := questions[i]
		transcript := stringAnswer(answers[models.QuestionAnswerKey(question.ID)])

		tasks = append(tasks, SectionTask{
			Skill: models.SkillSpeaking,
			Run: func(ctx context.Context) map[string]any {
				return gen.SpeakingFeedback(ctx, question.Text, transcript)
			},
		})
	}

	return tasks
}

// BuildWritingTasks creates one task per writing prompt, with the word count
// computed as whitespace-delimited tokens.
func BuildWritingTasks(questions []models.Question, answers models.AnswerMap, gen ai.FeedbackGenerator) []SectionTask {
	tasks := make([]SectionTask, 0, len(questions))

	for i := range questions {
		question := questions[i]
		essay := stringAnswer(answers[models.QuestionAnswerKey(question.ID)])
		wordCount := len(strings.Fields(essay))

		tasks = append(tasks, SectionTask{
			Skill: models.SkillWriting,
			Run: func(ctx context.Context) map[string]any {
				return gen.WritingFeedback(ctx, question.Text, essay, wordCount)
			},
		})
	}

	return tasks
}

// ===== ANSWER COERCION =====

// AnswerText renders a raw stored answer as the human-readable text the
// prompts and local scoring compare against.
func AnswerText(question *models.Question, raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return optionAt(question, v)
	case float64:
		// JSON round-trips indices as float64.
		return optionAt(question, int(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func optionAt(question *models.Question, index int) string {
	if index >= 0 && index < len(question.Options) {
		return question.Options[index]
	}
	return ""
}

func stringAnswer(raw any) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}
