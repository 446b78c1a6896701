package services

import (
	"context"
	"testing"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFeedbackGenerator records the arguments of each call and returns canned
// responses.
type fakeFeedbackGenerator struct {
	passageAnswers map[uint]map[uint]string // passage ID -> answers seen
	speakingCalls  []string                 // transcripts seen
	writingCalls   []int                    // word counts seen

	response map[string]any
}

func newFakeFeedbackGenerator(response map[string]any) *fakeFeedbackGenerator {
	return &fakeFeedbackGenerator{
		passageAnswers: make(map[uint]map[uint]string),
		response:       response,
	}
}

func (f *fakeFeedbackGenerator) PassageFeedback(ctx context.Context, skill models.Skill, passage *models.Passage, answers map[uint]string) map[string]any {
	f.passageAnswers[passage.ID] = answers
	return f.response
}

func (f *fakeFeedbackGenerator) SpeakingFeedback(ctx context.Context, question, transcript string) map[string]any {
	f.speakingCalls = append(f.speakingCalls, transcript)
	return f.response
}

func (f *fakeFeedbackGenerator) WritingFeedback(ctx context.Context, prompt, essay string, wordCount int) map[string]any {
	f.writingCalls = append(f.writingCalls, wordCount)
	return f.response
}

func mcQuestion(id uint, correct int, options ...string) models.Question {
	return models.Question{
		ID:           id,
		Skill:        models.SkillReading,
		Type:         models.MultipleChoice,
		Text:         "question",
		Options:      options,
		CorrectIndex: &correct,
	}
}

func TestBuildPassageTasks_SkipsEmptyPassages(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	passages := []models.Passage{
		{ID: 1, Questions: []models.Question{mcQuestion(10, 0, "a", "b")}},
		{ID: 2},
		{ID: 3, Questions: []models.Question{mcQuestion(30, 1, "x", "y")}},
	}

	tasks := BuildPassageTasks(models.SkillReading, passages, models.AnswerMap{}, gen)
	assert.Len(t, tasks, 2)
}

func TestBuildPassageTasks_TranslatesOptionIndices(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	passages := []models.Passage{
		{ID: 1, Questions: []models.Question{
			mcQuestion(10, 0, "China", "India"),
			mcQuestion(11, 1, "True", "False"),
		}},
	}
	answers := models.AnswerMap{
		models.PassageAnswerKey(1, 0): 1,          // option index
		models.PassageAnswerKey(1, 1): float64(0), // index after a JSON round trip
	}

	tasks := BuildPassageTasks(models.SkillReading, passages, answers, gen)
	require.Len(t, tasks, 1)
	tasks[0].Run(context.Background())

	assert.Equal(t, map[uint]string{10: "India", 11: "True"}, gen.passageAnswers[1])
}

func TestBuildPassageTasks_UnansweredQuestionsOmitted(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	passages := []models.Passage{
		{ID: 1, Questions: []models.Question{
			mcQuestion(10, 0, "a", "b"),
			mcQuestion(11, 0, "c", "d"),
		}},
	}
	answers := models.AnswerMap{models.PassageAnswerKey(1, 1): 0}

	tasks := BuildPassageTasks(models.SkillReading, passages, answers, gen)
	require.Len(t, tasks, 1)
	tasks[0].Run(context.Background())

	seen := gen.passageAnswers[1]
	assert.NotContains(t, seen, uint(10))
	assert.Equal(t, "c", seen[11])
}

func TestBuildPassageTasks_DoesNotMutateAnswers(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	passages := []models.Passage{
		{ID: 1, Questions: []models.Question{mcQuestion(10, 0, "a", "b")}},
	}
	answers := models.AnswerMap{models.PassageAnswerKey(1, 0): 0, "stray": "value"}

	tasks := BuildPassageTasks(models.SkillReading, passages, answers, gen)
	for _, task := range tasks {
		task.Run(context.Background())
	}

	assert.Equal(t, models.AnswerMap{models.PassageAnswerKey(1, 0): 0, "stray": "value"}, answers)
}

func TestBuildSpeakingTasks_DefaultsTranscriptToEmpty(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	questions := []models.Question{
		{ID: 50, Skill: models.SkillSpeaking, Type: models.SpeakingPrompt, Text: "Describe a journey."},
		{ID: 51, Skill: models.SkillSpeaking, Type: models.SpeakingPrompt, Text: "Describe a meal."},
	}
	answers := models.AnswerMap{models.QuestionAnswerKey(51): "I once ate..."}

	tasks := BuildSpeakingTasks(questions, answers, gen)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, models.SkillSpeaking, task.Skill)
		task.Run(context.Background())
	}

	assert.Equal(t, []string{"", "I once ate..."}, gen.speakingCalls)
}

func TestBuildWritingTasks_WordCount(t *testing.T) {
	gen := newFakeFeedbackGenerator(nil)
	questions := []models.Question{
		{ID: 60, Skill: models.SkillWriting, Type: models.Essay, Text: "Discuss remote work."},
		{ID: 61, Skill: models.SkillWriting, Type: models.Essay, Text: "Discuss city life."},
	}
	answers := models.AnswerMap{
		models.QuestionAnswerKey(60): "  one two   three\nfour ",
	}

	tasks := BuildWritingTasks(questions, answers, gen)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		task.Run(context.Background())
	}

	assert.Equal(t, []int{4, 0}, gen.writingCalls)
}

func TestAnswerText_Coercion(t *testing.T) {
	q := mcQuestion(1, 0, "alpha", "beta")

	assert.Equal(t, "", AnswerText(&q, nil))
	assert.Equal(t, "free text", AnswerText(&q, "free text"))
	assert.Equal(t, "True", AnswerText(&q, true))
	assert.Equal(t, "False", AnswerText(&q, false))
	assert.Equal(t, "beta", AnswerText(&q, 1))
	assert.Equal(t, "alpha", AnswerText(&q, float64(0)))
	assert.Equal(t, "", AnswerText(&q, 9)) // out of range
}

func TestAnswerKeys_UniqueAndStable(t *testing.T) {
	assert.Equal(t, "7-0", models.PassageAnswerKey(7, 0))
	assert.Equal(t, "7-1", models.PassageAnswerKey(7, 1))
	assert.NotEqual(t, models.PassageAnswerKey(7, 1), models.PassageAnswerKey(71, 1))
	assert.Equal(t, "42", models.QuestionAnswerKey(42))
}
