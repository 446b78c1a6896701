package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator serves canned feedback per skill. With block set, every call
// waits until the channel is closed; with panics set, every call panics.
type stubGenerator struct {
	mu        sync.Mutex
	responses map[models.Skill]map[string]any
	block     chan struct{}
	panics    bool

	inFlight    int
	maxInFlight int
}

func (g *stubGenerator) respond(skill models.Skill) map[string]any {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.maxInFlight {
		g.maxInFlight = g.inFlight
	}
	g.mu.Unlock()

	if g.block != nil {
		<-g.block
	}

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()

	if g.panics {
		panic("feedback blew up")
	}
	return g.responses[skill]
}

func (g *stubGenerator) PassageFeedback(ctx context.Context, skill models.Skill, passage *models.Passage, answers map[uint]string) map[string]any {
	return g.respond(skill)
}

func (g *stubGenerator) SpeakingFeedback(ctx context.Context, question, transcript string) map[string]any {
	return g.respond(models.SkillSpeaking)
}

func (g *stubGenerator) WritingFeedback(ctx context.Context, prompt, essay string, wordCount int) map[string]any {
	return g.respond(models.SkillWriting)
}

// fullTestQuestions builds a four-section test: one listening passage with
// two questions, one reading passage with one question, one writing prompt,
// one speaking prompt.
func fullTestQuestions() *models.TestQuestions {
	return &models.TestQuestions{
		Listening: []models.Passage{
			{ID: 1, Skill: models.SkillListening, Text: "audio script", Questions: []models.Question{
				mcQuestion(10, 0, "red", "blue"),
				mcQuestion(11, 1, "yes", "no"),
			}},
		},
		Reading: []models.Passage{
			{ID: 2, Skill: models.SkillReading, Text: "passage text", Questions: []models.Question{
				mcQuestion(20, 0, "north", "south"),
			}},
		},
		Writing: []models.Question{
			{ID: 30, Skill: models.SkillWriting, Type: models.Essay, Text: "Discuss."},
		},
		Speaking: []models.Question{
			{ID: 40, Skill: models.SkillSpeaking, Type: models.SpeakingPrompt, Text: "Describe."},
		},
	}
}

func fullAnswers() models.SectionAnswers {
	return models.SectionAnswers{
		models.SkillListening: {
			models.PassageAnswerKey(1, 0): 0,
			models.PassageAnswerKey(1, 1): 1,
		},
		models.SkillReading: {
			models.PassageAnswerKey(2, 0): 1,
		},
		models.SkillWriting: {
			models.QuestionAnswerKey(30): "an essay of some length",
		},
		models.SkillSpeaking: {
			models.QuestionAnswerKey(40): "a transcript",
		},
	}
}

func waitForResult(t *testing.T, sub *Submission) *models.SubmissionResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := sub.Wait(ctx)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestSubmit_AllFeedbackFailsStillProducesResult(t *testing.T) {
	gen := &stubGenerator{} // responses nil for every skill
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	result := waitForResult(t, sub)

	for _, skill := range models.SectionOrder {
		assert.Empty(t, result.AIFeedback[skill])
		assert.False(t, result.FeedbackAvailable(skill))
	}
	assert.Equal(t, 0.0, result.Results[models.SkillListening].Band)
	assert.Equal(t, 0.0, result.Results[models.SkillReading].Band)
	assert.Equal(t, 1.0, result.Results[models.SkillWriting].Band)
	assert.Equal(t, 1.0, result.Results[models.SkillSpeaking].Band)
	assert.Equal(t, 0.5, result.OverallBand)

	completed, total := sub.Progress()
	assert.Equal(t, total, completed)
	assert.Equal(t, 4, total)
}

func TestSubmit_PanickingTasksAreContained(t *testing.T) {
	gen := &stubGenerator{panics: true}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	result := waitForResult(t, sub)

	completed, total := sub.Progress()
	assert.Equal(t, total, completed)
	for _, skill := range models.SectionOrder {
		assert.Empty(t, result.AIFeedback[skill])
	}
}

func TestSubmit_TotalKnownBeforeTasksSettle(t *testing.T) {
	gen := &stubGenerator{block: make(chan struct{})}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())

	assert.Equal(t, 4, sub.TotalTasks())
	completed, total := sub.Progress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 4, total)
	assert.Nil(t, sub.Result())

	close(gen.block)
	waitForResult(t, sub)

	completed, _ = sub.Progress()
	assert.Equal(t, 4, completed)
	assert.NotNil(t, sub.Result())
}

func TestSubmit_OverallBandRounding(t *testing.T) {
	gen := &stubGenerator{responses: map[models.Skill]map[string]any{
		models.SkillListening: {"band": 6.0},
		models.SkillReading:   {"band": 6.5},
		models.SkillWriting:   {"overall_score": 7.0},
		models.SkillSpeaking:  {"band": 7.5},
	}}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	result := waitForResult(t, sub)

	// mean(6.0, 6.5, 7.0, 7.5) = 6.75, rounded to the nearest half band.
	assert.Equal(t, 7.0, result.OverallBand)
}

func TestSubmit_PercentageFromQuestionAnalysis(t *testing.T) {
	gen := &stubGenerator{responses: map[models.Skill]map[string]any{
		models.SkillListening: {
			"band": 6.0,
			"question_analysis": []any{
				map[string]any{"question_number": 1.0, "is_correct": true},
				map[string]any{"question_number": 2.0, "is_correct": false},
			},
		},
		models.SkillReading: {"band": 5.0}, // no analysis: falls back to band*10
	}}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	result := waitForResult(t, sub)

	assert.Equal(t, 50.0, result.Results[models.SkillListening].Percentage)
	assert.Equal(t, 50.0, result.Results[models.SkillReading].Percentage)
}

func TestSubmit_LocalScoreIndependentOfAIFailure(t *testing.T) {
	gen := &stubGenerator{} // AI totally down
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	// Both listening answers correct, reading answer wrong.
	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	result := waitForResult(t, sub)

	assert.Equal(t, models.LocalScore{Correct: 2, Total: 2}, result.LocalScores[models.SkillListening])
	assert.Equal(t, models.LocalScore{Correct: 0, Total: 1}, result.LocalScores[models.SkillReading])
	assert.False(t, result.FeedbackAvailable(models.SkillListening))
}

func TestSubmit_AnswersSnapshottedAtSubmit(t *testing.T) {
	gen := &stubGenerator{block: make(chan struct{})}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	answers := fullAnswers()
	sub := svc.Submit(context.Background(), fullTestQuestions(), answers)

	// Mutations after submit must not affect the in-flight submission.
	answers[models.SkillListening][models.PassageAnswerKey(1, 0)] = 1
	delete(answers[models.SkillReading], models.PassageAnswerKey(2, 0))

	close(gen.block)
	result := waitForResult(t, sub)

	assert.Equal(t, models.LocalScore{Correct: 2, Total: 2}, result.LocalScores[models.SkillListening])
	assert.Equal(t, models.LocalScore{Correct: 0, Total: 1}, result.LocalScores[models.SkillReading])
}

func TestSubmit_BoundedConcurrency(t *testing.T) {
	gen := &stubGenerator{}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 1)

	sub := svc.Submit(context.Background(), fullTestQuestions(), fullAnswers())
	waitForResult(t, sub)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.LessOrEqual(t, gen.maxInFlight, 1)
}

func TestSubmit_EmptyTestCompletesImmediately(t *testing.T) {
	gen := &stubGenerator{}
	svc := NewSubmissionService(gen, utils.NewDevelopmentLogger(), 0)

	sub := svc.Submit(context.Background(), &models.TestQuestions{}, models.SectionAnswers{})
	result := waitForResult(t, sub)

	assert.Equal(t, 0, sub.TotalTasks())
	assert.Equal(t, 0.5, result.OverallBand)
	assert.Equal(t, models.LocalScore{}, result.LocalScores[models.SkillListening])
}
