package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mvocoding/testmateai/internal/ai"
	"github.com/mvocoding/testmateai/internal/models"
	"github.com/mvocoding/testmateai/internal/utils"
)

// SubmissionService runs a full mock-test submission: it fans out every
// feedback task concurrently, tracks per-task completion for progress
// reporting, and aggregates the results into per-skill and overall bands.
//
// The returned Submission always completes with a result. A failing or
// unparseable AI call degrades that one task to "no feedback"; it never fails
// the submission.
type SubmissionService interface {
	Submit(ctx context.Context, questions *models.TestQuestions, answers models.SectionAnswers) *Submission
}

// Submission is the handle for one in-flight submission. TotalTasks is known
// before any task settles; Progress is monotonic and reaches TotalTasks
// exactly when Done closes.
type Submission struct {
	totalTasks int
	completed  atomic.Int64

	done   chan struct{}
	result *models.SubmissionResult
}

func (s *Submission) TotalTasks() int {
	return s.totalTasks
}

// Progress returns (completed, total).
func (s *Submission) Progress() (int, int) {
	return int(s.completed.Load()), s.totalTasks
}

// Done closes when the result is available.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Result returns the final payload, or nil while the submission is running.
func (s *Submission) Result() *models.SubmissionResult {
	select {
	case <-s.done:
		return s.result
	default:
		return nil
	}
}

// Wait blocks until the submission completes or the context is cancelled. On
// cancellation the submission keeps running in the background; in-flight
// feedback requests are not aborted once a submission starts.
func (s *Submission) Wait(ctx context.Context) (*models.SubmissionResult, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type submissionService struct {
	gen            ai.FeedbackGenerator
	logger         utils.Logger
	maxConcurrency int // 0 = unlimited
}

func NewSubmissionService(gen ai.FeedbackGenerator, logger utils.Logger, maxConcurrency int) SubmissionService {
	return &submissionService{
		gen:            gen,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

func (s *submissionService) Submit(ctx context.Context, questions *models.TestQuestions, answers models.SectionAnswers) *Submission {
	// Snapshot the answers: edits made after submission begins must not
	// affect an in-flight submission.
	answers = answers.Clone()

	tasksBySkill := map[models.Skill][]SectionTask{
		models.SkillListening: BuildPassageTasks(models.SkillListening, questions.Listening, answers[models.SkillListening], s.gen),
		models.SkillReading:   BuildPassageTasks(models.SkillReading, questions.Reading, answers[models.SkillReading], s.gen),
		models.SkillSpeaking:  BuildSpeakingTasks(questions.Speaking, answers[models.SkillSpeaking], s.gen),
		models.SkillWriting:   BuildWritingTasks(questions.Writing, answers[models.SkillWriting], s.gen),
	}

	total := 0
	for _, tasks := range tasksBySkill {
		total += len(tasks)
	}

	sub := &Submission{
		totalTasks: total,
		done:       make(chan struct{}),
	}

	var sem chan struct{}
	if s.maxConcurrency > 0 {
		sem = make(chan struct{}, s.maxConcurrency)
	}

	go func() {
		defer close(sub.done)

		s.logger.Info("Starting test submission", "total_tasks", total)

		// Two-level fan-out: every task of every section runs
		// concurrently; results keep their task-list order per skill.
		resultsBySkill := make(map[models.Skill][]map[string]any, len(tasksBySkill))
		var wg sync.WaitGroup

		for skill, tasks := range tasksBySkill {
			slots := make([]map[string]any, len(tasks))
			resultsBySkill[skill] = slots

			for i, task := range tasks {
				wg.Add(1)
				go func(i int, task SectionTask) {
					defer wg.Done()
					// Completion is counted exactly once per task,
					// success or failure.
					defer sub.completed.Add(1)

					if sem != nil {
						sem <- struct{}{}
						defer func() { <-sem }()
					}

					slots[i] = s.runTask(ctx, task)
				}(i, task)
			}
		}

		wg.Wait()

		sub.result = s.aggregate(questions, answers, resultsBySkill, total)

		s.logger.Info("Test submission completed",
			"total_tasks", total,
			"overall_band", sub.result.OverallBand)
	}()

	return sub
}

// runTask executes one feedback task, converting panics to nil results so a
// bad task can never take down the submission.
func (s *submissionService) runTask(ctx context.Context, task SectionTask) (result map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Feedback task panicked", "skill", task.Skill, "panic", r)
			result = nil
		}
	}()
	return task.Run(ctx)
}

// ===== AGGREGATION =====

func (s *submissionService) aggregate(questions *models.TestQuestions, answers models.SectionAnswers, resultsBySkill map[models.Skill][]map[string]any, total int) (result *models.SubmissionResult) {
	// Whatever happens during aggregation, the submission completes and
	// shows something.
	result = &models.SubmissionResult{
		AIFeedback: map[models.Skill][]models.Feedback{
			models.SkillListening: {},
			models.SkillReading:   {},
			models.SkillWriting:   {},
			models.SkillSpeaking:  {},
		},
		Results: map[models.Skill]models.SkillResult{
			models.SkillListening: {},
			models.SkillReading:   {},
			models.SkillWriting:   {Band: 1.0, Percentage: 10},
			models.SkillSpeaking:  {Band: 1.0, Percentage: 10},
		},
		LocalScores: map[models.Skill]models.LocalScore{},
		OverallBand: 0,
		TotalTasks:  total,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Score aggregation failed, returning partial results", "panic", r)
		}
	}()

	// Drop failed tasks; keep per-skill task order.
	for skill, raw := range resultsBySkill {
		feedback := make([]models.Feedback, 0, len(raw))
		for _, fields := range raw {
			if fields == nil {
				continue
			}
			feedback = append(feedback, models.Feedback{Skill: skill, Fields: fields})
		}
		result.AIFeedback[skill] = feedback
	}

	result.LocalScores[models.SkillListening] = localPassageScore(questions.Listening, answers[models.SkillListening])
	result.LocalScores[models.SkillReading] = localPassageScore(questions.Reading, answers[models.SkillReading])

	result.Results[models.SkillListening] = comprehensionResult(result.AIFeedback[models.SkillListening])
	result.Results[models.SkillReading] = comprehensionResult(result.AIFeedback[models.SkillReading])
	result.Results[models.SkillSpeaking] = productionResult(result.AIFeedback[models.SkillSpeaking], "band")
	result.Results[models.SkillWriting] = productionResult(result.AIFeedback[models.SkillWriting], "overall_score", "band")

	sum := 0.0
	for _, skill := range models.SectionOrder {
		sum += result.Results[skill].Band
	}
	result.OverallBand = models.RoundBand(sum / float64(len(models.SectionOrder)))

	return result
}

// comprehensionResult aggregates listening/reading feedback: the band is the
// mean of reported bands (0 when none arrived), the percentage prefers the
// per-passage correctness ratios from question_analysis and falls back to
// band*10.
func comprehensionResult(feedback []models.Feedback) models.SkillResult {
	var bands, percents []float64

	for _, f := range feedback {
		if band, ok := f.Number("band"); ok && band > 0 {
			bands = append(bands, band)
		}

		analysis := f.QuestionAnalysis()
		if len(analysis) == 0 {
			continue
		}
		correct := 0
		for _, entry := range analysis {
			if ok, _ := entry["is_correct"].(bool); ok {
				correct++
			}
		}
		percents = append(percents, float64(correct)/float64(len(analysis))*100)
	}

	band := mean(bands, 0)
	percentage := mean(percents, models.ClampPercentage(band*10))

	return models.SkillResult{
		Band:       band,
		Percentage: models.ClampPercentage(percentage),
	}
}

// productionResult aggregates speaking/writing feedback. The band defaults to
// 1.0 when no feedback arrived: an incomplete speaking/writing section never
// shows a zero band.
func productionResult(feedback []models.Feedback, scoreKeys ...string) models.SkillResult {
	var bands []float64

	for _, f := range feedback {
		for _, key := range scoreKeys {
			if band, ok := f.Number(key); ok && band > 0 {
				bands = append(bands, band)
				break
			}
		}
	}

	band := mean(bands, 1.0)

	return models.SkillResult{
		Band:       band,
		Percentage: models.ClampPercentage(band * 10),
	}
}

// localPassageScore computes correctness without the AI: the stored answers
// are compared against the questions' own correct answers.
func localPassageScore(passages []models.Passage, answers models.AnswerMap) models.LocalScore {
	score := models.LocalScore{}

	for _, passage := range passages {
		for qi := range passage.Questions {
			question := passage.Questions[qi]
			score.Total++

			raw, ok := answers[models.PassageAnswerKey(passage.ID, qi)]
			if !ok {
				continue
			}
			given := strings.TrimSpace(AnswerText(&question, raw))
			want := strings.TrimSpace(question.CorrectAnswerText())
			if given != "" && strings.EqualFold(given, want) {
				score.Correct++
			}
		}
	}

	return score
}

func mean(values []float64, fallback float64) float64 {
	if len(values) == 0 {
		return fallback
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
